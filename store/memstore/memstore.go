// Package memstore is an in-memory implementation of store.Store. It
// exists first so the engine's own test suite has something concrete to
// run against; meshd also wires it in as its bundled default, since a
// durable store's schema is out of scope for this module and something
// has to back the engine for the binary to run standalone. A deployment
// that needs durability supplies its own store.Store.
package memstore

import (
	"encoding/pem"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
)

type friendState struct {
	friend      model.Friend
	groupCursor int64
	postCursor  int64
}

type resource struct {
	data []byte
	mime string
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.Mutex

	self    store.Self
	friends map[model.FriendId]*friendState
	byCert  map[string]model.FriendId

	groups map[string]model.Group
	posts  map[string]model.Post

	selfLocation model.Location
	haveSelfLoc  bool

	pendingGroups map[model.FriendId][]model.Group
	pendingPosts  map[model.FriendId][]model.Post

	downloads map[model.FriendId]map[string]*model.DownloadState
	resources map[model.FriendId]map[string]*resource
	onDisk    map[model.FriendId]map[string][]byte

	sentLog     []sentRecord
	receivedLog []sentRecord
}

type sentRecord struct {
	Friend model.FriendId
	When   int64
	Bytes  int64
}

// New constructs an empty store for the given self identity.
func New(self store.Self) *Store {
	return &Store{
		self:          self,
		friends:       map[model.FriendId]*friendState{},
		byCert:        map[string]model.FriendId{},
		groups:        map[string]model.Group{},
		posts:         map[string]model.Post{},
		pendingGroups: map[model.FriendId][]model.Group{},
		pendingPosts:  map[model.FriendId][]model.Post{},
		downloads:     map[model.FriendId]map[string]*model.DownloadState{},
		resources:     map[model.FriendId]map[string]*resource{},
		onDisk:        map[model.FriendId]map[string][]byte{},
	}
}

// AddFriend registers a friend for tests to address.
func (s *Store) AddFriend(f model.Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[f.ID] = &friendState{friend: f}
	if len(f.Certificate) > 0 {
		// Peers present DER on the TLS connection; index a PEM-encoded
		// certificate by its DER bytes so GetFriendByCertificate matches.
		key := f.Certificate
		if block, _ := pem.Decode(f.Certificate); block != nil {
			key = block.Bytes
		}
		s.byCert[string(key)] = f.ID
	}
}

// RemoveFriend drops a friend, as happens on RemovedFriend.
func (s *Store) RemoveFriend(id model.FriendId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.friends, id)
	for cert, owner := range s.byCert {
		if owner == id {
			delete(s.byCert, cert)
		}
	}
}

func (s *Store) GetSelfOrThrow() (store.Self, error) {
	return s.self, nil
}

func (s *Store) GetFriendsIterator() ([]model.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Friend, 0, len(s.friends))
	for _, fs := range s.friends {
		out = append(out, fs.friend)
	}
	return out, nil
}

func (s *Store) GetFriendByID(id model.FriendId) (model.Friend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.friends[id]
	if !ok {
		return model.Friend{}, false
	}
	return fs.friend, true
}

func (s *Store) GetFriendByCertificate(cert []byte) (model.Friend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCert[string(cert)]
	if !ok {
		return model.Friend{}, false
	}
	return s.friends[id].friend, true
}

func (s *Store) PutSelfLocation(loc model.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfLocation = loc
	s.haveSelfLoc = true
	return nil
}

func (s *Store) GetSelfLocation() (model.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfLocation, s.haveSelfLoc
}

func (s *Store) PutGroup(g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

func (s *Store) GetGroupByID(id string) (model.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	return g, ok
}

func (s *Store) GetPostByID(id string) (model.Post, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return model.Post{}, "", false
	}
	return p, p.GroupID, true
}

func (s *Store) PutPushedGroup(friend model.FriendId, g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	s.pendingGroups[friend] = append(s.pendingGroups[friend], g)
	return nil
}

func (s *Store) PutPushedLocation(friend model.FriendId, loc model.Location) error {
	return nil
}

func (s *Store) PutPushedPost(friend model.FriendId, p model.Post) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.posts[p.ID]
	s.posts[p.ID] = p
	if !existed {
		s.pendingPosts[friend] = append(s.pendingPosts[friend], p)
	}
	return !existed, nil
}

func (s *Store) GetPullRequest(friend model.FriendId) (model.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.friends[friend]
	if !ok {
		return model.PullRequest{}, store.ErrNotFound
	}
	return model.PullRequest{
		FriendID:    friend,
		GroupCursor: fs.groupCursor,
		PostCursor:  fs.postCursor,
	}, nil
}

func (s *Store) PutPullResponse(friend model.FriendId, pullRequest *model.PullRequest, groups []model.Group, posts []model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	if pullRequest != nil {
		fs, ok := s.friends[friend]
		if ok {
			fs.groupCursor = pullRequest.GroupCursor
			fs.postCursor = pullRequest.PostCursor
		}
	}
	return nil
}

func (s *Store) ConfirmSentToPayload(friend model.FriendId, payload model.PushPayload) error {
	return nil
}

func (s *Store) ConfirmSentToPullRequest(friend model.FriendId, req model.PullRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.friends[friend]
	if !ok {
		return store.ErrNotFound
	}
	fs.groupCursor = req.GroupCursor
	fs.postCursor = req.PostCursor
	return nil
}

func (s *Store) GetNextInProgressDownload(friend model.FriendId) (model.DownloadState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRes := s.downloads[friend]
	for _, d := range byRes {
		if d.State == model.DownloadInProgress {
			return *d, true, nil
		}
	}
	return model.DownloadState{}, false, nil
}

func (s *Store) UpdateDownloadState(friend model.FriendId, resourceID string, state model.DownloadStateKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRes, ok := s.downloads[friend]
	if !ok {
		return store.ErrNotFound
	}
	d, ok := byRes[resourceID]
	if !ok {
		return store.ErrNotFound
	}
	d.State = state
	return nil
}

func (s *Store) GetLocalResourceForDownload(friend model.FriendId, resourceID string) (store.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRes, ok := s.resources[friend]
	if !ok {
		return store.Resource{}, store.ErrNotFound
	}
	r, ok := byRes[resourceID]
	if !ok {
		return store.Resource{}, store.ErrNotFound
	}
	return store.Resource{
		MIMEType: r.mime,
		Size:     int64(len(r.data)),
		Reader:   &memReader{data: r.data},
	}, nil
}

func (s *Store) UpdateFriendSentOrThrow(friend model.FriendId, when int64, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.friends[friend]; !ok {
		return store.ErrNotFound
	}
	s.sentLog = append(s.sentLog, sentRecord{friend, when, bytes})
	return nil
}

func (s *Store) UpdateFriendReceivedOrThrow(friend model.FriendId, when int64, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.friends[friend]; !ok {
		return store.ErrNotFound
	}
	s.receivedLog = append(s.receivedLog, sentRecord{friend, when, bytes})
	return nil
}

func (s *Store) CurrentSizeOnDisk(friend model.FriendId, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRes, ok := s.onDisk[friend]
	if !ok {
		return 0, nil
	}
	return int64(len(byRes[resourceID])), nil
}

func (s *Store) OpenAppend(friend model.FriendId, resourceID string) (store.AppendWriter, error) {
	return &memAppender{s: s, friend: friend, resourceID: resourceID}, nil
}

func (s *Store) PullResponseIterator(friend model.FriendId, req model.PullRequest) (store.PayloadIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payloads []model.PushPayload
	for _, g := range s.pendingGroups[friend] {
		payloads = append(payloads, model.NewGroupPayload(g))
	}
	for _, p := range s.pendingPosts[friend] {
		payloads = append(payloads, model.NewPostPayload(p))
	}
	return &sliceIterator{items: payloads}, nil
}

// ShareLocalResource publishes data under resourceID for friend to
// download, sniffing its MIME type the way a real store would when a user
// shares a file rather than a test seeding one directly.
func (s *Store) ShareLocalResource(friend model.FriendId, resourceID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.friends[friend]; !ok {
		return store.ErrNotFound
	}
	mime := mimetype.Detect(data).String()
	if s.resources[friend] == nil {
		s.resources[friend] = map[string]*resource{}
	}
	s.resources[friend][resourceID] = &resource{data: data, mime: mime}
	return nil
}

// SeedDownload registers an in-progress download for a test to drive.
func (s *Store) SeedDownload(friend model.FriendId, resourceID string, expectedSize int64, alreadyOnDisk []byte, full []byte, mime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloads[friend] == nil {
		s.downloads[friend] = map[string]*model.DownloadState{}
	}
	s.downloads[friend][resourceID] = &model.DownloadState{
		FriendID: friend, ResourceID: resourceID, ExpectedSize: expectedSize, State: model.DownloadInProgress,
	}
	if s.onDisk[friend] == nil {
		s.onDisk[friend] = map[string][]byte{}
	}
	s.onDisk[friend][resourceID] = append([]byte(nil), alreadyOnDisk...)
	if s.resources[friend] == nil {
		s.resources[friend] = map[string]*resource{}
	}
	s.resources[friend][resourceID] = &resource{data: full, mime: mime}
}

// DiskContents returns what has been written to a resource so far, for
// tests to assert against.
func (s *Store) DiskContents(friend model.FriendId, resourceID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.onDisk[friend][resourceID]...)
}

// DownloadStateOf exposes the current lifecycle state for assertions.
func (s *Store) DownloadStateOf(friend model.FriendId, resourceID string) model.DownloadStateKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.downloads[friend][resourceID]
	if !ok {
		return ""
	}
	return d.State
}

type memAppender struct {
	s          *Store
	friend     model.FriendId
	resourceID string
}

func (a *memAppender) Write(p []byte) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if a.s.onDisk[a.friend] == nil {
		a.s.onDisk[a.friend] = map[string][]byte{}
	}
	a.s.onDisk[a.friend][a.resourceID] = append(a.s.onDisk[a.friend][a.resourceID], p...)
	return len(p), nil
}

func (a *memAppender) Close() error { return nil }

type memReader struct {
	data []byte
}

func (r *memReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	return n, nil
}

func (r *memReader) Close() error { return nil }

type sliceIterator struct {
	items []model.PushPayload
	i     int
}

func (it *sliceIterator) Next() (model.PushPayload, bool, error) {
	if it.i >= len(it.items) {
		return model.PushPayload{}, false, nil
	}
	p := it.items[it.i]
	it.i++
	return p, true, nil
}
