package tasks

import (
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/tethermesh/sync/transport"
)

// fakeClient records every request it receives and replays a canned
// response, so task bodies can be exercised without a real HTTP/TLS round
// trip.
type fakeClient struct {
	mu       sync.Mutex
	requests []transport.ClientRequest
	response func(transport.ClientRequest) (*transport.ClientResponse, error)
}

func (c *fakeClient) Do(ctx context.Context, req transport.ClientRequest) (*transport.ClientResponse, error) {
	c.mu.Lock()
	if req.Body != nil {
		b, _ := ioutil.ReadAll(req.Body)
		req.Body = nil
		_ = b
	}
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.response != nil {
		return c.response(req)
	}
	return &transport.ClientResponse{StatusCode: 200, Body: ioutil.NopCloser(emptyReader{})}, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, io.EOF }

// fakeClientPool resolves every friend to a single shared fakeClient.
type fakeClientPool struct {
	client *fakeClient
}

func (p *fakeClientPool) ClientForCert(hostname string, certPEM []byte) transport.Client {
	return p.client
}
