package server

import (
	"encoding/json"
	"io"

	"github.com/tethermesh/sync/model"
	"github.com/tethermesh/sync/store"
)

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

// iteratorReader adapts a store.PayloadIterator to an io.Reader producing a
// self-delimited payload stream (model.PayloadEncoder), one item encoded
// per Read call's underlying pipe write — so HandlePull can return a
// streaming body without materializing every pulled item in memory first.
type iteratorReader struct {
	pr *io.PipeReader
}

func newIteratorReader(it store.PayloadIterator) io.Reader {
	pr, pw := io.Pipe()
	enc := model.NewPayloadEncoder(pw)
	go func() {
		for {
			payload, ok, err := it.Next()
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if !ok {
				pw.Close()
				return
			}
			if err := enc.Encode(payload); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
	}()
	return &iteratorReader{pr: pr}
}

func (r *iteratorReader) Read(p []byte) (int, error) { return r.pr.Read(p) }

// rangeReader adapts a store.RangeReadCloser (random-access ReadAt) to a
// sequential io.Reader starting at offset, for streaming a download
// response body.
type rangeReader struct {
	rc     store.RangeReadCloser
	offset int64
}

func newRangeReader(rc store.RangeReadCloser, offset int64) io.Reader {
	return &rangeReader{rc: rc, offset: offset}
}

func (r *rangeReader) Read(p []byte) (int, error) {
	n, err := r.rc.ReadAt(p, r.offset)
	r.offset += int64(n)
	return n, err
}
