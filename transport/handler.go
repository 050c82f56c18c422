package transport

import (
	"context"
	"io"
	"strings"
)

// ByteRange is an HTTP Range request: [Offset, unbounded).
type ByteRange struct {
	Offset int64
}

// Request is the Server's decoded view of an incoming hidden-service
// request, stripped of everything the transport layer doesn't need to
// understand — RequestHandler implementations (the server package) are the
// only place model/store types appear.
type Request struct {
	// PeerCertificate is the raw DER bytes of the client certificate
	// presented on the mutually-authenticated TLS connection.
	PeerCertificate []byte
	Query           map[string]string
	Range           *ByteRange
	Body            io.Reader
}

// Response is what a RequestHandler hands back to the Server to write out.
type Response struct {
	StatusCode int
	MIMEType   string
	Body       io.Reader
}

// Empty is the canonical empty-body 200 response most handlers return.
func Empty() Response { return Response{StatusCode: 200} }

// NotAvailable is the canonical rejection response for AskLocation and
// Download requests the policy gate declines.
func NotAvailable() Response { return Response{StatusCode: 503} }

// Error wraps err into a non-2xx response.
func Error(statusCode int, err error) Response {
	return Response{StatusCode: statusCode, Body: errorBody(err)}
}

// RequestHandler is the server-side contract the peer-facing handlers
// implement. The Server dispatches each of the five wire paths to exactly
// one method.
type RequestHandler interface {
	HandleAskPull(ctx context.Context, req Request) Response
	HandleAskLocation(ctx context.Context, req Request) Response
	HandlePush(ctx context.Context, req Request) Response
	HandlePull(ctx context.Context, req Request) Response
	HandleDownload(ctx context.Context, req Request) Response
}

func errorBody(err error) io.Reader {
	if err == nil {
		return nil
	}
	return strings.NewReader(err.Error())
}
