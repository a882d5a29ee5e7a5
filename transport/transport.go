// Package transport moves service calls over HTTP: form-encoded POSTs to the JSON
// endpoint, multipart uploads and plain GETs for file contents. It also owns the
// cookie jar the remote site's session cookies live in.
package transport

import (
	"context"
	"io"

	"github.com/jrsteele09/go-services-client/sessions"
)

// ParamMethod carries the operation name in every POST to the service endpoint.
const ParamMethod = "method"

// Transport is the byte-level collaborator of the services client. Implementations
// return the raw response body; envelope decoding is the caller's job.
type Transport interface {
	// Post sends an unsigned call.
	Post(ctx context.Context, url, operation string, params map[string]any) ([]byte, error)

	// PostSigned adds hash, timestamp and nonce to params before sending.
	PostSigned(ctx context.Context, url, operation string, params map[string]any) ([]byte, error)

	// GetStream fetches url; the caller closes the body.
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)

	// PostFile uploads r as a multipart form file in field.
	PostFile(ctx context.Context, url, field string, r io.Reader, filename string) ([]byte, error)

	// Cookies returns the cookies the transport would send to url, in jar order.
	Cookies(url string) []sessions.Cookie

	// SetCookies seeds the jar, for example from a restored session.
	SetCookies(url string, cookies []sessions.Cookie)
}
