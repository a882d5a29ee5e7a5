// Package transportfake is a scripted in-memory Transport for tests. Responses are
// queued per operation (or per URL for GET and upload calls) and every call is
// recorded, including the signature fields added to signed calls.
package transportfake

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/jrsteele09/go-services-client/transport"
)

// Call kinds.
const (
	KindPost   = "post"
	KindSigned = "signed"
	KindGet    = "get"
	KindFile   = "file"
)

var _ transport.Transport = (*FakeTransport)(nil)

type Call struct {
	Kind      string
	URL       string
	Operation string
	Params    map[string]any
	Field     string
	Filename  string
	Upload    []byte
}

// Response is delivered once, in queue order. Cookies, when set, replace the jar.
type Response struct {
	Body    string
	Err     error
	Cookies []sessions.Cookie
}

type FakeTransport struct {
	interceptor *signing.Interceptor

	lock    sync.Mutex
	queued  map[string][]Response
	sticky  map[string]Response
	calls   []Call
	cookies []sessions.Cookie
}

// NewFakeTransport creates a fake. A nil interceptor records signed calls unsigned.
func NewFakeTransport(interceptor *signing.Interceptor) *FakeTransport {
	return &FakeTransport{
		interceptor: interceptor,
		queued:      make(map[string][]Response),
		sticky:      make(map[string]Response),
	}
}

// Respond queues body as the next response for key.
func (f *FakeTransport) Respond(key, body string) *FakeTransport {
	return f.RespondWith(key, Response{Body: body})
}

func (f *FakeTransport) RespondWith(key string, r Response) *FakeTransport {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.queued[key] = append(f.queued[key], r)
	return f
}

// RespondAlways answers key with body whenever its queue is empty.
func (f *FakeTransport) RespondAlways(key, body string) *FakeTransport {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.sticky[key] = Response{Body: body}
	return f
}

func (f *FakeTransport) Calls() []Call {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded calls for an operation name or URL.
func (f *FakeTransport) CallsFor(key string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Operation == key || (c.Operation == "" && c.URL == key) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeTransport) SignedCalls() int {
	n := 0
	for _, c := range f.Calls() {
		if c.Kind == KindSigned {
			n++
		}
	}
	return n
}

func (f *FakeTransport) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls = nil
}

func (f *FakeTransport) Post(ctx context.Context, url, operation string, params map[string]any) ([]byte, error) {
	return f.record(ctx, Call{Kind: KindPost, URL: url, Operation: operation, Params: copyParams(params)}, operation)
}

func (f *FakeTransport) PostSigned(ctx context.Context, url, operation string, params map[string]any) ([]byte, error) {
	sent := copyParams(params)
	if f.interceptor != nil {
		signed, err := f.interceptor.Sign(operation, params)
		if err != nil {
			return nil, svcerrors.Classify(svcerrors.ErrCrypto, err)
		}
		sent = signed.Parameters
	}
	return f.record(ctx, Call{Kind: KindSigned, URL: url, Operation: operation, Params: sent}, operation)
}

func (f *FakeTransport) GetStream(ctx context.Context, url string) (io.ReadCloser, error) {
	body, err := f.record(ctx, Call{Kind: KindGet, URL: url}, url)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(body))), nil
}

func (f *FakeTransport) PostFile(ctx context.Context, url, field string, r io.Reader, filename string) ([]byte, error) {
	upload, err := io.ReadAll(r)
	if err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrTransport, err)
	}
	return f.record(ctx, Call{Kind: KindFile, URL: url, Field: field, Filename: filename, Upload: upload}, url)
}

func (f *FakeTransport) Cookies(string) []sessions.Cookie {
	f.lock.Lock()
	defer f.lock.Unlock()

	return append([]sessions.Cookie(nil), f.cookies...)
}

func (f *FakeTransport) SetCookies(_ string, cookies []sessions.Cookie) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.cookies = append([]sessions.Cookie(nil), cookies...)
}

func (f *FakeTransport) record(ctx context.Context, call Call, key string) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls = append(f.calls, call)
	if err := ctx.Err(); err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrTransport, err)
	}

	resp, ok := f.next(key)
	if !ok {
		return nil, svcerrors.Classify(svcerrors.ErrTransport, fmt.Errorf("no scripted response for %q", key))
	}
	if resp.Cookies != nil {
		f.cookies = append([]sessions.Cookie(nil), resp.Cookies...)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return []byte(resp.Body), nil
}

func (f *FakeTransport) next(key string) (Response, bool) {
	if q := f.queued[key]; len(q) > 0 {
		f.queued[key] = q[1:]
		return q[0], true
	}
	resp, ok := f.sticky[key]
	return resp, ok
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
