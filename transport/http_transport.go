package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second

	contentTypeForm = "application/x-www-form-urlencoded"
	maxErrorBody    = 512
)

var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport implements Transport over net/http with a cookie jar shared by
// every call.
type HTTPTransport struct {
	client      *http.Client
	interceptor *signing.Interceptor
	limiter     *rate.Limiter
	logger      zerolog.Logger
	userAgent   string
	cookies     cookieStore
}

// Option defines a function type to modify the HTTPTransport instance.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the default client. Its Jar is replaced if nil.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithRateLimit caps outgoing calls at perSecond with the given burst. A limit of
// zero or less disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *HTTPTransport) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

func WithUserAgent(ua string) Option {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// NewHTTPTransport creates a transport that signs PostSigned calls with interceptor.
func NewHTTPTransport(interceptor *signing.Interceptor, options ...Option) (*HTTPTransport, error) {
	t := &HTTPTransport{
		client:      &http.Client{Timeout: DefaultTimeout},
		interceptor: interceptor,
		logger:      log.Logger,
		userAgent:   "go-services-client",
	}
	for _, opt := range options {
		opt(t)
	}
	if t.client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[NewHTTPTransport] failed to create cookie jar")
		}
		t.client.Jar = jar
	}
	return t, nil
}

func (t *HTTPTransport) Post(ctx context.Context, url, operation string, params map[string]any) ([]byte, error) {
	return t.postForm(ctx, url, operation, params)
}

func (t *HTTPTransport) PostSigned(ctx context.Context, url, operation string, params map[string]any) ([]byte, error) {
	if t.interceptor == nil {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.New("[HTTPTransport.PostSigned] no request signer configured"))
	}
	signed, err := t.interceptor.Sign(operation, params)
	if err != nil {
		if svcerrors.Is(err, svcerrors.ErrConfiguration) {
			return nil, err
		}
		return nil, svcerrors.Classify(svcerrors.ErrCrypto, err)
	}
	return t.postForm(ctx, url, operation, signed.Parameters)
}

func (t *HTTPTransport) postForm(ctx context.Context, endpoint, operation string, params map[string]any) ([]byte, error) {
	form, err := EncodeParams(operation, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.Wrapf(err, "[HTTPTransport.Post] bad url %q", endpoint))
	}
	req.Header.Set("Content-Type", contentTypeForm)

	t.logger.Debug().Str("operation", operation).Str("url", endpoint).Msg("services call")
	return t.do(req)
}

func (t *HTTPTransport) GetStream(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.Wrapf(err, "[HTTPTransport.GetStream] bad url %q", url))
	}
	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (t *HTTPTransport) PostFile(ctx context.Context, url, field string, r io.Reader, filename string) ([]byte, error) {
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(field, filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.Wrapf(err, "[HTTPTransport.PostFile] bad url %q", url))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	t.logger.Debug().Str("url", url).Str("filename", filename).Msg("file upload")
	return t.do(req)
}

// Cookies returns the cookies the site has set for url with all their attributes.
func (t *HTTPTransport) Cookies(rawURL string) []sessions.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return t.cookies.matching(u, time.Now())
}

// SetCookies replaces the cookies for url. Current cookies missing from the new
// set are expired.
func (t *HTTPTransport) SetCookies(rawURL string, cookies []sessions.Cookie) {
	u, err := url.Parse(rawURL)
	if err != nil {
		t.logger.Warn().Err(err).Str("url", rawURL).Msg("cannot seed cookies")
		return
	}

	keep := make(map[string]bool, len(cookies))
	now := time.Now()
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Expired(now) {
			continue
		}
		keep[c.Name] = true
		httpCookies = append(httpCookies, c.HTTP())
	}
	for _, c := range t.client.Jar.Cookies(u) {
		if !keep[c.Name] {
			httpCookies = append(httpCookies, &http.Cookie{Name: c.Name, Path: "/", MaxAge: -1})
		}
	}
	t.client.Jar.SetCookies(u, httpCookies)
	t.cookies.replace(u, cookies, now)
}

func (t *HTTPTransport) do(req *http.Request) ([]byte, error) {
	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrTransport, errors.Wrap(err, "read response body"))
	}
	return body, nil
}

// send waits for the rate limiter, executes req and rejects error statuses.
func (t *HTTPTransport) send(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			// the request never reaches the client, which would otherwise close the body
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, svcerrors.Classify(svcerrors.ErrTransport, errors.Wrap(err, "rate limit wait"))
		}
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, svcerrors.Classify(svcerrors.ErrTransport, err)
	}
	t.cookies.record(resp.Request.URL, resp.Cookies(), time.Now())
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Debug().Int("status", resp.StatusCode).Str("url", req.URL.String()).Msg("error status")
		return nil, svcerrors.Classify(svcerrors.ErrTransport,
			fmt.Errorf("%w: %s %s: %d %s", svcerrors.ErrHTTPStatus, req.Method, req.URL.Redacted(), resp.StatusCode, bytes.TrimSpace(snippet)))
	}
	return resp, nil
}
