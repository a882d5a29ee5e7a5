package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strconv"
	"testing"
	"time"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/jrsteele09/go-services-client/transport"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1287070033000)

func newInterceptor(secret string) *signing.Interceptor {
	return signing.NewInterceptor(
		signing.NewHMACSigner(secret, "mobile.example.com"),
		signing.WithNowTime(func() time.Time { return fixedNow }),
		signing.WithNonceGenerator(signing.NonceFunc(func() string { return "abc123" })),
	)
}

func TestHTTPTransport_Post(t *testing.T) {
	var got http.Header
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.Header
		form = r.PostForm
		http.SetCookie(w, &http.Cookie{Name: "SESSabc", Value: "S1", Path: "/"})
		_, _ = w.Write([]byte(`{"#error":false,"#data":{"sessid":"S1"}}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	body, err := tr.Post(context.Background(), srv.URL+"/services/json", "system.connect", map[string]any{"count": 5, "flag": true, "args": []string{"a"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"#error":false,"#data":{"sessid":"S1"}}`, string(body))

	require.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	require.Equal(t, []string{"system.connect"}, form["method"])
	require.Equal(t, []string{"5"}, form["count"])
	require.Equal(t, []string{"1"}, form["flag"])
	require.Equal(t, []string{`["a"]`}, form["args"])
	require.NotContains(t, form, "hash")

	t.Run("cookies are captured", func(t *testing.T) {
		cookies := tr.Cookies(srv.URL)
		require.Len(t, cookies, 1)
		require.Equal(t, "SESSabc", cookies[0].Name)
		require.Equal(t, "S1", cookies[0].Value)
	})
}

func TestHTTPTransport_PostSigned(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"#error":false,"#data":null}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(newInterceptor("5ecret"))
	require.NoError(t, err)

	_, err = tr.PostSigned(context.Background(), srv.URL, "node.get", map[string]any{"nid": 4, "sessid": "S1"})
	require.NoError(t, err)

	require.Equal(t, "node.get", form["method"][0])
	require.Equal(t, "4", form["nid"][0])
	require.Equal(t, "S1", form["sessid"][0])
	require.Equal(t, "abc123", form["nonce"][0])
	require.Equal(t, strconv.FormatInt(fixedNow.UnixMilli(), 10), form["timestamp"][0])
	require.Equal(t, "d85b867149ca39a9c112be3e3abbdad5e84afeb138ec5cc08825c35fa67740a9", form["hash"][0])
}

func TestHTTPTransport_PostSignedErrors(t *testing.T) {
	t.Run("no interceptor", func(t *testing.T) {
		tr, err := transport.NewHTTPTransport(nil)
		require.NoError(t, err)
		_, err = tr.PostSigned(context.Background(), "http://127.0.0.1:1", "node.get", nil)
		require.ErrorIs(t, err, svcerrors.ErrConfiguration)
	})

	t.Run("missing secret", func(t *testing.T) {
		tr, err := transport.NewHTTPTransport(newInterceptor(""))
		require.NoError(t, err)
		_, err = tr.PostSigned(context.Background(), "http://127.0.0.1:1", "node.get", nil)
		require.ErrorIs(t, err, svcerrors.ErrConfiguration)
	})
}

func TestHTTPTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	_, err = tr.Post(context.Background(), srv.URL, "system.connect", nil)
	require.ErrorIs(t, err, svcerrors.ErrTransport)
	require.ErrorIs(t, err, svcerrors.ErrHTTPStatus)
	require.Contains(t, err.Error(), "500")

	_, err = tr.GetStream(context.Background(), srv.URL+"/missing.png")
	require.ErrorIs(t, err, svcerrors.ErrHTTPStatus)
}

func TestHTTPTransport_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr, err := transport.NewHTTPTransport(nil, transport.WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = tr.Post(context.Background(), url, "system.connect", nil)
	require.ErrorIs(t, err, svcerrors.ErrTransport)
}

func TestHTTPTransport_GetStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sites/default/files/a.txt", r.URL.Path)
		_, _ = w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	rc, err := tr.GetStream(context.Background(), srv.URL+"/sites/default/files/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "file contents", string(b))
}

func TestHTTPTransport_PostFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dandy/fileupload/tok", r.URL.Path)
		f, hdr, err := r.FormFile("files[upload]")
		require.NoError(t, err)
		defer f.Close()
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "photo.jpg", hdr.Filename)
		require.Equal(t, "jpegbytes", string(b))
		_, _ = w.Write([]byte(`{"fid":"3","filename":"photo.jpg"}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	body, err := tr.PostFile(context.Background(), srv.URL+"/dandy/fileupload/tok", "files[upload]", stringsReader("jpegbytes"), "photo.jpg")
	require.NoError(t, err)
	require.Contains(t, string(body), `"fid":"3"`)
}

func TestHTTPTransport_SetCookies(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("SESSabc"); err == nil {
			seen = c.Value
		}
		_, _ = w.Write([]byte(`{"#error":false}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	tr.SetCookies(srv.URL, []sessions.Cookie{
		{Name: "SESSabc", Value: "restored", Path: "/"},
		{Name: "stale", Value: "x", Path: "/", Expires: &past},
	})

	_, err = tr.Post(context.Background(), srv.URL, "system.connect", nil)
	require.NoError(t, err)
	require.Equal(t, "restored", seen)

	cookies := tr.Cookies(srv.URL)
	require.Len(t, cookies, 1)
}

func TestHTTPTransport_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil, transport.WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = tr.Post(context.Background(), srv.URL, "system.connect", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Post(ctx, srv.URL, "system.connect", nil)
	require.ErrorIs(t, err, svcerrors.ErrTransport)
}

func TestHTTPTransport_CookieAttributes(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logout":
			http.SetCookie(w, &http.Cookie{Name: "SESS", Path: "/", MaxAge: -1})
		case "/scoped/call":
			http.SetCookie(w, &http.Cookie{Name: "scoped", Value: "1", Path: "/scoped", MaxAge: 60})
		default:
			http.SetCookie(w, &http.Cookie{Name: "SESS", Value: "abc", Path: "/", Expires: expires, HttpOnly: true})
		}
		_, _ = w.Write([]byte(`{"#error":false}`))
	}))
	defer srv.Close()

	tr, err := transport.NewHTTPTransport(nil)
	require.NoError(t, err)

	_, err = tr.Post(context.Background(), srv.URL+"/services/json", "system.connect", nil)
	require.NoError(t, err)

	t.Run("path and expiry survive", func(t *testing.T) {
		cookies := tr.Cookies(srv.URL)
		require.Len(t, cookies, 1)
		require.Equal(t, "SESS", cookies[0].Name)
		require.Equal(t, "abc", cookies[0].Value)
		require.Equal(t, "/", cookies[0].Path)
		require.True(t, cookies[0].HTTPOnly)
		require.NotNil(t, cookies[0].Expires)
		require.WithinDuration(t, expires, *cookies[0].Expires, time.Second)
	})

	t.Run("restore keeps attributes", func(t *testing.T) {
		other, err := transport.NewHTTPTransport(nil)
		require.NoError(t, err)
		other.SetCookies(srv.URL, tr.Cookies(srv.URL))
		require.Equal(t, tr.Cookies(srv.URL), other.Cookies(srv.URL))
	})

	t.Run("max-age sets expiry and scopes by path", func(t *testing.T) {
		_, err := tr.Post(context.Background(), srv.URL+"/scoped/call", "system.connect", nil)
		require.NoError(t, err)
		require.Len(t, tr.Cookies(srv.URL), 1)

		scoped := tr.Cookies(srv.URL + "/scoped/other")
		require.Len(t, scoped, 2)
		require.Equal(t, "scoped", scoped[1].Name)
		require.NotNil(t, scoped[1].Expires)
		require.WithinDuration(t, time.Now().Add(time.Minute), *scoped[1].Expires, 5*time.Second)
	})

	t.Run("deleted cookie is dropped", func(t *testing.T) {
		_, err := tr.Post(context.Background(), srv.URL+"/logout", "user.logout", nil)
		require.NoError(t, err)
		require.Empty(t, tr.Cookies(srv.URL))
	})

	t.Run("empty restore clears", func(t *testing.T) {
		tr.SetCookies(srv.URL+"/scoped/x", nil)
		require.Empty(t, tr.Cookies(srv.URL+"/scoped/x"))
	})
}

func TestHTTPTransport_PostFileCancelledWhileLimited(t *testing.T) {
	tr, err := transport.NewHTTPTransport(nil, transport.WithRateLimit(1, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		_, err := tr.PostFile(ctx, "http://127.0.0.1:1/upload", "files[upload]", stringsReader("jpegbytes"), "photo.jpg")
		require.ErrorIs(t, err, svcerrors.ErrTransport)
	}
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}
