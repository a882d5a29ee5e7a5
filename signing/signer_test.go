package signing_test

import (
	"regexp"
	"sync"
	"testing"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "5ecret"
	testDomain    = "mobile.example.com"
	testTimestamp = int64(1287070033000)
	testNonce     = "abc123"
)

var hexDigest = regexp.MustCompile(`^([0-9a-f]{2})+$`)

func TestHMACSigner_Sign(t *testing.T) {
	s := signing.NewHMACSigner(testSecret, testDomain)

	t.Run("known vector", func(t *testing.T) {
		sig, err := s.Sign(testTimestamp, testNonce, "node.get")
		require.NoError(t, err)
		require.Equal(t, "d85b867149ca39a9c112be3e3abbdad5e84afeb138ec5cc08825c35fa67740a9", sig)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := s.Sign(testTimestamp, testNonce, "user.login")
		require.NoError(t, err)
		second, err := s.Sign(testTimestamp, testNonce, "user.login")
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("two hex digits per byte", func(t *testing.T) {
		for ts := int64(0); ts < 200; ts++ {
			sig, err := s.Sign(ts, testNonce, "views.get")
			require.NoError(t, err)
			require.Len(t, sig, 64)
			require.Regexp(t, hexDigest, sig)
		}
	})

	t.Run("each tuple field changes the signature", func(t *testing.T) {
		base, err := s.Sign(testTimestamp, testNonce, "node.get")
		require.NoError(t, err)

		other, err := s.Sign(testTimestamp+1, testNonce, "node.get")
		require.NoError(t, err)
		require.NotEqual(t, base, other)

		other, err = s.Sign(testTimestamp, "abc124", "node.get")
		require.NoError(t, err)
		require.NotEqual(t, base, other)

		other, err = s.Sign(testTimestamp, testNonce, "node.save")
		require.NoError(t, err)
		require.NotEqual(t, base, other)

		other, err = signing.NewHMACSigner(testSecret, "other.example.com").Sign(testTimestamp, testNonce, "node.get")
		require.NoError(t, err)
		require.NotEqual(t, base, other)
	})
}

func TestHMACSigner_NonASCIISecret(t *testing.T) {
	sig, err := signing.NewHMACSigner("kéy", "d").Sign(1, "n", "op")
	require.NoError(t, err)
	require.Equal(t, "c082067a0d22f6b176149ddc2ec5e0e7641dcf519dd77c0a6603030ce2f18a56", sig)
}

func TestHMACSigner_Misconfigured(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := signing.NewHMACSigner("", testDomain).Sign(testTimestamp, testNonce, "node.get")
		require.Error(t, err)
		require.ErrorIs(t, err, svcerrors.ErrConfiguration)
		require.ErrorIs(t, err, svcerrors.ErrMissingSecret)
	})

	t.Run("missing domain", func(t *testing.T) {
		_, err := signing.NewHMACSigner(testSecret, "").Sign(testTimestamp, testNonce, "node.get")
		require.Error(t, err)
		require.ErrorIs(t, err, svcerrors.ErrConfiguration)
		require.ErrorIs(t, err, svcerrors.ErrMissingDomain)
	})
}

func TestHMACSigner_Concurrent(t *testing.T) {
	s := signing.NewHMACSigner(testSecret, testDomain)
	want, err := signing.NewHMACSigner(testSecret, testDomain).Sign(testTimestamp, testNonce, "node.get")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Sign(testTimestamp, testNonce, "node.get")
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestEncodeHex(t *testing.T) {
	require.Equal(t, "00", signing.EncodeHex([]byte{0x00}))
	require.Equal(t, "0f", signing.EncodeHex([]byte{0x0f}))
	require.Equal(t, "ff", signing.EncodeHex([]byte{0xff}))
	require.Equal(t, "000f10ff", signing.EncodeHex([]byte{0x00, 0x0f, 0x10, 0xff}))
}

func TestCanonicalMessage(t *testing.T) {
	require.Equal(t,
		"1287070033000;mobile.example.com;abc123;node.get",
		signing.CanonicalMessage(testTimestamp, testDomain, testNonce, "node.get"))
}

func TestVerify(t *testing.T) {
	s := signing.NewHMACSigner(testSecret, testDomain)
	sig, err := s.Sign(testTimestamp, testNonce, "node.get")
	require.NoError(t, err)

	ok, err := signing.Verify(s, testTimestamp, testNonce, "node.get", sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = signing.Verify(s, testTimestamp, testNonce, "node.save", sig)
	require.NoError(t, err)
	require.False(t, ok)
}
