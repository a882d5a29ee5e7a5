package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"
	"sync"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
)

// Signer computes the per-request authentication token sent as the "hash" parameter.
type Signer interface {
	// Sign returns the signature for the exact (timestamp, domain, nonce, operation) tuple.
	Sign(timestampMillis int64, nonce, operation string) (string, error)

	// Domain returns the domain identifier the signer was configured with
	Domain() string
}

// HMACSigner implements Signer using HMAC-SHA256 keyed with the site's API key.
// Request parameters are not covered by the signature; the remote protocol only
// authenticates the timestamp, domain, nonce and operation name.
type HMACSigner struct {
	secret string
	domain string

	once    sync.Once
	key     []byte
	keyErr  error
	newHash func() hash.Hash
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner creates a new HMAC signer. The key is derived on first use.
func NewHMACSigner(secret, domain string) *HMACSigner {
	return &HMACSigner{
		secret:  secret,
		domain:  domain,
		newHash: sha256.New,
	}
}

func (s *HMACSigner) Domain() string {
	return s.domain
}

func (s *HMACSigner) Sign(timestampMillis int64, nonce, operation string) (string, error) {
	if s.domain == "" {
		return "", svcerrors.Classify(svcerrors.ErrConfiguration, svcerrors.ErrMissingDomain)
	}
	key, err := s.derivedKey()
	if err != nil {
		return "", err
	}

	mac := hmac.New(s.newHash, key)
	mac.Write(toASCII(CanonicalMessage(timestampMillis, s.domain, nonce, operation)))
	return EncodeHex(mac.Sum(nil)), nil
}

func (s *HMACSigner) derivedKey() ([]byte, error) {
	s.once.Do(func() {
		if s.secret == "" {
			s.keyErr = svcerrors.Classify(svcerrors.ErrConfiguration, svcerrors.ErrMissingSecret)
			return
		}
		s.key = toASCII(s.secret)
	})
	return s.key, s.keyErr
}

// CanonicalMessage joins the signed fields with ';' in wire order.
func CanonicalMessage(timestampMillis int64, domain, nonce, operation string) string {
	return strings.Join([]string{
		strconv.FormatInt(timestampMillis, 10),
		domain,
		nonce,
		operation,
	}, ";")
}

// EncodeHex renders b as lowercase hex, always two digits per byte.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// toASCII encodes s as 7-bit ASCII, replacing anything outside the range with '?'.
func toASCII(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0x7f {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}

// Verify recomputes the signature for the tuple and compares it in constant time.
func Verify(s Signer, timestampMillis int64, nonce, operation, signature string) (bool, error) {
	expected, err := s.Sign(timestampMillis, nonce, operation)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))), nil
}
