package signing

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Parameter names added to every signed call.
const (
	ParamHash      = "hash"
	ParamTimestamp = "timestamp"
	ParamNonce     = "nonce"
)

// SignedRequest is built fresh for every call and never reused.
type SignedRequest struct {
	Operation       string
	Parameters      map[string]any // caller parameters plus hash, timestamp and nonce
	TimestampMillis int64
	Nonce           string
	Signature       string
}

// Interceptor attaches signature fields to outgoing parameter sets.
type Interceptor struct {
	signer  Signer
	nonces  NonceGenerator
	nowTime func() time.Time // injectable for testing
}

// InterceptorOption defines a function type to modify the Interceptor instance.
type InterceptorOption func(*Interceptor)

// WithNowTime sets the clock used for request timestamps (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InterceptorOption {
	return func(i *Interceptor) {
		i.nowTime = nowFunc
	}
}

// WithNonceGenerator replaces the default UUID nonce source
func WithNonceGenerator(g NonceGenerator) InterceptorOption {
	return func(i *Interceptor) {
		i.nonces = g
	}
}

func NewInterceptor(signer Signer, options ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		signer:  signer,
		nonces:  UUIDNonces{},
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Sign returns a SignedRequest whose Parameters are a copy of params with the
// signature fields added. params itself is not modified.
func (i *Interceptor) Sign(operation string, params map[string]any) (*SignedRequest, error) {
	if i.signer == nil {
		return nil, errors.New("[Interceptor.Sign] signer is required")
	}

	timestamp := i.nowTime().UnixMilli()
	nonce := i.nonces.Next()
	signature, err := i.signer.Sign(timestamp, nonce, operation)
	if err != nil {
		return nil, errors.Wrapf(err, "[Interceptor.Sign] signing %s", operation)
	}

	signed := make(map[string]any, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed[ParamHash] = signature
	signed[ParamTimestamp] = strconv.FormatInt(timestamp, 10)
	signed[ParamNonce] = nonce

	return &SignedRequest{
		Operation:       operation,
		Parameters:      signed,
		TimestampMillis: timestamp,
		Nonce:           nonce,
		Signature:       signature,
	}, nil
}
