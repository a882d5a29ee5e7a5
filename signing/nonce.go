package signing

import (
	"github.com/google/uuid"
)

// NonceGenerator produces a fresh opaque token for every outgoing request.
type NonceGenerator interface {
	Next() string
}

// UUIDNonces draws 128 bits from a random UUID (crypto/rand backed) and renders
// them as 32 lowercase hex characters.
type UUIDNonces struct{}

var _ NonceGenerator = UUIDNonces{}

func (UUIDNonces) Next() string {
	id := uuid.New()
	return EncodeHex(id[:])
}

// NonceFunc adapts a plain function to NonceGenerator.
type NonceFunc func() string

func (f NonceFunc) Next() string {
	return f()
}
