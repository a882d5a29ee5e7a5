package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/pkg/errors"
)

const sealIssuer = "services-client"

// Sealer signs snapshots as HS256 JWTs so a persisted session cannot be edited
// (for example to swap the session id or user) without the key.
type Sealer struct {
	secret  []byte
	nowTime func() time.Time
}

type stateClaims struct {
	State State `json:"state"`
	jwt.RegisteredClaims
}

// NewSealer creates a new sealer with the given secret
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.New("[NewSealer] secret is required"))
	}
	return &Sealer{secret: []byte(secret), nowTime: time.Now}, nil
}

func (s *Sealer) Seal(state State) (string, error) {
	claims := stateClaims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   sealIssuer,
			IssuedAt: jwt.NewNumericDate(s.nowTime()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", svcerrors.Classify(svcerrors.ErrCrypto, errors.Wrap(err, "failed to seal session state"))
	}
	return signed, nil
}

func (s *Sealer) Open(sealed string) (State, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(sealed, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sealIssuer),
	)
	if err != nil {
		return State{}, svcerrors.Classify(svcerrors.ErrSessionTampered, err)
	}
	if claims.State.Version != StateVersion {
		return State{}, errors.Errorf("[Sealer.Open] unsupported state version %d", claims.State.Version)
	}
	return claims.State, nil
}
