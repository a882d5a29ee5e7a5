package servicestub

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-services-client/signing"
)

var (
	errMissingSignature = errors.New("Missing required arguments.")
	errBadSignature     = errors.New("Invalid API key.")
	errReplayedNonce    = errors.New("Token has been used previously for a request. Re-try with another nonce key.")
	errStaleTimestamp   = errors.New("Token has expired.")
	errBadSession       = errors.New("Invalid sessid.")
)

type session struct {
	id     string
	uid    int
	tokens map[string]bool // unused upload tokens
}

func (s *session) authenticated() bool {
	return s != nil && s.uid != 0
}

func newSessionID() string {
	id := uuid.New()
	return signing.EncodeHex(id[:])
}

// newSession registers a session and sets its cookie on w.
func (s *Server) newSession(w http.ResponseWriter, uid int) *session {
	sess := &session{id: newSessionID(), uid: uid, tokens: make(map[string]bool)}

	s.lock.Lock()
	s.sessions[sess.id] = sess
	s.lock.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sess.id, Path: "/", HttpOnly: true})
	s.metrics.IncSessions()
	return sess
}

func (s *Server) endSession(w http.ResponseWriter, sess *session) {
	s.lock.Lock()
	delete(s.sessions, sess.id)
	s.lock.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
}

// lookupSession resolves the caller's session from the sessid parameter, falling
// back to the session cookie. A nil session with a nil error is an anonymous caller.
func (s *Server) lookupSession(r *http.Request) (*session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if id := r.PostForm.Get("sessid"); id != "" {
		sess, ok := s.sessions[id]
		if !ok {
			return nil, errBadSession
		}
		return sess, nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return s.sessions[c.Value], nil
	}
	return nil, nil
}

// verifySignature checks hash, timestamp and nonce for operation and burns the nonce.
func (s *Server) verifySignature(r *http.Request, operation string) error {
	hash := r.PostForm.Get(signing.ParamHash)
	nonce := r.PostForm.Get(signing.ParamNonce)
	tsText := r.PostForm.Get(signing.ParamTimestamp)
	if hash == "" || nonce == "" || tsText == "" {
		return errMissingSignature
	}
	ts, err := strconv.ParseInt(tsText, 10, 64)
	if err != nil {
		return errMissingSignature
	}

	now := s.nowTime()
	if s.maxSkew > 0 {
		skew := now.Sub(time.UnixMilli(ts))
		if skew > s.maxSkew || skew < -s.maxSkew {
			return errStaleTimestamp
		}
	}

	ok, err := signing.Verify(s.signer, ts, nonce, operation, hash)
	if err != nil || !ok {
		return errBadSignature
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.expireNonces(now)
	if _, seen := s.nonces[nonce]; seen {
		return errReplayedNonce
	}
	s.nonces[nonce] = now
	return nil
}

// expireNonces forgets nonces older than the skew window; their timestamps would
// be rejected anyway. Caller holds the lock.
func (s *Server) expireNonces(now time.Time) {
	if s.maxSkew <= 0 {
		return
	}
	for n, seen := range s.nonces {
		if now.Sub(seen) > 2*s.maxSkew {
			delete(s.nonces, n)
		}
	}
}
