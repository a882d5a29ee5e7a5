package servicestub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/envelope"
	"github.com/jrsteele09/go-services-client/internal/metrics"
	"github.com/jrsteele09/go-services-client/transport"
)

const (
	uploadField       = "files[upload]"
	uploadRejected    = "0"
	maxUploadMemory   = 32 << 20
	defaultVocabulary = 1
)

// nestedError is answered with a false top-level #error and the message inside #data.
type nestedError struct {
	message string
}

func (e nestedError) Error() string {
	return e.message
}

var errAccessDenied = nestedError{message: "Access denied"}

type opHandler struct {
	signed bool
	fn     func(w http.ResponseWriter, r *http.Request, sess *session) (any, error)
}

func (s *Server) operationHandlers() map[string]opHandler {
	return map[string]opHandler{
		"system.connect":           {signed: false, fn: s.connect},
		"user.login":               {signed: true, fn: s.login},
		"user.logout":              {signed: true, fn: s.logout},
		"user.get":                 {signed: true, fn: s.getUser},
		"user.save":                {signed: true, fn: s.saveUser},
		"node.get":                 {signed: true, fn: s.getNode},
		"node.save":                {signed: true, fn: s.saveNode},
		"comment.load":             {signed: true, fn: s.getComment},
		"comment.save":             {signed: true, fn: s.saveComment},
		"comment.loadNodeComments": {signed: true, fn: s.nodeComments},
		"views.get":                {signed: true, fn: s.getView},
		"taxonomy.dictionary":      {signed: true, fn: s.dictionary},
		"file.getDirectoryPath":    {signed: true, fn: s.fileDirectory},
		"file.getUploadToken":      {signed: true, fn: s.uploadToken},
	}
}

// ServicesHandler dispatches on the "method" form field.
func (s *Server) ServicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.nowTime()
		if err := r.ParseForm(); err != nil {
			s.reply(w, "", start, nil, errMissingSignature)
			return
		}
		op := r.PostForm.Get(transport.ParamMethod)
		h, ok := s.handlers[op]
		if !ok {
			s.reply(w, op, start, nil, fmt.Errorf("Invalid method %s", op))
			return
		}
		if h.signed {
			if err := s.verifySignature(r, op); err != nil {
				s.logger.Debug().Err(err).Str("operation", op).Msg("rejected signature")
				s.reply(w, op, start, nil, err)
				return
			}
		}
		sess, err := s.lookupSession(r)
		if err != nil {
			s.reply(w, op, start, nil, err)
			return
		}
		data, err := h.fn(w, r, sess)
		s.reply(w, op, start, data, err)
	}
}

func (s *Server) reply(w http.ResponseWriter, op string, start time.Time, data any, err error) {
	var (
		body    []byte
		encErr  error
		outcome = metrics.OutcomeOK
	)
	var nested nestedError
	switch {
	case errors.As(err, &nested):
		body, encErr = envelope.EncodeNestedError(nested.message)
		outcome = metrics.OutcomeRemoteError
	case err != nil:
		body, encErr = envelope.EncodeError(err.Error())
		outcome = metrics.OutcomeRemoteError
	default:
		body, encErr = envelope.Encode(data)
	}
	if encErr != nil {
		s.logger.Error().Err(encErr).Str("operation", op).Msg("failed to encode reply")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		outcome = metrics.OutcomeInvalid
	} else {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
	s.metrics.RecordCall(op, outcome, s.nowTime().Sub(start))
}

func formInt(r *http.Request, name string) (int, error) {
	v := r.PostForm.Get(name)
	if v == "" {
		return 0, errMissingSignature
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s.", name)
	}
	return n, nil
}

// optionalInt returns 0 when name is absent.
func optionalInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.PostForm.Get(name))
	return n
}

func (s *Server) sessionUser(sess *session) *entities.User {
	if sess.authenticated() {
		if u, err := s.store.User(sess.uid); err == nil {
			return u
		}
	}
	return &entities.User{Roles: entities.PHPMap[string]{"1": "anonymous user"}}
}

func (s *Server) connect(w http.ResponseWriter, _ *http.Request, sess *session) (any, error) {
	if sess == nil {
		sess = s.newSession(w, 0)
	}
	return map[string]any{"sessid": sess.id, "user": s.sessionUser(sess)}, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, sess *session) (any, error) {
	if sess.authenticated() {
		return nil, fmt.Errorf("Already logged in as %s.", s.sessionUser(sess).Name)
	}
	user, err := s.store.Authenticate(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		return nil, errors.New("Wrong username or password.")
	}
	if sess != nil {
		s.endSession(w, sess)
	}
	fresh := s.newSession(w, int(user.UID))
	return map[string]any{"sessid": fresh.id, "user": user}, nil
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request, sess *session) (any, error) {
	if !sess.authenticated() {
		return nil, errors.New("User is not logged in.")
	}
	s.endSession(w, sess)
	return true, nil
}

func (s *Server) getUser(_ http.ResponseWriter, r *http.Request, _ *session) (any, error) {
	uid, err := formInt(r, "uid")
	if err != nil {
		return nil, err
	}
	user, err := s.store.User(uid)
	if err != nil {
		return nil, errors.New("There is no user with such ID.")
	}
	return user, nil
}

func (s *Server) saveUser(_ http.ResponseWriter, r *http.Request, sess *session) (any, error) {
	var account entities.User
	if err := json.Unmarshal([]byte(r.PostForm.Get("account")), &account); err != nil {
		return nil, errors.New("Invalid account.")
	}
	if account.UID != 0 {
		// updates are limited to the caller's own account, which the stub does not support
		return nil, errAccessDenied
	}
	if account.Name == "" || account.Pass == "" {
		return nil, errMissingSignature
	}
	uid, err := s.store.AddUser(account.Name, account.Pass, account.Mail)
	if err != nil {
		return nil, fmt.Errorf("The name %s is already taken.", account.Name)
	}
	s.logger.Debug().Str("name", account.Name).Int("uid", uid).Bool("by_user", sess.authenticated()).Msg("account created")
	return uid, nil
}

func (s *Server) getNode(_ http.ResponseWriter, r *http.Request, sess *session) (any, error) {
	nid, err := formInt(r, "nid")
	if err != nil {
		return nil, err
	}
	node, err := s.store.Node(nid)
	if err != nil {
		return nil, errors.New("Could not find the node.")
	}
	if !node.Status && !sess.authenticated() {
		return nil, errAccessDenied
	}
	return node, nil
}

func (s *Server) saveNode(_ http.ResponseWriter, r *http.Request, sess *session) (any, error) {
	if !sess.authenticated() {
		return nil, errAccessDenied
	}
	var node entities.Node
	if err := json.Unmarshal([]byte(r.PostForm.Get("node")), &node); err != nil {
		return nil, errors.New("Invalid node.")
	}
	if node.Title == "" || node.Type == "" {
		return nil, errors.New("Title and type are required.")
	}
	now := entities.NewUnixTime(s.nowTime())
	if node.UID == 0 {
		node.UID = entities.Int(sess.uid)
	}
	if node.Created == 0 {
		node.Created = now
	}
	node.Changed = now
	return s.store.SaveNode(&node), nil
}

func (s *Server) getComment(_ http.ResponseWriter, r *http.Request, _ *session) (any, error) {
	cid, err := formInt(r, "cid")
	if err != nil {
		return nil, err
	}
	comment, err := s.store.Comment(cid)
	if err != nil {
		return nil, errors.New("Could not find the comment.")
	}
	return comment, nil
}

func (s *Server) saveComment(_ http.ResponseWriter, r *http.Request, sess *session) (any, error) {
	if !sess.authenticated() {
		return nil, errAccessDenied
	}
	var comment entities.Comment
	if err := json.Unmarshal([]byte(r.PostForm.Get("comment")), &comment); err != nil {
		return nil, errors.New("Invalid comment.")
	}
	if comment.UID == 0 {
		comment.UID = entities.Int(sess.uid)
	}
	comment.Timestamp = entities.NewUnixTime(s.nowTime())
	cid, err := s.store.SaveComment(&comment)
	if err != nil {
		return nil, errors.New("Could not find the node.")
	}
	return cid, nil
}

func (s *Server) nodeComments(_ http.ResponseWriter, r *http.Request, _ *session) (any, error) {
	nid, err := formInt(r, "nid")
	if err != nil {
		return nil, err
	}
	return page(s.store.NodeComments(nid), optionalInt(r, "start"), optionalInt(r, "count")), nil
}

func (s *Server) getView(_ http.ResponseWriter, r *http.Request, _ *session) (any, error) {
	rows, ok := s.store.View(r.PostForm.Get("view_name"))
	if !ok {
		return nil, errors.New("View does not exist.")
	}
	return page(rows, optionalInt(r, "offset"), optionalInt(r, "limit")), nil
}

func (s *Server) dictionary(_ http.ResponseWriter, r *http.Request, _ *session) (any, error) {
	vid := optionalInt(r, "vid")
	if vid == 0 {
		vid = defaultVocabulary
	}
	return s.store.Vocabulary(vid), nil
}

func (s *Server) fileDirectory(_ http.ResponseWriter, _ *http.Request, _ *session) (any, error) {
	return s.store.FileDirectory(), nil
}

func (s *Server) uploadToken(_ http.ResponseWriter, _ *http.Request, sess *session) (any, error) {
	if !sess.authenticated() {
		return nil, errAccessDenied
	}
	token := newSessionID()

	s.lock.Lock()
	sess.tokens[token] = true
	s.lock.Unlock()
	return token, nil
}

// page applies all-or-nothing pagination: rows are sliced only when count is positive.
func page[T any](rows []T, offset, count int) []T {
	if count <= 0 {
		return rows
	}
	if offset < 0 || offset >= len(rows) {
		return rows[:0]
	}
	end := offset + count
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// consumeToken finds the session that owns an upload token and burns it.
func (s *Server) consumeToken(token string) (*session, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, sess := range s.sessions {
		if sess.tokens[token] {
			delete(sess.tokens, token)
			return sess, true
		}
	}
	return nil, false
}

// UploadHandler accepts a multipart file for a token from file.getUploadToken.
// Rejections are answered with a bare "0".
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.nowTime()
		reject := func(reason string) {
			s.logger.Debug().Str("reason", reason).Msg("upload rejected")
			_, _ = io.WriteString(w, uploadRejected)
			s.metrics.RecordCall("file.upload", metrics.OutcomeRemoteError, s.nowTime().Sub(start))
		}

		sess, ok := s.consumeToken(r.PathValue("token"))
		if !ok {
			reject("unknown token")
			return
		}
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			reject(err.Error())
			return
		}
		f, hdr, err := r.FormFile(uploadField)
		if err != nil {
			reject(err.Error())
			return
		}
		defer f.Close()

		contents, err := io.ReadAll(f)
		if err != nil {
			reject(err.Error())
			return
		}
		mime := hdr.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = http.DetectContentType(contents)
		}
		file := s.store.SaveFile(sess.uid, hdr.Filename, mime, contents, s.nowTime().Unix())
		s.metrics.AddUploadBytes(int64(len(contents)))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(file)
		s.metrics.RecordCall("file.upload", metrics.OutcomeOK, s.nowTime().Sub(start))
	}
}

// FileHandler serves uploaded files by their path relative to the site root.
func (s *Server) FileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contents, ok := s.store.FileContents(r.PathValue("filepath"))
		if !ok {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(contents))
		_, _ = w.Write(contents)
	}
}
