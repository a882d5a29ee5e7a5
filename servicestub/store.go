package servicestub

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/go-services-client/entities"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists  = errors.New("name is already taken")
	errNotFound    = errors.New("not found")
	errBadPassword = errors.New("wrong username or password")
)

// Store is the stub site's content. It is safe for concurrent use.
type Store struct {
	lock sync.RWMutex

	users     map[int]*account
	names     map[string]int
	nodes     map[int]*entities.Node
	comments  map[int]*entities.Comment
	terms     map[int]*entities.TaxonomyTerm
	nodeViews map[string][]int
	termViews map[string][]int
	files     map[string]*storedFile
	fileDir   string

	nextUID, nextNID, nextCID, nextFID int
}

type account struct {
	user         entities.User
	passwordHash string
}

type storedFile struct {
	meta     entities.File
	contents []byte
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int]*account),
		names:     make(map[string]int),
		nodes:     make(map[int]*entities.Node),
		comments:  make(map[int]*entities.Comment),
		terms:     make(map[int]*entities.TaxonomyTerm),
		nodeViews: make(map[string][]int),
		termViews: make(map[string][]int),
		files:     make(map[string]*storedFile),
		fileDir:   "sites/default/files",
		nextUID:   1,
		nextNID:   1,
		nextCID:   1,
		nextFID:   1,
	}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// AddUser registers an active account and returns its uid.
func (s *Store) AddUser(name, password, mail string) (int, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	key := strings.ToLower(name)
	if _, ok := s.names[key]; ok {
		return 0, errUserExists
	}
	uid := s.nextUID
	s.nextUID++
	s.users[uid] = &account{
		user: entities.User{
			UID:    entities.Int(uid),
			Name:   name,
			Mail:   mail,
			Status: true,
			Roles:  entities.PHPMap[string]{"2": "authenticated user"},
		},
		passwordHash: hash,
	}
	s.names[key] = uid
	return uid, nil
}

// Authenticate checks name and password and returns a copy of the account.
func (s *Store) Authenticate(name, password string) (*entities.User, error) {
	s.lock.RLock()
	uid, ok := s.names[strings.ToLower(name)]
	var acct *account
	if ok {
		acct = s.users[uid]
	}
	s.lock.RUnlock()

	if acct == nil || !checkPasswordHash(password, acct.passwordHash) {
		return nil, errBadPassword
	}
	u := acct.user
	return &u, nil
}

// User returns a copy of account uid without credentials.
func (s *Store) User(uid int) (*entities.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	acct, ok := s.users[uid]
	if !ok {
		return nil, errNotFound
	}
	u := acct.user
	return &u, nil
}

// SaveNode stores n, assigning a nid when it has none, and returns the nid.
func (s *Store) SaveNode(n *entities.Node) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	if n.NID == 0 {
		n.NID = entities.Int(s.nextNID)
		s.nextNID++
	} else if int(n.NID) >= s.nextNID {
		s.nextNID = int(n.NID) + 1
	}
	cp := *n
	s.nodes[int(n.NID)] = &cp
	return int(n.NID)
}

func (s *Store) Node(nid int) (*entities.Node, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	n, ok := s.nodes[nid]
	if !ok {
		return nil, errNotFound
	}
	cp := *n
	return &cp, nil
}

// SaveComment stores c, assigning a cid when it has none, and returns the cid.
func (s *Store) SaveComment(c *entities.Comment) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.nodes[int(c.NID)]; !ok {
		return 0, errNotFound
	}
	if c.CID == 0 {
		c.CID = entities.Int(s.nextCID)
		s.nextCID++
	} else if int(c.CID) >= s.nextCID {
		s.nextCID = int(c.CID) + 1
	}
	cp := *c
	s.comments[int(c.CID)] = &cp
	if n := s.nodes[int(c.NID)]; n != nil {
		n.CommentCount = entities.Int(s.countComments(int(c.NID)))
	}
	return int(c.CID), nil
}

func (s *Store) countComments(nid int) int {
	n := 0
	for _, c := range s.comments {
		if int(c.NID) == nid {
			n++
		}
	}
	return n
}

func (s *Store) Comment(cid int) (*entities.Comment, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	c, ok := s.comments[cid]
	if !ok {
		return nil, errNotFound
	}
	cp := *c
	return &cp, nil
}

// NodeComments lists a node's comments in cid order.
func (s *Store) NodeComments(nid int) []*entities.Comment {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := []*entities.Comment{}
	for _, c := range s.comments {
		if int(c.NID) == nid {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out
}

func (s *Store) AddTerm(t entities.TaxonomyTerm) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.terms[int(t.TID)] = &t
}

// Vocabulary lists the terms of vid by weight, then name.
func (s *Store) Vocabulary(vid int) []*entities.TaxonomyTerm {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := []*entities.TaxonomyTerm{}
	for _, t := range s.terms {
		if int(t.VID) == vid {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight < out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AddNodeView defines a view returning the given nodes in order.
func (s *Store) AddNodeView(name string, nids ...int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.nodeViews[name] = append([]int(nil), nids...)
}

func (s *Store) AddTermView(name string, tids ...int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.termViews[name] = append([]int(nil), tids...)
}

// View returns the rows of a view, either nodes or terms. ok is false for an
// unknown view.
func (s *Store) View(name string) (rows []any, ok bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if nids, found := s.nodeViews[name]; found {
		rows = []any{}
		for _, nid := range nids {
			if n, exists := s.nodes[nid]; exists {
				cp := *n
				rows = append(rows, &cp)
			}
		}
		return rows, true
	}
	if tids, found := s.termViews[name]; found {
		rows = []any{}
		for _, tid := range tids {
			if t, exists := s.terms[tid]; exists {
				cp := *t
				rows = append(rows, &cp)
			}
		}
		return rows, true
	}
	return nil, false
}

func (s *Store) FileDirectory() string {
	return s.fileDir
}

// SaveFile stores contents under the files directory and returns its record.
func (s *Store) SaveFile(uid int, filename, mime string, contents []byte, now int64) entities.File {
	s.lock.Lock()
	defer s.lock.Unlock()

	name := path.Base(filename)
	f := entities.File{
		FID:       entities.Int(s.nextFID),
		UID:       entities.Int(uid),
		Filename:  name,
		Filepath:  path.Join(s.fileDir, name),
		Filemime:  mime,
		Filesize:  entities.Int(len(contents)),
		Status:    1,
		Timestamp: entities.UnixTime(now),
	}
	s.nextFID++
	s.files[f.Filepath] = &storedFile{meta: f, contents: append([]byte(nil), contents...)}
	return f
}

// FileContents returns the bytes stored at a path relative to the site root.
func (s *Store) FileContents(filepath string) ([]byte, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	f, ok := s.files[strings.TrimPrefix(filepath, "/")]
	if !ok {
		return nil, false
	}
	return f.contents, true
}
