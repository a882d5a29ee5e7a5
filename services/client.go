// Package services is the client for a content site's signed JSON services endpoint.
//
// A Client owns one logical session with the site. It performs the system.connect
// handshake, signs every other call through its Transport, decodes the
// {"#error", "#data"} envelope and turns payloads into entities. Every operation
// that touches the session is serialized on a per-client lock; run independent
// Clients to get parallelism.
package services

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-services-client/envelope"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/internal/metrics"
	"github.com/jrsteele09/go-services-client/sessions"
	"github.com/jrsteele09/go-services-client/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultServicePath = "/services/json"
	DefaultUploadPath  = "/dandy/fileupload/"

	// UploadField is the multipart field the upload endpoint reads.
	UploadField = "files[upload]"
)

// Remote operation names.
const (
	OpSystemConnect        = "system.connect"
	OpUserLogin            = "user.login"
	OpUserLogout           = "user.logout"
	OpUserGet              = "user.get"
	OpUserSave             = "user.save"
	OpNodeGet              = "node.get"
	OpNodeSave             = "node.save"
	OpCommentLoad          = "comment.load"
	OpCommentSave          = "comment.save"
	OpCommentLoadNode      = "comment.loadNodeComments"
	OpViewsGet             = "views.get"
	OpTaxonomyDictionary   = "taxonomy.dictionary"
	OpFileGetDirectoryPath = "file.getDirectoryPath"
	OpFileGetUploadToken   = "file.getUploadToken"

	// metric labels for the non-RPC file calls
	opFileUpload   = "file.upload"
	opFileDownload = "file.download"
)

// ParamSessionID carries the session id on every call made with one.
const ParamSessionID = "sessid"

// categoryVocabularyID is the vocabulary GetCategoryList reads.
const categoryVocabularyID = 1

// ConnectPolicy selects when the system.connect handshake runs.
type ConnectPolicy int

const (
	// ConnectAlways handshakes before every operation.
	ConnectAlways ConnectPolicy = iota
	// ConnectOnce handshakes only until the first success.
	ConnectOnce
)

func (p ConnectPolicy) String() string {
	if p == ConnectOnce {
		return "once"
	}
	return "always"
}

// ParseConnectPolicy accepts "once" or "always"; empty means always.
func ParseConnectPolicy(s string) (ConnectPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return ConnectAlways, nil
	case "once":
		return ConnectOnce, nil
	}
	return ConnectAlways, svcerrors.Classify(svcerrors.ErrConfiguration, errors.Errorf("unknown connect policy %q", s))
}

// State of the protocol conversation. A logged out client is Disconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	}
	return "disconnected"
}

type Client struct {
	siteURL     string
	servicePath string
	uploadPath  string
	transport   transport.Transport
	policy      ConnectPolicy
	logger      zerolog.Logger
	metrics     *metrics.Registry
	nowTime     func() time.Time // injectable for testing

	lock      sync.Mutex
	session   sessions.Session
	connected bool
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

func WithConnectPolicy(p ConnectPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

func WithServicePath(path string) Option {
	return func(c *Client) {
		c.servicePath = path
	}
}

func WithUploadPath(path string) Option {
	return func(c *Client) {
		c.uploadPath = path
	}
}

// WithNowTime sets the clock used for call latency (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates a disconnected client for the site at siteURL.
func New(siteURL string, t transport.Transport, options ...Option) (*Client, error) {
	if t == nil {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.New("[services.New] transport is required"))
	}
	u, err := url.Parse(siteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, svcerrors.Classify(svcerrors.ErrConfiguration, errors.Errorf("[services.New] invalid site url %q", siteURL))
	}

	c := &Client{
		siteURL:     strings.TrimRight(siteURL, "/"),
		servicePath: DefaultServicePath,
		uploadPath:  DefaultUploadPath,
		transport:   t,
		policy:      ConnectAlways,
		logger:      log.Logger,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	if !strings.HasPrefix(c.servicePath, "/") {
		c.servicePath = "/" + c.servicePath
	}
	if !strings.HasSuffix(c.uploadPath, "/") {
		c.uploadPath += "/"
	}
	return c, nil
}

func (c *Client) SiteURL() string {
	return c.siteURL
}

func (c *Client) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stateLocked()
}

func (c *Client) stateLocked() State {
	switch {
	case c.session.IsAuthenticated():
		return StateAuthenticated
	case c.connected:
		return StateConnected
	}
	return StateDisconnected
}

// Connect performs the unsigned system.connect handshake regardless of policy and
// adopts any session id the site returns.
func (c *Client) Connect(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.connect(ctx); err != nil {
		return &FetchError{Op: OpSystemConnect, Err: err}
	}
	return nil
}

// ensureConnected applies the connect policy. Caller holds the lock.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.policy == ConnectOnce && c.connected {
		return nil
	}
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	start := c.nowTime()
	raw, err := c.transport.Post(ctx, c.endpoint(), OpSystemConnect, nil)
	if err != nil {
		c.record(OpSystemConnect, err, start)
		return err
	}
	data, err := envelope.Decode(raw)
	c.record(OpSystemConnect, err, start)
	if err != nil {
		return err
	}

	// anonymous sites may not hand out a session id
	if c.session.AdoptFrom(data) {
		c.metrics.IncSessions()
	}
	c.connected = true
	c.logger.Debug().Str("sessid", c.session.ID).Str("policy", c.policy.String()).Msg("connected")
	return nil
}

// call signs and sends operation and returns the decoded #data. The session id is
// attached when one exists. Caller holds the lock and has connected.
func (c *Client) call(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	if c.session.HasID() {
		params[ParamSessionID] = c.session.ID
	}

	start := c.nowTime()
	raw, err := c.transport.PostSigned(ctx, c.endpoint(), operation, params)
	if err != nil {
		c.record(operation, err, start)
		return nil, err
	}
	data, err := envelope.Decode(raw)
	c.record(operation, err, start)
	if err != nil {
		c.logger.Debug().Err(err).Str("operation", operation).Msg("services call failed")
		return nil, err
	}
	c.logger.Debug().Str("operation", operation).Int("bytes", len(raw)).Msg("services call")
	return data, nil
}

// connectAndCall is the common path for data operations.
func (c *Client) connectAndCall(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return c.call(ctx, operation, params)
}

func (c *Client) endpoint() string {
	return c.siteURL + c.servicePath
}

func (c *Client) record(operation string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCall(operation, outcome(err), c.nowTime().Sub(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case svcerrors.Is(err, svcerrors.ErrRemote):
		return metrics.OutcomeRemoteError
	case svcerrors.Is(err, svcerrors.ErrTransport):
		return metrics.OutcomeTransportError
	}
	return metrics.OutcomeInvalid
}
