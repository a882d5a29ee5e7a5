// Package command provides the servicesctl command definitions.
//
// Every invocation resumes the session saved under the configured state key,
// runs one operation against the site and saves the session again, so a login
// in one invocation carries over to the next.
package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-services-client/internal/config"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/internal/output"
	"github.com/jrsteele09/go-services-client/services"
	"github.com/jrsteele09/go-services-client/sessions"
	filestaterepo "github.com/jrsteele09/go-services-client/sessions/repofile"
	redisstaterepo "github.com/jrsteele09/go-services-client/sessions/reporedis"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/jrsteele09/go-services-client/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// Version is set via ldflags.
var Version = "dev"

const envMetadataKey = "env"

// env is the per-invocation state shared by commands.
type env struct {
	client    *services.Client
	repo      sessions.Repo // nil when snapshots cannot be sealed
	stateKey  string
	formatter output.Formatter
	stdout    io.Writer
	logger    zerolog.Logger
}

func (e *env) print(data any) error {
	return e.formatter.Format(e.stdout, data)
}

// App creates the CLI application writing results to stdout and logs to stderr.
func App(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "servicesctl",
		Usage:     "Call a site's signed JSON services endpoint",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Before:    setup,
		After:     teardown,
		Commands: []*cli.Command{
			connectCommand(),
			loginCommand(),
			logoutCommand(),
			stateCommand(),
			nodeCommand(),
			commentCommand(),
			viewCommand(),
			categoriesCommand(),
			userCommand(),
			registerCommand(),
			fileCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{"SERVICES_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "site",
			Usage: "Site base URL, overrides the config file",
		},
		&cli.StringFlag{
			Name:  "state-key",
			Usage: "Name the session is saved under",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: json, yaml",
			Value:   string(output.FormatJSON),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("site") {
		cfg.SiteURL = c.String("site")
	}
	if c.IsSet("state-key") {
		cfg.State.Key = c.String("state-key")
	}

	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	logger := newLogger(c.App.ErrWriter, cfg.GetLogLevel(), c.Bool("verbose"))

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	e := &env{
		client:    client,
		stateKey:  cfg.GetStateKey(),
		formatter: output.NewFormatter(format),
		stdout:    c.App.Writer,
		logger:    logger,
	}

	e.repo, err = newStateRepo(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("session persistence disabled")
	} else if err := e.resume(c); err != nil {
		return err
	}
	c.App.Metadata[envMetadataKey] = e
	return nil
}

func (e *env) resume(c *cli.Context) error {
	resumed, err := e.client.Resume(c.Context, e.repo, e.stateKey)
	if svcerrors.Is(err, svcerrors.ErrSessionTampered) {
		e.logger.Warn().Str("key", e.stateKey).Msg("saved session failed verification, starting fresh")
		return nil
	}
	if err != nil {
		return err
	}
	e.logger.Debug().Bool("resumed", resumed).Str("key", e.stateKey).Msg("session loaded")
	return nil
}

// teardown saves the session, or removes the snapshot once the session is gone.
func teardown(c *cli.Context) error {
	e := getEnv(c)
	if e == nil || e.repo == nil {
		return nil
	}
	if e.client.SessionID() == "" {
		return e.repo.Delete(c.Context, e.stateKey)
	}
	return e.client.Persist(c.Context, e.repo, e.stateKey)
}

func getEnv(c *cli.Context) *env {
	if e, ok := c.App.Metadata[envMetadataKey].(*env); ok {
		return e
	}
	return nil
}

func newLogger(w io.Writer, level string, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(lvl).With().Timestamp().Logger()
}

func newClient(cfg *config.FileConfig, logger zerolog.Logger) (*services.Client, error) {
	policy, err := services.ParseConnectPolicy(cfg.GetConnectPolicy())
	if err != nil {
		return nil, err
	}

	interceptor := signing.NewInterceptor(signing.NewHMACSigner(cfg.GetAPIKey(), cfg.GetDomain()))
	tr, err := transport.NewHTTPTransport(interceptor,
		transport.WithTimeout(cfg.GetRequestTimeout()),
		transport.WithRateLimit(cfg.GetRateLimit(), cfg.GetRateBurst()),
		transport.WithLogger(logger),
		transport.WithUserAgent("servicesctl/"+Version),
	)
	if err != nil {
		return nil, err
	}

	return services.New(cfg.GetSiteURL(), tr,
		services.WithConnectPolicy(policy),
		services.WithLogger(logger),
		services.WithServicePath(cfg.GetServicePath()),
		services.WithUploadPath(cfg.GetUploadPath()),
	)
}

// newStateRepo stores snapshots in redis when an address is configured and in
// the state directory otherwise.
func newStateRepo(cfg *config.FileConfig) (sessions.Repo, error) {
	sealer, err := sessions.NewSealer(cfg.GetSealSecret())
	if err != nil {
		return nil, err
	}
	if addr := cfg.GetRedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return redisstaterepo.NewRedisStateRepo(rdb, sealer), nil
	}
	if cfg.GetStateDir() == "" {
		return nil, fmt.Errorf("no state directory configured")
	}
	return filestaterepo.NewFileStateRepo(cfg.GetStateDir(), sealer), nil
}
