package command

import (
	"fmt"

	"github.com/jrsteele09/go-services-client/entities"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/services"
	"github.com/urfave/cli/v2"
)

// sessionInfo is printed by the session commands.
type sessionInfo struct {
	State     string         `json:"state"`
	SessionID string         `json:"sessid,omitempty"`
	User      *entities.User `json:"user,omitempty"`
}

func describe(client *services.Client) sessionInfo {
	return sessionInfo{
		State:     client.State().String(),
		SessionID: client.SessionID(),
		User:      client.CurrentUser(),
	}
}

func connectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Run the system.connect handshake",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			if err := e.client.Connect(c.Context); err != nil {
				return err
			}
			return e.print(describe(e.client))
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Log in and keep the session for later commands",
		ArgsUsage: "USERNAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				EnvVars:  []string{"SERVICES_PASSWORD"},
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			username, err := stringArg(c, 0, "USERNAME")
			if err != nil {
				return err
			}
			e := getEnv(c)
			user, err := e.client.Login(c.Context, username, c.String("password"))
			if err != nil {
				return err
			}
			return e.print(user)
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the saved session",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			if err := e.client.Logout(c.Context); err != nil {
				return err
			}
			return e.print(describe(e.client))
		},
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show the saved session without contacting the site",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			return e.print(describe(e.client))
		},
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:      "user",
		Usage:     "Show an account, the logged in one without UID",
		ArgsUsage: "[UID]",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			var uid int
			if c.NArg() == 0 {
				current := e.client.CurrentUser()
				if current.IsAnonymous() {
					return fmt.Errorf("%w: log in or pass a UID", svcerrors.ErrNotAuthenticated)
				}
				uid = int(current.UID)
			} else {
				var err error
				if uid, err = intArg(c, 0, "UID"); err != nil {
					return err
				}
			}
			user, err := e.client.GetUser(c.Context, uid)
			if err != nil {
				return err
			}
			return e.print(user)
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Create an account",
		ArgsUsage: "USERNAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				EnvVars:  []string{"SERVICES_PASSWORD"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mail",
				Usage: "Account e-mail address",
			},
		},
		Action: func(c *cli.Context) error {
			username, err := stringArg(c, 0, "USERNAME")
			if err != nil {
				return err
			}
			e := getEnv(c)
			uid, err := e.client.RegisterNewUser(c.Context, username, c.String("password"), c.String("mail"))
			if err != nil {
				return err
			}
			return e.print(map[string]int{"uid": uid})
		},
	}
}
