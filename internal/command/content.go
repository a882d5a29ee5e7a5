package command

import (
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/urfave/cli/v2"
)

func stringArg(c *cli.Context, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return v, nil
}

func intArg(c *cli.Context, i int, name string) (int, error) {
	v, err := stringArg(c, i, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, v)
	}
	return n, nil
}

func nodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "node",
		Usage: "Read and save nodes",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a node",
				ArgsUsage: "NID",
				Action: func(c *cli.Context) error {
					nid, err := intArg(c, 0, "NID")
					if err != nil {
						return err
					}
					e := getEnv(c)
					node, err := e.client.GetNode(c.Context, nid)
					if err != nil {
						return err
					}
					return e.print(node)
				},
			},
			{
				Name:  "save",
				Usage: "Create a node, or update one with --nid",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "nid", Usage: "Node to update"},
					&cli.StringFlag{Name: "type", Value: "story", Usage: "Content type"},
					&cli.StringFlag{Name: "title", Required: true, Usage: "Title"},
					&cli.StringFlag{Name: "body", Usage: "Body text"},
					&cli.BoolFlag{Name: "publish", Value: true, Usage: "Publish the node"},
				},
				Action: func(c *cli.Context) error {
					e := getEnv(c)
					nid, err := e.client.SaveNode(c.Context, &entities.Node{
						NID:    entities.Int(c.Int("nid")),
						Type:   c.String("type"),
						Title:  c.String("title"),
						Body:   c.String("body"),
						Status: entities.Bool(c.Bool("publish")),
					})
					if err != nil {
						return err
					}
					return e.print(map[string]int{"nid": nid})
				},
			},
		},
	}
}

func commentCommand() *cli.Command {
	return &cli.Command{
		Name:  "comment",
		Usage: "Read and post comments",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a comment",
				ArgsUsage: "CID",
				Action: func(c *cli.Context) error {
					cid, err := intArg(c, 0, "CID")
					if err != nil {
						return err
					}
					e := getEnv(c)
					comment, err := e.client.GetComment(c.Context, cid)
					if err != nil {
						return err
					}
					return e.print(comment)
				},
			},
			{
				Name:      "list",
				Usage:     "List a node's comments",
				ArgsUsage: "NID",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "start", Usage: "First comment, with --count"},
					&cli.IntFlag{Name: "count", Usage: "Number of comments, with --start"},
				},
				Action: func(c *cli.Context) error {
					nid, err := intArg(c, 0, "NID")
					if err != nil {
						return err
					}
					e := getEnv(c)
					comments, err := e.client.GetComments(c.Context, nid, c.Int("start"), c.Int("count"))
					if err != nil {
						return err
					}
					return e.print(comments)
				},
			},
			{
				Name:      "add",
				Usage:     "Post a comment on a node",
				ArgsUsage: "NID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Required: true, Usage: "Subject line"},
					&cli.StringFlag{Name: "body", Required: true, Usage: "Comment text"},
				},
				Action: func(c *cli.Context) error {
					nid, err := intArg(c, 0, "NID")
					if err != nil {
						return err
					}
					e := getEnv(c)
					cid, err := e.client.SaveComment(c.Context, &entities.Comment{
						NID:     entities.Int(nid),
						Subject: c.String("subject"),
						Comment: c.String("body"),
					})
					if err != nil {
						return err
					}
					return e.print(map[string]int{"cid": cid})
				},
			},
		},
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Run a view",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "args", Usage: "View arguments"},
			&cli.IntFlag{Name: "offset", Usage: "First row, with --limit"},
			&cli.IntFlag{Name: "limit", Usage: "Number of rows, with --offset"},
			&cli.BoolFlag{Name: "terms", Usage: "The view returns taxonomy terms"},
		},
		Action: func(c *cli.Context) error {
			name, err := stringArg(c, 0, "NAME")
			if err != nil {
				return err
			}
			e := getEnv(c)
			if c.Bool("terms") {
				terms, err := e.client.GetTermView(c.Context, name)
				if err != nil {
					return err
				}
				return e.print(terms)
			}
			nodes, err := e.client.GetNodeView(c.Context, name, c.String("args"), c.Int("offset"), c.Int("limit"))
			if err != nil {
				return err
			}
			return e.print(nodes)
		},
	}
}

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List the category vocabulary",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			terms, err := e.client.GetCategoryList(c.Context)
			if err != nil {
				return err
			}
			return e.print(terms)
		},
	}
}
