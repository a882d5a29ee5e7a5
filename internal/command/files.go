package command

import (
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:  "file",
		Usage: "Upload and download files",
		Subcommands: []*cli.Command{
			{
				Name:  "dir",
				Usage: "Show the site's files directory",
				Action: func(c *cli.Context) error {
					e := getEnv(c)
					dir, err := e.client.GetFileDirectoryPath(c.Context)
					if err != nil {
						return err
					}
					return e.print(map[string]string{"directory": dir})
				},
			},
			{
				Name:      "upload",
				Usage:     "Upload a local file",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Remote file name, defaults to the local one"},
				},
				Action: upload,
			},
			{
				Name:      "download",
				Usage:     "Download a file by its path on the site",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"O"}, Usage: "Write to a file instead of stdout"},
				},
				Action: download,
			},
		},
	}
}

func upload(c *cli.Context) error {
	path, err := stringArg(c, 0, "PATH")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := c.String("name")
	if name == "" {
		name = filepath.Base(path)
	}

	e := getEnv(c)
	token, err := e.client.GetFileUploadToken(c.Context)
	if err != nil {
		return err
	}
	file, err := e.client.SaveFileStream(c.Context, f, name, token)
	if err != nil {
		return err
	}
	return e.print(file)
}

func download(c *cli.Context) error {
	path, err := stringArg(c, 0, "PATH")
	if err != nil {
		return err
	}
	e := getEnv(c)
	rc, err := e.client.GetFileStream(c.Context, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	out := e.stdout
	if target := c.String("out"); target != "" {
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = io.Copy(out, rc)
	return err
}
