package fscli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	ocli "github.com/nyaxt/gocs/cli"
	"github.com/nyaxt/gocs/facade"
)

func withGocs(c *cli.Context, f func(g *facade.Gocs) error) error {
	cfg, err := facade.NewConfig(c.Path("configDir"))
	if err != nil {
		return err
	}
	if c.Bool("readonly") {
		cfg.ReadOnly = true
	}

	g, err := facade.NewGocs(c.Context, cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	return f(g)
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected %d argument(s), got %d. Usage: %s %s",
			c.Command.Name, n, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

var Commands = []*cli.Command{
	{
		Name:      "put",
		Usage:     "Save a local file",
		ArgsUsage: "LOCALPATH NAME",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.Put(c.Context, g, c.Args().Get(0), c.Args().Get(1))
			})
		},
	},
	{
		Name:      "upload",
		Usage:     "Save a local file through a staged upload",
		ArgsUsage: "LOCALPATH NAME",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chunkSize",
				Value: ocli.DefaultUploadChunkSize,
				Usage: "Size of each received data chunk",
			},
			&cli.BoolFlag{
				Name:  "discard",
				Usage: "Discard the upload once received",
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}
			opts := ocli.UploadOptions{
				ChunkSize: c.Int("chunkSize"),
				Discard:   c.Bool("discard"),
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.Upload(c.Context, g, c.Args().Get(0), c.Args().Get(1), opts)
			})
		},
	},
	{
		Name:      "get",
		Usage:     "Copy a stored file to LOCALPATH, or stdout if omitted",
		ArgsUsage: "NAME [LOCALPATH]",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			return withGocs(c, func(g *facade.Gocs) error {
				if c.NArg() < 2 {
					return ocli.Get(c.Context, os.Stdout, g, c.Args().Get(0))
				}
				return ocli.GetToFile(c.Context, g, c.Args().Get(0), c.Args().Get(1))
			})
		},
	},
	{
		Name:      "ls",
		Aliases:   []string{"list"},
		Usage:     "List a directory",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "long",
				Aliases: []string{"l"},
				Usage:   "Show size and created time",
			},
			&cli.BoolFlag{
				Name:    "human",
				Aliases: []string{"H"},
				Usage:   "Show sizes in human readable form",
			},
		},
		Action: func(c *cli.Context) error {
			opts := ocli.LsOptions{
				Long:  c.Bool("long"),
				Human: c.Bool("human"),
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.Ls(c.Context, os.Stdout, g, c.Args().First(), opts)
			})
		},
	},
	{
		Name:      "stat",
		Usage:     "Show attributes of a stored file",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "human",
				Aliases: []string{"H"},
				Usage:   "Show sizes in human readable form",
			},
		},
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.Stat(c.Context, os.Stdout, g, c.Args().Get(0), c.Bool("human"))
			})
		},
	},
	{
		Name:      "rm",
		Aliases:   []string{"delete"},
		Usage:     "Delete stored files",
		ArgsUsage: "NAME...",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.Rm(c.Context, g, c.Args().Slice())
			})
		},
	},
	{
		Name:      "url",
		Usage:     "Print the URL stored files are served at",
		ArgsUsage: "NAME...",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			return withGocs(c, func(g *facade.Gocs) error {
				return ocli.URL(c.Context, os.Stdout, g, c.Args().Slice())
			})
		},
	},
}
