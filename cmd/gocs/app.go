package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nyaxt/gocs/cmd/gocs/devserver"
	"github.com/nyaxt/gocs/cmd/gocs/fscli"
	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/logger"
	"github.com/nyaxt/gocs/version"
)

func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "gocs"
	app.Usage = "file storage on cloud blob services"
	app.Authors = []*cli.Author{
		{Name: "nyaxt", Email: "ueno _at_ nyaxtstep.com"},
	}
	app.Version = version.BuildVersion
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose logging",
		},
		&cli.PathFlag{
			Name:    "configDir",
			Value:   facade.DefaultConfigDir(),
			Usage:   "Config dirpath",
			EnvVars: []string{"GOCSDIR"},
		},
		&cli.BoolFlag{
			Name:  "readonly",
			Usage: "Open the blob service read-only. Writes and deletes fail.",
		},
	}
	app.Commands = []*cli.Command{
		devserver.Command,
		{
			Name:  "version",
			Usage: "Show build info",
			Action: func(c *cli.Context) error {
				fmt.Fprint(c.App.Writer, version.DumpBuildInfo())
				return nil
			},
		},
	}
	app.Commands = append(app.Commands, fscli.Commands...)

	BeforeImpl := func(c *cli.Context) error {
		newContext, cancel := context.WithCancel(c.Context)
		c.Context = newContext

		var l *zap.Logger
		if li, ok := app.Metadata["Logger"]; ok {
			l = li.(*zap.Logger)
		} else {
			var err error
			l, err = logger.Build(c.Bool("verbose"), cancel)
			if err != nil {
				return err
			}
		}
		zap.ReplaceGlobals(l)

		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, os.Interrupt)
		signal.Notify(sigC, syscall.SIGTERM)
		go func() {
			for s := range sigC {
				l.Warn("Received signal", zap.String("signal", s.String()))
				cancel()
			}
		}()

		return nil
	}
	app.Before = func(c *cli.Context) error {
		if err := BeforeImpl(c); err != nil {
			// Print error message to stderr
			app.Writer = app.ErrWriter

			// Suppress help message on app.Before() failure.
			cli.HelpPrinter = func(_ io.Writer, _ string, _ interface{}) {}
			return err
		}

		return nil
	}
	app.After = func(c *cli.Context) error {
		_ = zap.L().Sync()
		return nil
	}

	return app
}
