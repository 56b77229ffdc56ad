package devserver

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nyaxt/gocs/basicauth"
	odevserver "github.com/nyaxt/gocs/devserver"
	"github.com/nyaxt/gocs/facade"
	"github.com/nyaxt/gocs/util"
)

var Command = &cli.Command{
	Name:  "devserver",
	Usage: "Serve stored blobs at development URLs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Listen address. Overrides DevServer.ListenAddr in config.",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := facade.NewConfig(c.Path("configDir"))
		if err != nil {
			return err
		}
		if addr := c.String("listen"); addr != "" {
			cfg.DevServer.ListenAddr = addr
		}
		// The devserver only ever reads.
		cfg.ReadOnly = true

		bs, err := facade.NewBlobService(c.Context, cfg)
		if err != nil {
			return err
		}

		zap.S().Named("devserver").Infof("Serving %s at %s", util.TryGetImplName(bs), cfg.DevServer.ListenAddr)
		auth := basicauth.Credentials{
			User:     cfg.DevServer.BasicAuthUser,
			Password: cfg.DevServer.BasicAuthPassword,
		}
		return odevserver.Serve(c.Context, cfg.DevServer.ListenAddr, bs, odevserver.WithBasicAuth(auth))
	},
}
