package cli

import (
	"net/http"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/internal/metrics"
	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/screen"
	"github.com/matzehuels/stickersmash/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
		open      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser runtime over HTTP",
		Long: `Serve the Home and About screens over HTTP for the browser runtime.

Saving answers with sticker-smash.jpeg as a download. Location permission
decisions are recorded with PUT /api/location/permission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp()
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			about, err := a.about(ctx, a.permissions(nil), screen.WithAboutNotifier(server.NewNotifier()))
			if err != nil {
				return err
			}

			surface, err := compose.NewSurface(compose.DefaultSize, compose.Placeholder(compose.DefaultSize))
			if err != nil {
				return err
			}
			pipeline := export.New(export.NewDOMCapture(server.NewDownloader(), export.WithLogger(a.logger)), a.logger)
			home := screen.NewHome(surface, pipeline,
				screen.WithPicker(server.NewPicker()),
				screen.WithHomeNotifier(server.NewNotifier()),
				screen.WithHomeLogger(a.logger))
			if err := home.Mount(ctx); err != nil {
				return err
			}
			defer surface.Unmount()

			srvCfg := server.Config{
				About:   about,
				Home:    home,
				Consent: a.locationConsent,
				Logger:  a.logger,
			}
			if a.cfg.Server.Metrics && !noMetrics {
				m := metrics.New()
				m.Install()
				srvCfg.Metrics = m.Handler()
				srvCfg.Middleware = []func(http.Handler) http.Handler{m.Instrument}
			}
			srv := server.New(srvCfg)

			// The About screen acquires as soon as it is mounted.
			go about.Mount(ctx)

			url := "http://" + a.cfg.Server.Addr
			printInfo("Serving StickerSmash on %s", StyleLink.Render(url))
			printNextStep("Location", "curl "+url+"/api/location")
			if open {
				if err := browser.OpenURL(url + "/api/home"); err != nil {
					printWarning("could not open browser: %v", err)
				}
			}
			return srv.Run(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&open, "open", false, "open the home screen in a browser")

	return cmd
}
