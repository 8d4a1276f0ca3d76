package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/mapview"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

// Size of the map written by locate --map.
const (
	mapWidth  = 640
	mapHeight = 480
)

func (c *CLI) locateCommand() *cobra.Command {
	var (
		interactive bool
		mapOut      string
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show your current location on a map",
		Long: `Acquire your current location and show it on a map.

Location permission is asked for once and remembered. With -i the screen
stays open so you can try again, retry or open the settings page.`,
		Example: `  stickersmash locate
  stickersmash locate --map here.png
  stickersmash locate -i`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp()
			if err != nil {
				return err
			}
			if interactive {
				return c.runAboutTUI(ctx, a)
			}
			return c.runLocate(ctx, a, mapOut)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open the interactive location screen")
	cmd.Flags().StringVar(&mapOut, "map", "", "write the map as PNG to this file")

	return cmd
}

func (c *CLI) runLocate(ctx context.Context, a *app, mapOut string) error {
	prompter := a.terminalPrompter()
	about, err := a.about(ctx, a.permissions(prompter), screen.WithAboutNotifier(alertPrinter()))
	if err != nil {
		return err
	}

	// The prompt and the spinner share the terminal.
	decided, err := a.locationConsent.Load(ctx)
	if err != nil {
		return err
	}
	spin := prompter == nil || decided != location.PermissionUndetermined

	var spinner *Spinner
	if spin {
		spinner = newSpinner(ctx, screen.LoadingText)
		spinner.Start()
	}
	prog := newProgress(c.Logger)
	status := about.Mount(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	prog.done("location", "state", status.State())

	printAboutView(screen.ViewFor(status))

	switch st := status.(type) {
	case location.Ready:
		if mapOut != "" {
			if err := writeMap(mapOut, st); err != nil {
				return err
			}
			printFile(mapOut)
		}
	case location.PermissionRefused:
		printNewline()
		if !st.ServicesDisabled {
			printNextStep("Allow location access", appName+" permission grant")
		}
		printNextStep("Open the settings page", appName+" settings")
	case location.Failed:
		printNewline()
		printNextStep("Retry", appName+" locate")
	}
	return nil
}

func writeMap(path string, st location.Ready) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := mapview.WritePNG(f, mapview.ForFix(st.Fix), mapWidth, mapHeight); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// alertPrinter shows controller alerts on stdout.
func alertPrinter() screen.Notifier {
	return screen.NotifierFunc(func(_ context.Context, a errors.Alert) {
		printAlert(a)
	})
}
