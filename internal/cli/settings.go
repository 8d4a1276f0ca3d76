package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

func (c *CLI) settingsCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Open the OS settings page to change the location permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp()
			if err != nil {
				return err
			}

			opts := []screen.AboutOption{screen.WithAboutNotifier(alertPrinter())}
			if prompter := a.terminalPrompter(); prompter != nil && !yes {
				opts = append(opts, screen.WithConfirmer(dialogConfirmer(prompter)))
			}
			about, err := a.about(ctx, a.permissions(nil), opts...)
			if err != nil {
				return err
			}
			if about.OpenSettings(ctx) {
				printSuccess("Opened settings for %s", a.cfg.AppID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation dialog")

	return cmd
}

// dialogConfirmer shows a dialog as a yes/no terminal question.
func dialogConfirmer(p provider.Prompter) screen.Confirmer {
	return screen.ConfirmerFunc(func(ctx context.Context, d screen.Dialog) (bool, error) {
		fmt.Fprintln(os.Stderr, StyleTitle.Render(d.Title))
		fmt.Fprintln(os.Stderr, d.Message)
		return p.Prompt(ctx, d.Confirm+"?")
	})
}
