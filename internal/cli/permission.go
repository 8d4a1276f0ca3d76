package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/location/provider"
)

// permissionCommand manages the stored permission decisions.
func (c *CLI) permissionCommand() *cobra.Command {
	var media bool

	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Show or change the stored permission decisions",
		Long: `Show or change the stored permission decisions.

The location decision is asked for once and then remembered, like the OS
would. Use --media for the media library decision instead.`,
	}
	cmd.PersistentFlags().BoolVar(&media, "media", false, "manage the media library decision")

	store := func() (*provider.ConsentStore, error) {
		a, err := c.newApp()
		if err != nil {
			return nil, err
		}
		if media {
			return a.mediaConsent, nil
		}
		return a.locationConsent, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the stored decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			p, err := s.Load(cmd.Context())
			if err != nil {
				return err
			}
			printKeyValue("Permission", p.String())
			printKeyValue("File", s.Path())
			return nil
		},
	})

	set := func(use, short string, p location.Permission) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := store()
				if err != nil {
					return err
				}
				if err := s.Save(cmd.Context(), p); err != nil {
					return err
				}
				printSuccess("Permission %s", p)
				return nil
			},
		}
	}
	cmd.AddCommand(set("grant", "Allow access", location.PermissionGranted))
	cmd.AddCommand(set("deny", "Deny access", location.PermissionDenied))

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the decision so it is asked for again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store()
			if err != nil {
				return err
			}
			if err := s.Clear(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Permission reset")
			return nil
		},
	})

	return cmd
}
