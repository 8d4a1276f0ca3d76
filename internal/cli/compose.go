package cli

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/export/library"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

func (c *CLI) composeCommand() *cobra.Command {
	var (
		sticker string
		offset  string
		runtime string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "compose [photo]",
		Short: "Put a sticker on a photo and save the result",
		Long: `Compose a sticker onto a photo and export the result as a JPEG.

Without a photo the default background is used. The native runtime saves into
the configured media library; the web runtime downloads sticker-smash.jpeg
into the downloads directory.`,
		Example: `  stickersmash compose beach.jpg --sticker emoji.png
  stickersmash compose beach.jpg --sticker emoji.png --offset 30,-12
  stickersmash compose --runtime web --out ~/Downloads`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp()
			if err != nil {
				return err
			}
			if runtime != "" {
				if err := export.ValidateRuntime(runtime); err != nil {
					return err
				}
				a.cfg.Runtime = runtime
			}
			if out != "" {
				if a.cfg.Runtime == export.RuntimeWeb {
					a.cfg.DownloadsDir = out
				} else {
					a.cfg.Library.Backend = library.BackendDir
					a.cfg.Library.Dir = out
				}
			}
			move, err := parseOffset(offset)
			if err != nil {
				return err
			}

			base := compose.Placeholder(compose.DefaultSize)
			if len(args) == 1 {
				if base, err = compose.Load(args[0]); err != nil {
					return err
				}
			}
			surface, err := compose.NewSurface(compose.DefaultSize, base)
			if err != nil {
				return err
			}

			strategy, closer, err := a.strategy(ctx, printFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			home := a.home(surface, strategy, screen.WithHomeNotifier(alertPrinter()))
			if err := home.Mount(ctx); err != nil {
				return err
			}
			home.UseThisPhoto()

			if sticker != "" {
				ref, err := compose.Load(sticker)
				if err != nil {
					return err
				}
				home.AddSticker()
				if err := home.SelectSticker(ref); err != nil {
					return err
				}
				if err := home.MoveSticker(move); err != nil {
					return err
				}
			} else if offset != "" {
				printWarning("--offset has no effect without --sticker")
			}

			spinner := newSpinner(ctx, "Saving...")
			spinner.Start()
			prog := newProgress(c.Logger)
			artifact, err := home.Save(ctx)
			spinner.Stop()
			if errors.Is(err, errors.ErrCodePermissionDenied) {
				printNextStep("Allow media library access", appName+" permission grant --media")
			}
			if err != nil {
				return err
			}
			prog.done("exported", "strategy", artifact.Strategy, "file", artifact.Filename)

			printKeyValue("Strategy", artifact.Strategy)
			printKeyValue("File", artifact.Filename)
			printKeyValue("Size", fmt.Sprintf("%d×%d, %s", artifact.Width, artifact.Height, formatBytes(artifact.Size)))
			if a.cfg.Runtime == export.RuntimeNative && a.cfg.Library.Backend == library.BackendDir {
				printKeyValue("Album", a.cfg.Library.Dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sticker, "sticker", "s", "", "sticker image to place on the photo")
	cmd.Flags().StringVar(&offset, "offset", "", "sticker offset from its anchor as x,y pixels")
	cmd.Flags().StringVar(&runtime, "runtime", "", "export runtime: native or web (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "save into this directory instead of the configured one")

	return cmd
}

// parseOffset parses "x,y". An empty string is the zero offset.
func parseOffset(s string) (image.Point, error) {
	if strings.TrimSpace(s) == "" {
		return image.Point{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return image.Point{}, errors.New(errors.ErrCodeInvalidInput, "offset must be x,y, got %q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return image.Point{}, errors.New(errors.ErrCodeInvalidInput, "offset must be integer pixels, got %q", s)
	}
	return image.Pt(x, y), nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
