package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// completionGenerators maps each supported shell to its cobra generator.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Print a shell completion script",
		Long: `Print a completion script for the given shell to stdout.

Load it for the current session:

  bash:        source <(` + appName + ` completion bash)
  zsh:         source <(` + appName + ` completion zsh)
  fish:        ` + appName + ` completion fish | source
  powershell:  ` + appName + ` completion powershell | Out-String | Invoke-Expression

To load it for every session, write the output to your shell's completion
directory instead, e.g. ~/.config/fish/completions/` + appName + `.fish.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}
