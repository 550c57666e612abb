package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for skylayer.

Load completions for the current session:

  bash:        source <(skylayer completion bash)
  zsh:         source <(skylayer completion zsh)
  fish:        skylayer completion fish | source
  powershell:  skylayer completion powershell | Out-String | Invoke-Expression

To load them for every session, write the script to your shell's completion
directory, for example:

  skylayer completion bash > /etc/bash_completion.d/skylayer
  skylayer completion zsh > "${fpath[1]}/_skylayer"
  skylayer completion fish > ~/.config/fish/completions/skylayer.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}
