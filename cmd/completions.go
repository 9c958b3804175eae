package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func generateShellCompletions(cmd *cobra.Command, shell string) error {
	var err error

	out := cmd.OutOrStdout()

	switch shell {
	case "bash":
		err = cmd.Root().GenBashCompletion(out)
	case "zsh":
		err = cmd.Root().GenZshCompletion(out)
	case "fish":
		err = cmd.Root().GenFishCompletion(out, true)
	default:
		err = fmt.Errorf("unsupported shell: %s", shell)
	}

	if err != nil {
		err = fmt.Errorf("failed to generate shell completions: %w", err)
	}

	return err
}
