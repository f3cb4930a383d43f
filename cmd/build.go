package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gsx/internal/script"
)

var buildCmd = &cobra.Command{
	Use:          "build <script>",
	Short:        "Build a script without running it",
	Long:         `Compile a script into the cache and print the cached binary's path.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func runBuild(cmd *cobra.Command, args []string) error {
	var in *script.Input
	var err error

	if args[0] == "-" {
		in, err = script.FromStdin(os.Stdin)
	} else {
		in, err = script.FromFile(args[0])
	}
	if err != nil {
		return err
	}

	p, cfg, err := newPipeline(cmd, in.Path)
	if err != nil {
		return err
	}

	ctx, stop := notifyContext()
	defer stop()

	if cfg.Verbose {
		infoColor.Fprintf(os.Stderr, "gsx: building %s (profile %s)\n", in.Label, cfg.Profile)
	}

	entry, err := p.Prepare(ctx, in)
	if err != nil {
		return err
	}

	fmt.Println(p.Store.BinaryPath(entry))

	return nil
}
