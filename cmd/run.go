package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gsx/internal/cache"
	"gsx/internal/compiler"
	"gsx/internal/config"
	"gsx/internal/runner"
	"gsx/internal/script"
)

var infoColor = color.New(color.FgCyan)

// newPipeline loads configuration and assembles the script pipeline.
// scriptPath may be empty for inline/stdin input.
func newPipeline(cmd *cobra.Command, scriptPath string) (*script.Pipeline, *config.Config, error) {
	cfg, err := config.NewLoader().LoadForScript(cmd, scriptPath)
	if err != nil {
		return nil, nil, err
	}

	root := cfg.CacheDir
	if root == "" {
		root, err = cache.DefaultRoot()
		if err != nil {
			return nil, nil, err
		}
	}

	store, err := cache.New(root)
	if err != nil {
		return nil, nil, err
	}

	builder := compiler.New(cfg.ToolchainPath)
	builder.Verbose = cfg.Verbose

	p := &script.Pipeline{
		Store:           store,
		Builder:         builder,
		Cfg:             cfg,
		ProfileExplicit: cmd.Flags().Changed("profile"),
	}

	return p, cfg, nil
}

func runScript(cmd *cobra.Command, args []string) error {
	expr, _ := cmd.Flags().GetString("expr")

	var in *script.Input
	var forwarded []string
	var err error

	switch {
	case expr != "":
		in = script.FromExpr(expr)
		forwarded = args

	case len(args) == 0:
		return errUsage

	case args[0] == "-":
		in, err = script.FromStdin(os.Stdin)
		forwarded = args[1:]

	default:
		in, err = script.FromFile(args[0])
		forwarded = args[1:]
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
		infoColor.Fprintf(os.Stderr, "gsx: running %s (profile %s)\n", in.Label, cfg.Profile)
	}

	status, err := p.Execute(ctx, in, runner.Options{Args: forwarded})
	if err != nil {
		return err
	}

	exitStatus = status

	return nil
}
