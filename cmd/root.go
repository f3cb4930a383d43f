package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gsx/internal/cache"
	"gsx/internal/codes"
	"gsx/internal/compiler"
	"gsx/internal/manifest"
	"gsx/internal/runner"
	"gsx/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gsx [flags] <script> [args...]",
	Short: "Run a Go source file as a script",
	Long: `gsx compiles a single Go source file into a cached binary and runs it,
forwarding arguments, standard streams and exit status.

Dependencies are declared inside the script, either in a fenced comment
block between "// ---" markers or on a single "// gsx-deps:" line.`,
	RunE:          runScript,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
}

// exitStatus is the executed script's forwarded exit status.
var exitStatus int

var errUsage = errors.New("requires a script file, '-' for stdin, or -e EXPR")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCodeFor(err)

		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, errorDetail(err, code))

		os.Exit(code)
	}

	os.Exit(exitStatus)
}

// errorDetail annotates the error with the exit code taxonomy message for
// gsx's own codes, so a caller can tell a busy lock from a build failure
// without parsing the error text.
func errorDetail(err error, code int) string {
	if code == codes.Failure {
		return err.Error()
	}

	return fmt.Sprintf("%s (%s, exit %d)", err, codes.Description(code), code)
}

// exitCodeFor maps pipeline errors to gsx exit codes.
func exitCodeFor(err error) int {
	var extractErr *manifest.ExtractionError
	var buildErr *compiler.BuildError

	switch {
	case errors.Is(err, errUsage):
		return codes.Usage
	case errors.As(err, &extractErr):
		return codes.Extraction
	case errors.Is(err, cache.ErrBusy):
		return codes.Busy
	case errors.As(err, &buildErr):
		return codes.Failure
	case errors.Is(err, runner.ErrArtifactMissing):
		return codes.BinaryNotFound
	case errors.Is(err, os.ErrPermission):
		return codes.CannotExecute
	default:
		return codes.Failure
	}
}

// notifyContext cancels on user interrupt so a running build or script is
// terminated rather than orphaned.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)

	rootCmd.PersistentFlags().StringP("profile", "p", "", "Build profile (debug, release)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output, including toolchain output")
	rootCmd.PersistentFlags().Bool("force", false, "Discard any cached build and rebuild")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Build without consulting the cache")
	rootCmd.PersistentFlags().String("toolchain", "", "Toolchain executable (default \"go\")")
	rootCmd.PersistentFlags().String("cache-dir", "", "Cache root directory")
	rootCmd.Flags().StringP("expr", "e", "", "Evaluate and print an inline expression")

	// Flags after the script positional belong to the script
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cacheCmd)
}
