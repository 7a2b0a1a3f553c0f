package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kcfg/internal/config"
	"kcfg/internal/kubeconfig"
	"kcfg/pkg/logging"
)

// Exit codes returned by Execute.
const (
	exitOK          = 0
	exitSystemError = 1
	exitUserError   = 2
)

// version is set by main via SetVersion.
var version = "dev"

// SetVersion sets the version reported by `kcfg version` and --version.
func SetVersion(v string) {
	version = v
}

// usageError marks errors caused by bad arguments or flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// withUsage wraps a cobra argument validator so its failures count as user
// errors.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// rootOptions holds the persistent flags and what PersistentPreRunE derives
// from them.
type rootOptions struct {
	kubeconfig string
	logLevel   string

	cfg config.KcfgConfig
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kcfg",
		Short: "Keep your kubeconfig tidy and its credentials fresh",
		Long: `kcfg maintains a local kubeconfig file. It lists and selects contexts,
removes contexts together with the clusters and users only they used,
merges contexts that point at the same cluster with the same credentials,
and refreshes expired exec and OIDC credentials in place.

The kubeconfig is taken from --kubeconfig, else the first entry of
$KUBECONFIG, else ~/.kube/config. Every command either writes the complete
result atomically or leaves the file untouched.`,
		// Errors are reported by Execute; usage is only shown for --help.
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		Args:          withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}
	cmd.SetVersionTemplate(`{{printf "kcfg version %s\n" .Version}}`)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringVar(&opts.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newListCmd(opts),
		newSelectCmd(opts),
		newRefreshCmd(opts),
		newStatusCmd(opts),
		newRemoveCmd(opts),
		newDedupCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup initializes logging and loads the tool configuration.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return usageError{err}
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load kcfg configuration: %w", err)
	}
	o.cfg = cfg
	return nil
}

// Execute runs the command line and exits with the matching status.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps an error to 2 for mistakes in the invocation and 1 for
// everything else.
func exitCode(err error) int {
	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr), kubeconfig.IsUserError(err):
		return exitUserError
	default:
		return exitSystemError
	}
}
