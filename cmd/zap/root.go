package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/napta/zap/config"
)

const version = "0.4.0"

// Exit codes. Bad invocations (unknown flags, wrong arity, unparsable
// values) exit 2; everything that fails after a well-formed invocation
// exits 1.
const (
	exitOK        = 0
	exitFailure   = 1
	exitBadUsage  = 2
	exitInterrupt = 130
)

// options holds the raw flag values before they are merged into the
// config. Numeric flags are unsigned so that negative values are
// rejected by the flag parser instead of reaching validation.
type options struct {
	streams        uint
	port           uint
	retries        uint
	user           string
	identity       string
	connectTimeout time.Duration
	journalPath    string
	noProgress     bool
	quiet          bool
	verbose        bool
	configPath     string
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd(opts *options) *cobra.Command {
	defs := config.Defaults()

	cmd := &cobra.Command{
		Use:   "zap [flags] SOURCE DEST",
		Short: "Copy a single file over SSH using parallel streams",
		Long: `Zap copies one file between the local machine and a remote host,
splitting it into chunks that are transferred over independent SSH
connections and reassembled on the destination.

Exactly one of SOURCE and DEST must be remote, written as
[user@]host:path the way scp writes it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), cmd, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.UintVarP(&opts.streams, "streams", "c", uint(defs.Transfer.Streams), "number of parallel streams")
	f.UintVarP(&opts.port, "port", "p", uint(defs.SSH.Port), "ssh port on the remote host")
	f.UintVarP(&opts.retries, "retries", "r", uint(defs.Transfer.MaxRetries), "retries granted to each chunk before the transfer fails")
	f.StringVarP(&opts.user, "user", "u", "", "ssh user (defaults to the current user)")
	f.StringVarP(&opts.identity, "identity", "i", "", "ssh private key file (defaults to the ssh agent)")
	f.DurationVar(&opts.connectTimeout, "connect-timeout", defs.SSH.ConnectTimeout, "timeout for establishing each ssh connection")
	f.StringVar(&opts.journalPath, "journal", "", "record transfer state in a journal file")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress display")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	f.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/zap/config.yaml)")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	return cmd
}

// Run parses args, executes the transfer and maps the result to a
// process exit code.
func Run(args []string) int {
	opts := &options{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the transfer so artifacts and the journal
	// are left in a resumable state. A second one exits immediately.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(exitInterrupt)
	}()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "zap: %v\n", err)
		fmt.Fprintln(os.Stderr, "run 'zap --help' for usage")
		return exitBadUsage
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "zap: interrupted")
		return exitFailure
	}
	fmt.Fprintf(os.Stderr, "zap: %v\n", err)
	return exitFailure
}
