package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/ops"
	"github.com/studio1767/hashforge/internal/report"
	"github.com/studio1767/hashforge/internal/settings"
	"github.com/studio1767/hashforge/internal/telemetry"
	"github.com/studio1767/hashforge/internal/verify"
)

// options holds the command line of one invocation.
type options struct {
	settingsFile string

	algorithms     []string
	expected       []string
	expectedKey    string
	expectedLatest string
	output         string

	publish    string
	bucket     string
	profile    string
	recipients string
	identities string
	compress   bool

	includeExt []string
	excludeExt []string
	chunkSize  int

	quiet   bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hashforge [flags] <path>...",
		Short: "Compute and verify file checksums",
		Long: `hashforge streams every file under the given paths once, computing MD5,
SHA1, SHA256 and SHA512 digests together, and checks them against a list
of expected hashes.

Expected hashes come from local files (-e, '-' for stdin) or from check
files previously published to an S3 bucket (--expected-key,
--expected-latest). Results can be exported as a report (.txt) or a check
file (any other extension) and published to the bucket under a label.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settingsFile, "settings", "", "settings file (default: user config dir)")

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.algorithms, "algorithm", "a", nil, "algorithms to compute: md5, sha1, sha256, sha512 (default from settings)")
	flags.StringArrayVarP(&opts.expected, "expected", "e", nil, "file of expected hashes, '-' for stdin")
	flags.StringVar(&opts.expectedKey, "expected-key", "", "bucket key of a check file with expected hashes")
	flags.StringVar(&opts.expectedLatest, "expected-latest", "", "use the latest check file published under this label")
	flags.StringVarP(&opts.output, "output", "o", "", "export results: .txt for a report, anything else for a check file")
	flags.StringVar(&opts.publish, "publish", "", "publish the check file to the bucket under this label")
	flags.StringVar(&opts.bucket, "bucket", "", "s3 bucket for publishing and fetching check files")
	flags.StringVar(&opts.profile, "profile", "default", "aws profile for credentials and configuration")
	flags.StringVar(&opts.recipients, "recipients", "", "age recipients file to encrypt published check files")
	flags.StringVar(&opts.identities, "identities", "default", "age identities file to decrypt fetched check files")
	flags.BoolVar(&opts.compress, "compress", false, "compress published check files")
	flags.StringSliceVar(&opts.includeExt, "include-ext", nil, "only hash files with these extensions")
	flags.StringSliceVar(&opts.excludeExt, "exclude-ext", nil, "skip files with these extensions")
	flags.IntVar(&opts.chunkSize, "chunk-size", digest.DefaultChunkSize, "read size in bytes")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "no progress bar, warnings only")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newSettingsCmd(opts))
	cmd.AddCommand(newFetchCmd(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the settings file, falling back to defaults.
func loadSettings(opts *options, logger *slog.Logger) (settings.Settings, string) {
	path := opts.settingsFile
	if path == "" {
		var err error
		path, err = settings.DefaultPath()
		if err != nil {
			logger.Debug("no settings location", "error", err)
			return settings.Defaults(), ""
		}
	}

	current, err := settings.Load(path)
	if err != nil {
		logger.Warn("using default settings", "path", path, "error", err)
	}
	return current, path
}

func selectAlgorithms(opts *options, current settings.Settings) (digest.Set, error) {
	if len(opts.algorithms) == 0 {
		return digest.NewSet(current.DefaultAlgorithm), nil
	}
	return digest.ParseSet(opts.algorithms...)
}

func buildFilters(opts *options) []*ops.ExtensionFilter {
	var filters []*ops.ExtensionFilter
	if len(opts.includeExt) > 0 {
		filters = append(filters, ops.NewExtensionFilter(opts.includeExt, true))
	}
	if len(opts.excludeExt) > 0 {
		filters = append(filters, ops.NewExtensionFilter(opts.excludeExt, false))
	}
	return filters
}

func runHash(cmd *cobra.Command, opts *options, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := newLogger(stderr, opts.verbose, opts.quiet)

	current, _ := loadSettings(opts, logger)

	algs, err := selectAlgorithms(opts, current)
	if err != nil {
		return err
	}

	// the bucket is only needed for remote check files
	remote, err := newRemote(opts)
	if err != nil {
		return err
	}

	expected, err := loadExpected(cmd.InOrStdin(), opts, remote, logger)
	if err != nil {
		return err
	}

	inputs := make([]ops.Input, 0, len(args))
	for _, arg := range args {
		inputs = append(inputs, ops.Input{Path: arg})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pipeline := ops.NewPipeline(ops.Options{
		ChunkSize: opts.chunkSize,
		Filters:   buildFilters(opts),
		Logger:    logger,
	})

	outcome, err := runPipeline(ctx, pipeline, ops.Request{
		Inputs:     inputs,
		Algorithms: algs,
		Expected:   expected,
	}, stdout, stderr, opts.quiet, current.DarkTheme)
	if err != nil {
		return err
	}

	printSummary(stdout, outcome, expected.Len() > 0)

	if opts.output != "" && len(outcome.Records) > 0 {
		if err := report.Export(opts.output, outcome.Records, time.Now()); err != nil {
			return fmt.Errorf("exporting results: %w", err)
		}
		logger.Info("results exported", "path", opts.output)
	}

	if opts.publish != "" && outcome.State == ops.StateCompleted {
		if err := publish(stdout, remote, opts, algs, outcome.Records, args); err != nil {
			return err
		}
	}

	return outcomeError(outcome)
}

// runPipeline drains the event stream, echoing records as they arrive.
func runPipeline(ctx context.Context, pipeline *ops.Pipeline, req ops.Request, stdout, stderr io.Writer, quiet, dark bool) (*ops.Outcome, error) {
	events, err := pipeline.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	var view *progressView
	if !quiet && isTerminal(stderr) {
		view = newProgressView(stderr, dark)
	}

	var outcome *ops.Outcome
	for event := range events {
		if event.Outcome != nil {
			outcome = event.Outcome
			continue
		}

		snap := event.Progress
		if view != nil {
			view.Update(snap)
		}
		if snap.Record != nil {
			printRecord(stdout, snap.Record)
		}
	}
	if view != nil {
		view.Close()
	}

	return outcome, nil
}

func printRecord(w io.Writer, record *ops.HashRecord) {
	if record.Failed() {
		fmt.Fprintf(w, "%-6s  ERROR  %s: %s\n", record.Algorithm, record.FullPath, record.Error)
		return
	}

	status := ""
	if record.Match != verify.NotVerified {
		status = fmt.Sprintf("  [%s]", record.Match)
	}
	fmt.Fprintf(w, "%-6s  %s  %s%s\n", record.Algorithm, record.Digest, record.FullPath, status)
}

// tally counts verification results across records.
func tally(records []ops.HashRecord) (matched, mismatched int) {
	for _, record := range records {
		switch record.Match {
		case verify.Match:
			matched++
		case verify.Mismatch:
			mismatched++
		}
	}
	return matched, mismatched
}

func printSummary(w io.Writer, outcome *ops.Outcome, verifying bool) {
	summary := outcome.Summary

	fmt.Fprintf(w, "\n%s: %d/%d files hashed, %d failed\n",
		outcome.State, summary.FilesHashed, summary.TotalFiles, summary.FilesFailed)
	fmt.Fprintf(w, "data: %s of %s bytes in %s (%s)\n",
		humanize.Comma(summary.ProcessedBytes),
		humanize.Comma(summary.TotalBytes),
		summary.Elapsed.Round(time.Millisecond),
		telemetry.FormatSpeed(summary.AverageSpeed),
	)

	if verifying {
		matched, mismatched := tally(outcome.Records)
		fmt.Fprintf(w, "verify: %d match, %d mismatch\n", matched, mismatched)
	}
}

// outcomeError turns an unsuccessful run into the command's error.
func outcomeError(outcome *ops.Outcome) error {
	switch outcome.State {
	case ops.StateCancelled:
		return errors.New("cancelled")
	case ops.StateFailed:
		return outcome.Err
	}

	if _, mismatched := tally(outcome.Records); mismatched > 0 {
		return fmt.Errorf("verification failed: %d mismatched hashes", mismatched)
	}
	if outcome.Summary.FilesFailed > 0 {
		return fmt.Errorf("%d files could not be hashed", outcome.Summary.FilesFailed)
	}
	return nil
}

// publishBase is the directory check file paths are written relative to: the
// only input when it is a directory, the working directory otherwise.
func publishBase(args []string) string {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return args[0]
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return filepath.Dir(args[0])
}
