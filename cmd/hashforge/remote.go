package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/manifest"
	"github.com/studio1767/hashforge/internal/ops"
	"github.com/studio1767/hashforge/internal/report"
	"github.com/studio1767/hashforge/internal/s3io"
	"github.com/studio1767/hashforge/internal/verify"
)

// connect opens the bucket; tests swap it for an in-memory client.
var connect = s3io.NewClient

type ErrBucketRequired struct {
	flag string
}

func (e *ErrBucketRequired) Error() string {
	return fmt.Sprintf("--%s needs --bucket", e.flag)
}

// newRemote connects to the bucket when a flag needs it, otherwise it
// returns nil.
func newRemote(opts *options) (s3io.Client, error) {
	var needs string
	switch {
	case opts.publish != "":
		needs = "publish"
	case opts.expectedKey != "":
		needs = "expected-key"
	case opts.expectedLatest != "":
		needs = "expected-latest"
	default:
		return nil, nil
	}

	if opts.bucket == "" {
		return nil, &ErrBucketRequired{flag: needs}
	}

	return connect(opts.profile, opts.bucket, opts.identities, opts.recipients)
}

// loadExpected merges every source of expected hashes. It returns nil when
// none were given, which turns verification off.
func loadExpected(stdin io.Reader, opts *options, remote s3io.Client, logger *slog.Logger) (*verify.ExpectedSet, error) {
	if len(opts.expected) == 0 && opts.expectedKey == "" && opts.expectedLatest == "" {
		return nil, nil
	}

	expected := verify.NewExpectedSet()
	merge := func(name string, r io.Reader) error {
		set, err := verify.ParseReader(r)
		if err != nil {
			return fmt.Errorf("reading expected hashes from %s: %w", name, err)
		}
		for _, value := range set.Entries() {
			expected.Add(value)
		}
		logger.Debug("expected hashes loaded", "source", name, "count", set.Len())
		return nil
	}

	for _, name := range opts.expected {
		if name == "-" {
			if err := merge("stdin", stdin); err != nil {
				return nil, err
			}
			continue
		}

		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		err = merge(name, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	mergeRemote := func(f *os.File, key string) error {
		defer os.Remove(f.Name())
		defer f.Close()
		return merge(fmt.Sprintf("s3://%s/%s", remote.Bucket(), key), f)
	}

	if opts.expectedKey != "" {
		f, err := manifest.DownloadWithKey(remote, opts.expectedKey)
		if err != nil {
			return nil, err
		}
		if err := mergeRemote(f, opts.expectedKey); err != nil {
			return nil, err
		}
	}

	if opts.expectedLatest != "" {
		f, key, err := manifest.Download(remote, opts.expectedLatest)
		if err != nil {
			return nil, err
		}
		if err := mergeRemote(f, key); err != nil {
			return nil, err
		}
	}

	logger.Info("verification enabled", "expected", expected.Len())

	return expected, nil
}

// checkFileExt names published check files after their algorithm.
func checkFileExt(algs digest.Set) string {
	if algs.Len() == 1 {
		return strings.ToLower(algs.List()[0].String())
	}
	return "checksums"
}

func publish(w io.Writer, remote s3io.Client, opts *options, algs digest.Set, records []ops.HashRecord, args []string) error {
	var buf bytes.Buffer
	if err := report.WriteCheckFile(&buf, records, publishBase(args)); err != nil {
		return err
	}
	size := int64(buf.Len())

	key, err := manifest.Upload(remote, &buf, opts.publish, checkFileExt(algs), time.Now(), manifest.PublishOptions{
		Compress: opts.compress,
		Encrypt:  remote.HasRecipients(),
	})
	if err != nil {
		return fmt.Errorf("publishing check file: %w", err)
	}

	fmt.Fprintf(w, "published: s3://%s/%s (%s bytes)\n", remote.Bucket(), key, humanize.Comma(size))
	return nil
}
