package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/studio1767/hashforge/internal/manifest"
	"github.com/studio1767/hashforge/internal/s3io"
)

func newFetchCmd(opts *options) *cobra.Command {
	var key, label string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "fetch (--key <key> | --label <label>) <dir>",
		Short: "Download a published check file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (key == "") == (label == "") {
				return fmt.Errorf("exactly one of --key or --label is required")
			}
			if opts.bucket == "" {
				return &ErrBucketRequired{flag: "key/label"}
			}

			client, err := connect(opts.profile, opts.bucket, opts.identities, "")
			if err != nil {
				return err
			}

			if label != "" {
				key, err = manifest.Latest(client, label)
				if err != nil {
					return err
				}
			}

			return fetch(cmd.OutOrStdout(), client, key, args[0], overwrite)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&key, "key", "", "bucket key of the check file")
	flags.StringVar(&label, "label", "", "fetch the latest check file published under this label")
	flags.BoolVar(&overwrite, "overwrite", false, "overwrite an existing file")
	flags.StringVar(&opts.bucket, "bucket", "", "s3 bucket holding the check files")
	flags.StringVar(&opts.profile, "profile", "default", "aws profile for credentials and configuration")
	flags.StringVar(&opts.identities, "identities", "default", "age identities file to decrypt check files")

	return cmd
}

// fetch downloads key into dir. Compressed objects are decoded on the way
// down so the '.gz' suffix is dropped.
func fetch(w io.Writer, client s3io.Client, key, dir string, overwrite bool) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	fpath := filepath.Join(dir, strings.TrimSuffix(path.Base(key), ".gz"))

	if !overwrite {
		if _, err := os.Stat(fpath); err == nil {
			return fmt.Errorf("file already exists: %s", fpath)
		}
	}

	sink, err := os.Create(fpath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer sink.Close()

	size, err := client.Download(key, sink)
	if err != nil {
		sink.Close()
		os.Remove(fpath)
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintf(w, "fetched: %s (%s bytes)\n", fpath, humanize.Comma(size))

	return sink.Close()
}
