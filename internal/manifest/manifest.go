// Package manifest publishes check files to a bucket and fetches them back.
// Keys are laid out as
//
//	checksums/<label>/<label>-<YYYY-MM-DD>-<seconds>.<ext>[.gz]
//
// so the lexically last key under a label is the most recent upload.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio1767/hashforge/internal/s3io"
)

const keyRoot = "checksums"

type ErrNoSuchManifest struct {
	msg string
}

func (e *ErrNoSuchManifest) Error() string {
	return e.msg
}

type ErrKeyCollision struct {
	key string
}

func (e *ErrKeyCollision) Error() string {
	return fmt.Sprintf("no free key for check file near: %s", e.key)
}

// how many seconds Upload steps forward looking for an unused key
const maxKeyAttempts = 60

type ErrInvalidLabel struct {
	label string
}

func (e *ErrInvalidLabel) Error() string {
	return fmt.Sprintf("invalid label %q: must be non-empty without '/'", e.label)
}

// PublishOptions select how the check file is stored.
type PublishOptions struct {
	Compress bool
	Encrypt  bool
}

func validLabel(label string) error {
	if label == "" || strings.ContainsAny(label, "/\\") || label == "." || label == ".." {
		return &ErrInvalidLabel{label: label}
	}
	return nil
}

// Key builds the object key for a check file published at now.
func Key(label, ext string, now time.Time, compress bool) string {
	stamp := now.Format("2006-01-02")
	seconds := (((now.Hour() * 60) + now.Minute()) * 60) + now.Second()

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "txt"
	}

	key := fmt.Sprintf("%s/%s/%s-%s-%05d.%s", keyRoot, label, label, stamp, seconds, ext)
	if compress {
		key += ".gz"
	}
	return key
}

// Upload stores source under a fresh key for label and returns the key.
func Upload(client s3io.Client, source io.Reader, label, ext string, now time.Time, opts PublishOptions) (string, error) {
	if err := validLabel(label); err != nil {
		return "", err
	}

	// keys have one second resolution; step forward past any taken key
	// so an earlier upload is never overwritten
	mkey := ""
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		candidate := Key(label, ext, now.Add(time.Duration(attempt)*time.Second), opts.Compress)
		exists, err := client.Exists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			mkey = candidate
			break
		}
	}
	if mkey == "" {
		return "", &ErrKeyCollision{key: Key(label, ext, now, opts.Compress)}
	}

	var err error
	switch {
	case opts.Encrypt:
		_, err = client.UploadEncrypted(mkey, source, opts.Compress)
	case opts.Compress:
		_, err = client.UploadCompressed(mkey, source)
	default:
		_, err = client.Upload(mkey, source)
	}

	return mkey, err
}

// Latest returns the key of the most recent check file published for label.
func Latest(client s3io.Client, label string) (string, error) {
	if err := validLabel(label); err != nil {
		return "", err
	}

	prefix := fmt.Sprintf("%s/%s/", keyRoot, label)

	mkey, _, err := client.LatestMatching(prefix)
	if err != nil {
		var nomatch *s3io.ErrNoMatch
		if errors.As(err, &nomatch) {
			return "", &ErrNoSuchManifest{
				msg: fmt.Sprintf("no check file published for label: %s", label),
			}
		}
		return "", err
	}

	return mkey, nil
}

// Download fetches the latest check file published for label into a
// temporary file positioned at the start. The caller closes and removes it.
func Download(client s3io.Client, label string) (*os.File, string, error) {
	mkey, err := Latest(client, label)
	if err != nil {
		return nil, "", err
	}

	f, err := DownloadWithKey(client, mkey)

	return f, mkey, err
}

// DownloadWithKey fetches one object into a temporary file. Compressed
// objects are decompressed on download so the '.gz' suffix is dropped from
// the file name.
func DownloadWithKey(client s3io.Client, mkey string) (*os.File, error) {
	mname := strings.TrimSuffix(path.Base(mkey), ".gz")

	f, err := os.CreateTemp("", "*-"+mname)
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	if _, err := client.Download(mkey, f); err != nil {
		cleanup()
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, err
	}

	return f, nil
}
