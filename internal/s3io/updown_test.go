package s3io_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/hashforge/internal/s3io"
)

// testClient connects to the bucket named by the environment, writing a
// fresh age key pair so encrypted uploads can round trip.
func testClient(t *testing.T) s3io.Client {
	t.Helper()

	profile := os.Getenv("HASHFORGE_TEST_PROFILE")
	bucket := os.Getenv("HASHFORGE_TEST_BUCKET")
	if profile == "" || bucket == "" {
		t.Skip("HASHFORGE_TEST_PROFILE and HASHFORGE_TEST_BUCKET not set")
	}

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	dir := t.TempDir()
	identities := filepath.Join(dir, "identities.txt")
	require.NoError(t, os.WriteFile(identities, []byte(identity.String()+"\n"), 0o600))
	recipients := filepath.Join(dir, "recipients.txt")
	require.NoError(t, os.WriteFile(recipients, []byte(identity.Recipient().String()+"\n"), 0o644))

	client, err := s3io.NewClient(profile, bucket, identities, recipients)
	require.NoError(t, err)

	return client
}

func TestExists(t *testing.T) {
	client := testClient(t)

	key := fmt.Sprintf("test-%s", time.Now().Format("20060102150405"))

	exists, err := client.Exists(key)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUpDown(t *testing.T) {
	client := testClient(t)
	require.True(t, client.HasRecipients())

	prefix := fmt.Sprintf("test-%s/", time.Now().Format("20060102150405"))

	buffers := make([][]byte, 3)
	for i := range buffers {
		buffer := make([]byte, 6*1024*1024+i*1024)
		_, err := rand.Read(buffer)
		require.NoError(t, err)
		buffers[i] = buffer
	}

	for idx, buffer := range buffers {
		key := fmt.Sprintf("%s%09d", prefix, idx)
		src := bytes.NewReader(buffer)

		var err error
		switch idx {
		case 0:
			var size int64
			size, err = client.Upload(key, src)
			require.Equal(t, len(buffer), int(size))
		case 1:
			_, err = client.UploadCompressed(key, src)
		default:
			_, err = client.UploadEncrypted(key, src, true)
		}
		require.NoError(t, err)

		exists, err := client.Exists(key)
		require.NoError(t, err)
		require.True(t, exists)
	}

	for idx, buffer := range buffers {
		key := fmt.Sprintf("%s%09d", prefix, idx)
		sink := bytes.NewBuffer(nil)

		size, err := client.Download(key, sink)
		require.NoError(t, err)
		require.Equal(t, len(buffer), int(size))
		require.Equal(t, buffer, sink.Bytes(), fmt.Sprintf("iteration %d", idx))
	}

	key, _, err := client.LatestMatching(prefix)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("%s%09d", prefix, len(buffers)-1), key)

	_, err = client.Download(prefix+"missing", bytes.NewBuffer(nil))
	var nosuch *s3io.ErrNoSuchObject
	require.True(t, errors.As(err, &nosuch))
}
