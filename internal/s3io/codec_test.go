package s3io

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"

	"filippo.io/age"
	"github.com/stretchr/testify/require"
	"testing"
)

func roundTrip(t *testing.T, data []byte, compress bool, recipients []age.Recipient, identities []age.Identity) ([]byte, map[string]string) {
	t.Helper()

	encoded, meta := encodeStream(bytes.NewReader(data), compress, recipients)
	body, err := io.ReadAll(encoded)
	require.NoError(t, err)

	decoded, closer, err := decodeStream(bytes.NewReader(body), meta, identities)
	require.NoError(t, err)
	defer closer()

	out, err := io.ReadAll(decoded)
	require.NoError(t, err)

	return out, meta
}

func TestCodecRoundTrip(t *testing.T) {
	data := make([]byte, 256*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	recipients := []age.Recipient{identity.Recipient()}
	identities := []age.Identity{identity}

	out, meta := roundTrip(t, data, false, nil, nil)
	require.Equal(t, data, out)
	require.Empty(t, meta)

	out, meta = roundTrip(t, data, true, nil, nil)
	require.Equal(t, data, out)
	require.Equal(t, "gzip", meta[metaCompress])

	out, meta = roundTrip(t, data, false, recipients, identities)
	require.Equal(t, data, out)
	require.Equal(t, "age", meta[metaEncrypt])

	out, meta = roundTrip(t, data, true, recipients, identities)
	require.Equal(t, data, out)
	require.Len(t, meta, 4)
}

func TestCompressionShrinksText(t *testing.T) {
	data := bytes.Repeat([]byte("D41D8CD98F00B204E9800998ECF8427E *empty.bin\n"), 1000)

	encoded, _ := encodeStream(bytes.NewReader(data), true, nil)
	body, err := io.ReadAll(encoded)
	require.NoError(t, err)
	require.Less(t, len(body), len(data)/10)
}

func TestDecodeEncryptedWithoutIdentities(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	encoded, meta := encodeStream(bytes.NewReader([]byte("secret")), false, []age.Recipient{identity.Recipient()})
	body, err := io.ReadAll(encoded)
	require.NoError(t, err)

	_, _, err = decodeStream(bytes.NewReader(body), meta, nil)
	var noIdentities *ErrIdentitiesNotFound
	require.True(t, errors.As(err, &noIdentities))
}

func TestMetadataKeysAreCaseInsensitive(t *testing.T) {
	encoded, _ := encodeStream(bytes.NewReader([]byte("hello")), true, nil)
	body, err := io.ReadAll(encoded)
	require.NoError(t, err)

	// s3 returns metadata keys with their own capitalisation
	decoded, closer, err := decodeStream(bytes.NewReader(body), map[string]string{"Hashforge-Compress": "gzip"}, nil)
	require.NoError(t, err)
	defer closer()

	out, err := io.ReadAll(decoded)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out))
}
