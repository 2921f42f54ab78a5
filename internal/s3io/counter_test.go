package s3io_test

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/hashforge/internal/s3io"
)

func TestCountersStartAtZero(t *testing.T) {
	cw := s3io.NewCountingWriter(new(bytes.Buffer))
	require.Equal(t, 0, cw.Writes())
	require.Equal(t, int64(0), cw.Bytes())

	cr := s3io.NewCountingReader(new(bytes.Buffer))
	require.Equal(t, 0, cr.Reads())
	require.Equal(t, int64(0), cr.Bytes())
}

func TestCountingWriterTalliesWrites(t *testing.T) {
	sink := bytes.NewBuffer(nil)
	cw := s3io.NewCountingWriter(sink)

	data := make([]byte, 1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		n, err := cw.Write(data)
		require.NoError(t, err)
		require.Equal(t, len(data), n)
	}

	require.Equal(t, 5, cw.Writes())
	require.Equal(t, int64(5*len(data)), cw.Bytes())
	require.Equal(t, bytes.Repeat(data, 5), sink.Bytes())
}

func TestCountingReaderTalliesReads(t *testing.T) {
	src := make([]byte, 5*1024)
	_, err := rand.Read(src)
	require.NoError(t, err)

	cr := s3io.NewCountingReader(bytes.NewReader(src))

	dst := make([]byte, 1024)
	for i := 0; i < 5; i++ {
		n, err := cr.Read(dst)
		require.NoError(t, err)
		require.Equal(t, len(dst), n)
		require.Equal(t, src[i*1024:(i+1)*1024], dst)
	}

	require.Equal(t, 5, cr.Reads())
	require.Equal(t, int64(len(src)), cr.Bytes())

	// the reader at EOF still counts the call
	n, err := cr.Read(dst)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 6, cr.Reads())
	require.Equal(t, int64(len(src)), cr.Bytes())
}
