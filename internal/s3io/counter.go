package s3io

import (
	"io"
)

// CountingReader tallies the calls and bytes read through it.
type CountingReader struct {
	in    io.Reader
	reads int
	bytes int64
}

func NewCountingReader(in io.Reader) *CountingReader {
	return &CountingReader{in: in}
}

func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.in.Read(p)

	cr.reads++
	cr.bytes += int64(n)

	return n, err
}

func (cr *CountingReader) Reads() int {
	return cr.reads
}

func (cr *CountingReader) Bytes() int64 {
	return cr.bytes
}

// CountingWriter tallies the calls and bytes written through it.
type CountingWriter struct {
	out    io.Writer
	writes int
	bytes  int64
}

func NewCountingWriter(out io.Writer) *CountingWriter {
	return &CountingWriter{out: out}
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.out.Write(p)

	cw.writes++
	cw.bytes += int64(n)

	return n, err
}

func (cw *CountingWriter) Writes() int {
	return cw.writes
}

func (cw *CountingWriter) Bytes() int64 {
	return cw.bytes
}
