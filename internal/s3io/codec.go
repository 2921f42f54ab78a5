package s3io

import (
	"io"
	"strings"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"
)

// object metadata keys describing how a body was encoded
const (
	metaCompress        = "hashforge-compress"
	metaCompressVersion = "hashforge-compress-version"
	metaEncrypt         = "hashforge-encrypt"
	metaEncryptVersion  = "hashforge-encrypt-version"
)

// encodeStream wraps source with gzip compression and then age
// encryption, as requested. The returned metadata records the encoding
// for the object. Compression and encryption run in goroutines feeding
// io.Pipes, so the result is a plain reader for the uploader.
func encodeStream(source io.Reader, compress bool, recipients []age.Recipient) (io.Reader, map[string]string) {
	mdata := make(map[string]string)

	if compress {
		mdata[metaCompress] = "gzip"
		mdata[metaCompressVersion] = "001"

		reader, writer := io.Pipe()
		go func(src io.Reader) {
			gzwriter := gzip.NewWriter(writer)
			_, err := io.Copy(gzwriter, src)
			if cerr := gzwriter.Close(); err == nil {
				err = cerr
			}
			writer.CloseWithError(err)
		}(source)

		source = reader
	}

	if len(recipients) > 0 {
		mdata[metaEncrypt] = "age"
		mdata[metaEncryptVersion] = "001"

		reader, writer := io.Pipe()
		go func(src io.Reader) {
			ewriter, err := age.Encrypt(writer, recipients...)
			if err != nil {
				writer.CloseWithError(err)
				return
			}
			_, err = io.Copy(ewriter, src)
			if cerr := ewriter.Close(); err == nil {
				err = cerr
			}
			writer.CloseWithError(err)
		}(source)

		source = reader
	}

	return source, mdata
}

// decodeStream undoes encodeStream using the object's metadata: decrypt
// first, then decompress. The returned close function releases the
// decompressor.
func decodeStream(body io.Reader, meta map[string]string, identities []age.Identity) (io.Reader, func() error, error) {
	compressed := false
	encrypted := false
	for k := range meta {
		switch strings.ToLower(k) {
		case metaCompress:
			compressed = true
		case metaEncrypt:
			encrypted = true
		}
	}

	reader := body
	closer := func() error { return nil }

	if encrypted {
		if len(identities) == 0 {
			return nil, nil, &ErrIdentitiesNotFound{}
		}
		dreader, err := age.Decrypt(reader, identities...)
		if err != nil {
			return nil, nil, err
		}
		reader = dreader
	}

	if compressed {
		gzreader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, err
		}
		reader = gzreader
		closer = gzreader.Close
	}

	return reader, closer, nil
}
