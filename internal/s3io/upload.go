package s3io

import (
	"context"
	"io"

	"filippo.io/age"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func (cl *client) Upload(key string, source io.Reader) (int64, error) {
	return cl.upload(key, source, false, nil)
}

func (cl *client) UploadCompressed(key string, source io.Reader) (int64, error) {
	return cl.upload(key, source, true, nil)
}

func (cl *client) UploadEncrypted(key string, source io.Reader, compress bool) (int64, error) {
	if len(cl.recipients) == 0 {
		return 0, &ErrNoRecipients{}
	}
	return cl.upload(key, source, compress, cl.recipients)
}

// upload returns the number of bytes sent, after compression and
// encryption.
func (cl *client) upload(key string, source io.Reader, compress bool, recipients []age.Recipient) (int64, error) {

	body, mdata := encodeStream(source, compress, recipients)
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	counter := NewCountingReader(body)

	// the length isn't known in advance so PutObject can't be used directly
	uploader := manager.NewUploader(cl.client)

	_, err := uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:   cl.bucket,
		Key:      aws.String(key),
		Body:     counter,
		Metadata: mdata,
	})

	return counter.Bytes(), err
}
