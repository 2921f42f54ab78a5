package s3io

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var downloadable = map[string]bool{
	"":                                 true,
	string(types.StorageClassStandard): true,
	string(types.StorageClassReducedRedundancy): true,
	string(types.StorageClassStandardIa):        true,
	string(types.StorageClassOnezoneIa):         true,
	string(types.StorageClassIntelligentTiering): true,
}

func (cl *client) checkDownloadable(key string) error {
	hoo, err := cl.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return &ErrNoSuchObject{key: key}
		}
		return err
	}

	sclass := string(hoo.StorageClass)
	if downloadable[sclass] {
		return nil
	}

	return &ErrNotDownloadable{
		key:          key,
		storageClass: sclass,
	}
}

// Download writes the decoded object to sink and returns the number of
// decoded bytes.
func (cl *client) Download(key string, sink io.Writer) (int64, error) {

	if err := cl.checkDownloadable(key); err != nil {
		return 0, err
	}

	resp, err := cl.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var nosuchkey *types.NoSuchKey
		if errors.As(err, &nosuchkey) {
			return 0, &ErrNoSuchObject{key: key}
		}
		return 0, err
	}
	defer resp.Body.Close()

	reader, closer, err := decodeStream(resp.Body, resp.Metadata, cl.identities)
	if err != nil {
		return 0, err
	}
	defer closer()

	counter := NewCountingWriter(sink)
	if _, err := io.Copy(counter, reader); err != nil {
		return counter.Bytes(), err
	}

	return counter.Bytes(), nil
}
