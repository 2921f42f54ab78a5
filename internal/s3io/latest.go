package s3io

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LatestMatching returns the key and size of the lexically last object
// under prefix. Keys carry a sortable timestamp so last is newest.
func (cl *client) LatestMatching(prefix string) (string, int64, error) {

	paginator := s3.NewListObjectsV2Paginator(cl.client, &s3.ListObjectsV2Input{
		Bucket: cl.bucket,
		Prefix: aws.String(prefix),
	})

	latest := ""
	var size int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return "", 0, err
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if key > latest {
				latest = key
				size = aws.ToInt64(object.Size)
			}
		}
	}

	if latest == "" {
		return "", 0, &ErrNoMatch{
			msg: fmt.Sprintf("no objects found with prefix: %s", prefix),
		}
	}

	return latest, size, nil
}
