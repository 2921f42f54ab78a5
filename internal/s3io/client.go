package s3io

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"

	"filippo.io/age"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client is the bucket access used to publish and fetch check files.
type Client interface {
	Bucket() string

	Exists(key string) (bool, error)
	LatestMatching(prefix string) (string, int64, error)

	Upload(key string, source io.Reader) (int64, error)
	UploadCompressed(key string, source io.Reader) (int64, error)
	UploadEncrypted(key string, source io.Reader, compress bool) (int64, error)

	HasRecipients() bool

	Download(key string, sink io.Writer) (int64, error)
}

// bucket object holding the default age recipients
const recipientsKey = "keys/recipients.txt"

type client struct {
	client     *s3.Client
	bucket     *string
	recipients []age.Recipient
	identities []age.Identity
}

// NewClient connects to bucket with the named aws profile. Recipients are
// read from recipients_file, or from the bucket when that is empty;
// identities_file "default" means ~/.hashforge/identities.txt. Either may
// be absent, which only disables encrypting or decrypting.
func NewClient(profile, bucket string, identities_file, recipients_file string) (Client, error) {

	// load the profile
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithSharedConfigProfile(profile))
	if err != nil {
		return nil, err
	}

	// create the client
	s3client := s3.NewFromConfig(cfg)

	// load the encryption keys
	var recipients []age.Recipient
	if recipients_file != "" {
		recipients, err = loadRecipientsFile(recipients_file)
	} else {
		recipients, err = loadBucketRecipients(s3client, bucket)
	}
	if err != nil {
		return nil, err
	}
	identities, err := loadIdentities(identities_file)
	if err != nil {
		return nil, err
	}

	cl := client{
		client:     s3client,
		bucket:     aws.String(bucket),
		recipients: recipients,
		identities: identities,
	}

	return &cl, nil
}

func (cl *client) Bucket() string {
	return aws.ToString(cl.bucket)
}

func (cl *client) HasRecipients() bool {
	return len(cl.recipients) > 0
}

func loadRecipientsFile(recipients_file string) ([]age.Recipient, error) {
	f, err := os.Open(recipients_file)
	if err != nil {
		return nil, fmt.Errorf("opening recipients file: %w", err)
	}
	defer f.Close()

	return age.ParseRecipients(f)
}

func loadBucketRecipients(cl *s3.Client, bucket string) ([]age.Recipient, error) {

	resp, err := cl.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(recipientsKey),
	})
	if err != nil {
		var nosuchkey *types.NoSuchKey
		if errors.As(err, &nosuchkey) {
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	return age.ParseRecipients(resp.Body)
}

func loadIdentities(identities_file string) ([]age.Identity, error) {
	// set the default path for 'default'
	if identities_file == "default" {
		u, err := user.Current()
		if err != nil {
			return nil, err
		}
		identities_file = filepath.Join(u.HomeDir, ".hashforge", "identities.txt")
	}
	if identities_file == "" {
		return nil, nil
	}

	// check the file permissions
	info, err := os.Stat(identities_file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if err := checkPrivate(identities_file, info.Mode()); err != nil {
		return nil, err
	}

	// load the identities
	f, err := os.Open(identities_file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return age.ParseIdentities(f)
}

func checkPrivate(path string, perms os.FileMode) error {
	if perms&0077 != 0 {
		return &ErrPermissionsTooOpen{
			msg: fmt.Sprintf("permissions on %s are too open: %#o", path, perms.Perm()),
		}
	}
	return nil
}
