package blob

import (
	"errors"

	"github.com/minio/minio-go/v7"
)

// Config holds the connection settings of an S3-compatible bucket.
type Config struct {
	// Endpoint is the server address, e.g. "localhost:9000"
	Endpoint string
	// Bucket holds every object of the store
	Bucket string
	// AccessKey and SecretKey authenticate requests
	AccessKey string
	SecretKey string
	// UseSSL selects https
	UseSSL bool
	// Prefix namespaces all keys, allowing several stores in one bucket
	Prefix string
	// CreateBucket makes the bucket when it does not exist
	CreateBucket bool

	// Client is used as is when set; the connection fields are then ignored
	Client *minio.Client

	// MultipartThreshold is the upload size above which content is streamed
	// in parts (default: 5MB)
	MultipartThreshold int64
	// MaxRenameConcurrency bounds parallel copies when moving a directory
	// (default: 10)
	MaxRenameConcurrency int
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}

	if c.Client != nil {
		return nil
	}

	if c.Endpoint == "" {
		return errors.New("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return errors.New("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return errors.New("secret key is required when client is not provided")
	}

	return nil
}
