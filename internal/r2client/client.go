// Package r2client talks to Cloudflare R2 through the S3 API: plain and
// conditional object writes, zstd streaming, and a lease-style lock built on
// conditional writes.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// ObjectStore is the subset of R2 the snapshot manager and the lock need.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	HeadObject(ctx context.Context, key string) (string, error)
	PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error)
	PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Config holds R2 connection settings.
type Config struct {
	Endpoint    string // e.g. https://<account>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Validate reports the first missing field.
func (c Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return errors.New("r2client: endpoint is required")
	case c.AccessKeyID == "":
		return errors.New("r2client: access key id is required")
	case c.SecretKey == "":
		return errors.New("r2client: secret key is required")
	case c.BucketName == "":
		return errors.New("r2client: bucket name is required")
	}
	return nil
}

// Client is an ObjectStore backed by R2.
type Client struct {
	s3     *s3.Client
	bucket string
}

var _ ObjectStore = (*Client)(nil)

// New builds a client for one bucket.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &Client{s3: client, bucket: cfg.BucketName}, nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, "\"")
}

// put issues one PutObject. cond sets the precondition header, if any.
func (c *Client) put(ctx context.Context, key string, body io.Reader, contentType string, cond func(*s3.PutObjectInput)) (string, error) {
	in := &s3.PutObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key), Body: body}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if cond != nil {
		cond(in)
	}
	out, err := c.s3.PutObject(ctx, in)
	if err != nil {
		return "", err
	}
	return trimETag(out.ETag), nil
}

// putConditional reports false, without an error, when R2 rejects the
// precondition.
func (c *Client) putConditional(ctx context.Context, op, key string, body io.Reader, contentType string, cond func(*s3.PutObjectInput)) (bool, string, error) {
	etag, err := c.put(ctx, key, body, contentType, cond)
	switch {
	case err == nil:
		return true, etag, nil
	case isPreconditionFailed(err):
		return false, "", nil
	default:
		return false, "", fmt.Errorf("r2client: %s %q: %w", op, key, err)
	}
}

// Upload writes an object and returns its ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	etag, err := c.put(ctx, key, body, contentType, nil)
	if err != nil {
		return "", fmt.Errorf("r2client: upload %q: %w", key, err)
	}
	return etag, nil
}

// Download opens an object. The caller closes the body.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("r2client: download %q: %w", key, err)
	}
	return out.Body, trimETag(out.ETag), nil
}

// HeadObject returns the ETag of an object without fetching it.
func (c *Client) HeadObject(ctx context.Context, key string) (string, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("r2client: head %q: %w", key, err)
	}
	return trimETag(out.ETag), nil
}

// PutObjectIfNotExists creates an object only when the key is free
// (If-None-Match: *). It reports false when the object already exists.
func (c *Client) PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	return c.putConditional(ctx, "create", key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfNoneMatch = aws.String("*")
	})
}

// PutObjectIfMatch replaces an object only while its ETag still matches.
// It reports false when someone else wrote it first.
func (c *Client) PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error) {
	return c.putConditional(ctx, "replace", key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfMatch = aws.String(`"` + etag + `"`)
	})
}

// DeleteObject removes an object.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("r2client: delete %q: %w", key, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	return hasCode(err, "PreconditionFailed") || hasStatus(err, http.StatusPreconditionFailed)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf) ||
		hasCode(err, "NoSuchKey", "NotFound", "404") || hasStatus(err, http.StatusNotFound)
}

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return slices.Contains(codes, apiErr.ErrorCode())
}

func hasStatus(err error, status int) bool {
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == status
}
