package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Upload writes an object to the session bucket under the session prefix.
// Uploads overwrite at the same key.
func (c *Client) Upload(ctx context.Context, key string, body []byte) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.session.Bucket),
		Key:    aws.String(c.objectKey(key)),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("PutObject %s: %w", key, err)
	}
	return nil
}

// Download reads an object from the session bucket.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.session.Bucket),
		Key:    aws.String(c.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("GetObject %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return body, nil
}

// URIFor returns the s3:// URI for a key.
func (c *Client) URIFor(key string) string {
	return fmt.Sprintf("s3://%s/%s", c.session.Bucket, c.objectKey(key))
}

func (c *Client) objectKey(key string) string {
	return path.Join(c.session.Prefix, key)
}
