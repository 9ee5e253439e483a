// Package docstore keeps uploaded tender source documents in Cloudflare R2
// (S3-compatible) storage, keyed by analysis run.
package docstore

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client provides access to the document bucket.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates a new document store client.
func NewClient(accountID, accessKeyID, secretAccessKey, bucket string) (*Client, error) {
	if accountID == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("document storage credentials not configured")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{
		s3Client: s3Client,
		bucket:   bucket,
	}, nil
}

// key builds the object key for one analysis document.
func key(analysisID, fileName string) string {
	return path.Join("tenders", analysisID, fileName)
}

// SaveDocument stores the source document for an analysis run and returns
// its object key.
func (c *Client) SaveDocument(ctx context.Context, analysisID, fileName string, body io.Reader, contentType string) (string, error) {
	objectKey := key(analysisID, fileName)
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	return objectKey, nil
}

// GetDocument retrieves a stored source document.
func (c *Client) GetDocument(ctx context.Context, analysisID, fileName string) (io.ReadCloser, error) {
	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key(analysisID, fileName)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	return result.Body, nil
}

// DeleteDocuments removes all stored documents for an analysis run.
func (c *Client) DeleteDocuments(ctx context.Context, analysisID string) error {
	prefix := path.Join("tenders", analysisID) + "/"
	list, err := c.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, obj := range list.Contents {
		_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			return fmt.Errorf("failed to delete document %s: %w", aws.ToString(obj.Key), err)
		}
	}
	return nil
}
