// Package gcsbatch moves transaction CSV batches between the local machine
// and Google Cloud Storage. Application Default Credentials are assumed
// (gcloud auth application-default login).
package gcsbatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Storage is the interface the pipeline and handlers depend on, so tests can
// swap in an in-memory implementation.
type Storage interface {
	// Upload uploads a local CSV file to a bucket under the given object name.
	Upload(ctx context.Context, bucketName, objectName, filePath string) error

	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// Client talks to real GCS.
type Client struct{}

// NewClient creates a GCS-backed Storage.
func NewClient() *Client {
	return &Client{}
}

var _ Storage = (*Client)(nil)

// Upload uploads a local file to a GCS bucket under the given object name.
func (c *Client) Upload(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("gcsbatch: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("gcsbatch: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcsbatch: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcsbatch: finalize upload: %w", err)
	}

	return nil
}

// Fetch downloads the batch bytes from the given GCS URI,
// e.g. "gs://bucket/batches/2024-06.csv".
func (c *Client) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := SplitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsbatch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsbatch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("gcsbatch: reading bytes: %w", err)
	}

	return data, nil
}

// SplitURI splits a gs:// URI into bucket and object path.
func SplitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("gcsbatch: invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("gcsbatch: invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

// Filename extracts the object filename from a GCS URI.
// e.g. "gs://bucket/batches/june.csv" -> "june.csv".
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
