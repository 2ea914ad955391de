// Package storage talks to the object-storage gateway that holds vehicle
// photos, documents, and receipts. Services depend on the BlobStore
// interface; the HTTP client below is the production implementation.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// BlobStore is the storage surface the export and commit pipelines need.
// All methods honor context cancellation.
type BlobStore interface {
	// Download fetches the object at path and returns its bytes.
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload writes data to path, overwriting any existing object.
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// Delete removes the object at path. Deleting a missing object is not
	// an error; commit uses Delete to compensate after a failed link step.
	Delete(ctx context.Context, path string) error
}

// Client is a BlobStore backed by a bucket-scoped HTTP gateway with bearer
// auth: GET/PUT/DELETE {base}/{bucket}/{path}.
type Client struct {
	base   string
	bucket string
	token  string
	http   *http.Client
}

var _ BlobStore = (*Client)(nil)

// NewClient returns a Client for the given gateway base URL, bucket, and
// bearer token.
func NewClient(baseURL, bucket, token string) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		bucket: bucket,
		token:  token,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) objectURL(path string) string {
	return c.base + "/" + c.bucket + "/" + url.PathEscape(path)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.objectURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("storage.Client.do: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.ErrCancelled
		}
		return nil, fmt.Errorf("storage.Client.do: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("storage.Client.Download: %s: %w", path, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("storage.Client.Download: %s: unexpected status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("storage.Client.Download: read body: %w", err)
	}
	return data, nil
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	resp, err := c.do(ctx, http.MethodPut, path, bytes.NewReader(data), contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("storage.Client.Upload: %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 is fine: compensation may race an object that was never written.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("storage.Client.Delete: %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
