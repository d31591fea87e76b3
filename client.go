// Package fixturefetch provisions local test-fixture trees from S3
// requester-pays buckets, driven by a declarative manifest.
//
// The Client provides a high-level interface for materializing fixture
// targets: existing files are skipped, missing ones are downloaded with
// bounded concurrency, and partial downloads never reach their final path.
package fixturefetch

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/s3api"
)

// Client represents a fixture client with configurable options.
// It provides thread-safe access to provisioning operations with built-in
// retry logic, concurrency control, and progress tracking.
type Client struct {
	// s3Client is the underlying AWS SDK S3 client
	s3Client s3api.S3API

	// config holds the AWS configuration
	config aws.Config

	// clientCfg holds the resolved client options
	clientCfg fetchtypes.ClientConfig

	// mu protects concurrent access to client configuration
	mu sync.RWMutex

	// fs is the filesystem abstraction for file operations
	fs fs.Filesystem
}

// New creates a new fixture client with the provided options.
// It loads AWS credentials using the default credential chain
// and applies the specified configuration options.
//
// Example:
//
//	client, err := fixturefetch.New(
//	    fixturefetch.WithRegion("us-east-1"),
//	    fixturefetch.WithRequesterPays(true),
//	)
func New(opts ...fetchtypes.Option) (*Client, error) {
	clientCfg := &fetchtypes.ClientConfig{
		MaxRetries:  3, // Default retry count
		Timeout:     0, // No timeout by default
		Concurrency: 5, // Default concurrency
	}

	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1" // AWS default region
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	if clientCfg.CustomHTTPClient != nil {
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	} else if clientCfg.Timeout > 0 {
		httpClient := &http.Client{
			Timeout: clientCfg.Timeout,
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	// Use the provided filesystem or default to the OS filesystem rooted at
	// the current directory, matching build-target path semantics.
	var filesystem fs.Filesystem
	if clientCfg.Filesystem != nil {
		filesystem = clientCfg.Filesystem
	} else {
		filesystem = fs.NewOSFS(".")
	}

	client := &Client{
		s3Client:  s3Client,
		config:    cfg,
		clientCfg: *clientCfg,
		fs:        filesystem,
	}

	return client, nil
}

// NewWithClient creates a new fixture client with a custom S3API
// implementation. This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...fetchtypes.Option) *Client {
	clientCfg := &fetchtypes.ClientConfig{
		Concurrency: 5,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	var filesystem fs.Filesystem
	if clientCfg.Filesystem != nil {
		filesystem = clientCfg.Filesystem
	} else {
		filesystem = fs.NewOSFS(".")
	}

	return &Client{
		s3Client:  s3Client,
		config:    aws.Config{},
		clientCfg: *clientCfg,
		fs:        filesystem,
	}
}

// SetFilesystem sets the filesystem implementation for the client.
// This is useful for testing or when the filesystem needs to be changed after creation.
func (c *Client) SetFilesystem(filesystem fs.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = filesystem
}

// getFilesystem returns the current filesystem under the read lock.
//
//nolint:ireturn // internal accessor returns the Filesystem interface by design.
func (c *Client) getFilesystem() fs.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// getClientConfig returns a copy of the resolved client options.
func (c *Client) getClientConfig() fetchtypes.ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientCfg
}

// Close releases any resources held by the client.
// Currently a no-op but included for future extensibility.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return nil
}
