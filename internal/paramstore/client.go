// Package paramstore implements the parameter client: batched reads, writes
// and deletes against AWS Systems Manager Parameter Store, with optional
// durable materialization of resolved values to local files.
//
// Reads degrade: a transport failure is reported through the error callback
// and affected names fall back to their request defaults. Writes and deletes
// surface transport failures to the caller. Within a batch, the remote phase
// runs first as combined API calls; per-request finalization (default
// resolution, target file writes or removals) then fans out concurrently and
// the first failure aborts the batch.
package paramstore

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// maxBatchSize is the maximum number of parameter names accepted by a single
// GetParameters or DeleteParameters API call. This is an AWS service limit.
const maxBatchSize = 10

// SSMAPI is the subset of the SSM SDK client used by Client. Callers may
// supply their own implementation through WithAPI; tests use a mock.
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameters(ctx context.Context, params *ssm.DeleteParametersInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParametersOutput, error)
}

// Client performs parameter store operations. It holds no state beyond its
// configuration and is safe for concurrent use; the underlying SDK client
// pools transport connections across calls.
type Client struct {
	api     SSMAPI
	region  string
	onError func(error)
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRegion sets the AWS region used when the Client constructs its own
// service handle. It has no effect when WithAPI supplies one.
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// WithAPI injects a service handle which is used as-is. The Client performs
// no credential or region resolution of its own in that case.
func WithAPI(api SSMAPI) Option {
	return func(c *Client) {
		c.api = api
	}
}

// WithOnError sets the callback invoked for recoverable errors: read
// transport failures and close failures after a successful sync. The
// default callback logs the error and continues.
func WithOnError(fn func(error)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client. Unless WithAPI supplies a handle, the SSM client is
// built once here from the default AWS config chain, scoped to the region
// given with WithRegion.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.onError == nil {
		logger := c.logger
		c.onError = func(err error) {
			logger.Error("parameter store error", "error", err)
		}
	}

	if c.api == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if c.region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(c.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for parameter store (region=%s): %w", c.region, err)
		}
		c.api = ssm.NewFromConfig(cfg)
	}

	return c, nil
}

// validateBatch checks that every request carries a non-empty name and that
// no name repeats within the batch. Results are keyed by name, so a
// duplicate would silently collapse two requests into one.
func validateBatch(reqs []Request) error {
	seen := make(map[string]struct{}, len(reqs))
	for i, req := range reqs {
		if req.Name == "" {
			return fmt.Errorf("paramstore: request %d has an empty parameter name", i)
		}
		if _, dup := seen[req.Name]; dup {
			return fmt.Errorf("paramstore: duplicate parameter name %q in batch", req.Name)
		}
		seen[req.Name] = struct{}{}
	}
	return nil
}
