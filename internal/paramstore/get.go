package paramstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/sync/errgroup"
)

// Get resolves a batch of parameters and returns a map of name to value.
//
// The remote phase runs first: all names are fetched through combined
// GetParameters calls with decryption, chunked at the service's batch limit.
// A failed chunk is reported through the error callback and its names are
// treated as absent from the store, so they resolve to their defaults.
//
// Finalization then fans out per request. A name with neither a remote
// value nor a default fails the batch with MissingParameterError. Requests
// with a Target have their resolved value written durably before the batch
// completes. The first failure aborts the batch; on success the returned
// map holds exactly one value per requested name.
func (c *Client) Get(ctx context.Context, reqs []Request) (map[string]string, error) {
	if err := validateBatch(reqs); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return map[string]string{}, nil
	}

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Name
	}

	remote := c.fetchRemote(ctx, names)

	results := make(map[string]string, len(reqs))
	var mu sync.Mutex

	var g errgroup.Group
	for _, req := range reqs {
		req := req

		g.Go(func() error {
			value, ok := remote[req.Name]
			if !ok {
				if req.Default == nil {
					return &MissingParameterError{Name: req.Name}
				}
				value = *req.Default
			}

			if req.Target != "" {
				if err := c.persist(req.Target, value); err != nil {
					return err
				}
			}

			mu.Lock()
			results[req.Name] = value
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// fetchRemote retrieves values for the given names in chunks of maxBatchSize.
// Transport failures degrade: the chunk is reported through the error
// callback and contributes no values, leaving its names to default
// resolution. Names the store flags as invalid are likewise simply absent
// from the returned map.
func (c *Client) fetchRemote(ctx context.Context, names []string) map[string]string {
	remote := make(map[string]string, len(names))

	for i := 0; i < len(names); i += maxBatchSize {
		// Check context cancellation before each chunk. Remaining names
		// degrade rather than fetch against a dead context.
		select {
		case <-ctx.Done():
			c.onError(&TransportError{
				Op:  fmt.Sprintf("get parameters %d-%d", i, len(names)-1),
				Err: ctx.Err(),
			})
			return remote
		default:
		}

		end := i + maxBatchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[i:end]

		output, err := c.api.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          batch,
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			c.onError(&TransportError{
				Op:  fmt.Sprintf("get parameters %d-%d", i, end-1),
				Err: err,
			})
			continue
		}

		for _, param := range output.Parameters {
			if param.Name != nil && param.Value != nil {
				remote[*param.Name] = *param.Value
			}
		}

		if len(output.InvalidParameters) > 0 {
			c.logger.Debug("parameters not present in store",
				"names", output.InvalidParameters,
			)
		}
	}

	return remote
}
