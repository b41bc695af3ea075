package paramstore

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/sync/errgroup"
)

// Delete removes a batch of parameters and returns the deleted names in
// request order.
//
// All names are submitted through combined DeleteParameters calls, chunked
// at the service's batch limit. Unlike reads, a transport failure here is
// returned to the caller: there is no degraded mode for destructive
// operations. Names the store does not confirm as deleted fail the batch
// with DeleteFailedError.
//
// Finalization fans out per request: a confirmed deletion with a Target
// removes that file, and a removal failure of any kind fails the batch with
// PersistenceError.
func (c *Client) Delete(ctx context.Context, reqs []Request) ([]string, error) {
	if err := validateBatch(reqs); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return []string{}, nil
	}

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Name
	}

	deleted := make(map[string]struct{}, len(names))

	for i := 0; i < len(names); i += maxBatchSize {
		select {
		case <-ctx.Done():
			return nil, &TransportError{
				Op:  fmt.Sprintf("delete parameters %d-%d", i, len(names)-1),
				Err: ctx.Err(),
			}
		default:
		}

		end := i + maxBatchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[i:end]

		output, err := c.api.DeleteParameters(ctx, &ssm.DeleteParametersInput{
			Names: batch,
		})
		if err != nil {
			return nil, &TransportError{
				Op:  fmt.Sprintf("delete parameters %d-%d", i, end-1),
				Err: err,
			}
		}

		for _, name := range output.DeletedParameters {
			deleted[name] = struct{}{}
		}
		// InvalidParameters stay out of the confirmation set and surface
		// below as DeleteFailedError.
	}

	var g errgroup.Group
	for _, req := range reqs {
		req := req

		g.Go(func() error {
			if _, ok := deleted[req.Name]; !ok {
				return &DeleteFailedError{Name: req.Name}
			}

			if req.Target != "" {
				if err := os.Remove(req.Target); err != nil {
					return &PersistenceError{Path: req.Target, Op: "remove", Err: err}
				}
			}

			c.logger.Info("parameter deleted", "name", req.Name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return names, nil
}
