package paramstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Put writes one parameter and returns its value as the store reports it
// afterwards. Encrypted requests are stored as SecureString under KeyID
// (or the account default key); plain requests as String. Any rejection by
// the store, including writing an existing name without Overwrite, is
// returned as a TransportError and leaves the target file untouched.
//
// After a successful write the value is read back through the same path Get
// uses, so a request with a Target also has the file materialized.
func (c *Client) Put(ctx context.Context, req WriteRequest) (string, error) {
	if req.Name == "" {
		return "", fmt.Errorf("paramstore: write request has an empty parameter name")
	}

	paramType := ssmtypes.ParameterTypeString
	if req.Encrypted {
		paramType = ssmtypes.ParameterTypeSecureString
	}

	input := &ssm.PutParameterInput{
		Name:      aws.String(req.Name),
		Value:     aws.String(req.Content),
		Type:      paramType,
		Overwrite: aws.Bool(req.Overwrite),
	}
	if req.KeyID != "" {
		input.KeyId = aws.String(req.KeyID)
	}
	if req.Description != "" {
		input.Description = aws.String(req.Description)
	}

	output, err := c.api.PutParameter(ctx, input)
	if err != nil {
		var alreadyExists *ssmtypes.ParameterAlreadyExists
		if errors.As(err, &alreadyExists) {
			c.logger.Warn("parameter already exists (use overwrite to replace)",
				"name", req.Name,
			)
		}
		return "", &TransportError{
			Op:  fmt.Sprintf("put parameter %q", req.Name),
			Err: err,
		}
	}

	// Log without exposing the value for encrypted parameters.
	if req.Encrypted {
		c.logger.Info("parameter written",
			"name", req.Name,
			"type", string(paramType),
			"version", output.Version,
			"value_length", len(req.Content),
		)
	} else {
		c.logger.Info("parameter written",
			"name", req.Name,
			"type", string(paramType),
			"version", output.Version,
		)
	}

	values, err := c.Get(ctx, []Request{req.Request})
	if err != nil {
		return "", err
	}
	return values[req.Name], nil
}
