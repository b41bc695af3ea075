package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paramkit/internal/paramstore"
)

var (
	pushValueFlag     string
	pushValueFileFlag string
	pushEncryptedFlag bool
	pushKeyIDFlag     string
	pushDescFlag      string
	pushOverwriteFlag bool
	pushTargetFlag    string

	pushCmd = &cobra.Command{
		Use:   "push NAME",
		Short: "Write one parameter to the store and read back its stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			name := args[0]

			content, err := resolvePushContent(cmd)
			if err != nil {
				return err
			}

			client, err := newStoreClient(ctx, logger)
			if err != nil {
				return err
			}

			publisher, err := newChangePublisher(ctx, logger)
			if err != nil {
				return err
			}

			stored, err := client.Put(ctx, paramstore.WriteRequest{
				Request: paramstore.Request{
					Name:   name,
					Target: pushTargetFlag,
				},
				Content:     content,
				Encrypted:   pushEncryptedFlag,
				KeyID:       pushKeyIDFlag,
				Description: pushDescFlag,
				Overwrite:   pushOverwriteFlag,
			})
			if err != nil {
				return err
			}

			if publisher != nil {
				// The event carries a fingerprint of the stored value, not
				// the value itself.
				if err := publisher.PublishPut(ctx, name, stored); err != nil {
					logger.Warn("failed to publish change event", "name", name, "error", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", name)
			return nil
		},
	}
)

// resolvePushContent returns the parameter content from exactly one of
// --value or --value-file. The Changed check keeps --value "" usable for
// pushing an empty value.
func resolvePushContent(cmd *cobra.Command) (string, error) {
	valueSet := cmd.Flags().Changed("value")
	fileSet := cmd.Flags().Changed("value-file")

	switch {
	case valueSet && fileSet:
		return "", fmt.Errorf("--value and --value-file are mutually exclusive")
	case fileSet:
		data, err := os.ReadFile(pushValueFileFlag)
		if err != nil {
			return "", fmt.Errorf("reading value file: %w", err)
		}
		return string(data), nil
	case valueSet:
		return pushValueFlag, nil
	default:
		return "", fmt.Errorf("one of --value or --value-file is required")
	}
}

func init() {
	pushCmd.Flags().StringVar(&pushValueFlag, "value", "", "Parameter content")
	pushCmd.Flags().StringVar(&pushValueFileFlag, "value-file", "", "Read parameter content from this file")
	pushCmd.Flags().BoolVar(&pushEncryptedFlag, "encrypted", false, "Store as an encrypted parameter")
	pushCmd.Flags().StringVar(&pushKeyIDFlag, "key-id", "", "KMS key for encrypted parameters (store default when empty)")
	pushCmd.Flags().StringVar(&pushDescFlag, "description", "", "Parameter description")
	pushCmd.Flags().BoolVar(&pushOverwriteFlag, "overwrite", false, "Replace an existing parameter")
	pushCmd.Flags().StringVar(&pushTargetFlag, "target", "", "Also persist the stored value to this file")
}
