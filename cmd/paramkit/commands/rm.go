package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"paramkit/internal/manifest"
	"paramkit/internal/paramstore"
)

var (
	rmManifestFlag string

	rmCmd = &cobra.Command{
		Use:   "rm [NAME...]",
		Short: "Delete parameters from the store and remove their target files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			var reqs []paramstore.Request
			switch {
			case rmManifestFlag != "" && len(args) > 0:
				return fmt.Errorf("pass parameter names or --manifest, not both")
			case rmManifestFlag != "":
				doc, err := manifest.Load(rmManifestFlag)
				if err != nil {
					return err
				}
				reqs = doc.Requests()
			case len(args) > 0:
				for _, name := range args {
					reqs = append(reqs, paramstore.Request{Name: name})
				}
			default:
				return fmt.Errorf("no parameters named; pass names or --manifest")
			}

			client, err := newStoreClient(ctx, logger)
			if err != nil {
				return err
			}

			publisher, err := newChangePublisher(ctx, logger)
			if err != nil {
				return err
			}

			deleted, err := client.Delete(ctx, reqs)
			if err != nil {
				return err
			}

			if publisher != nil {
				for _, name := range deleted {
					if err := publisher.PublishDelete(ctx, name); err != nil {
						logger.Warn("failed to publish change event", "name", name, "error", err)
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d parameters\n", len(deleted))
			return nil
		},
	}
)

func init() {
	rmCmd.Flags().StringVar(&rmManifestFlag, "manifest", "", "Delete every parameter in this manifest (target files included)")
}
