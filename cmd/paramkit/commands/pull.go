package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"paramkit/internal/manifest"
)

var (
	pullManifestFlag string
	pullExportFlag   string

	pullCmd = &cobra.Command{
		Use:   "pull",
		Short: "Resolve a manifest through the parameter store and write target files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			doc, err := manifest.Load(pullManifestFlag)
			if err != nil {
				return err
			}

			client, err := newStoreClient(ctx, logger)
			if err != nil {
				return err
			}

			reqs := doc.Requests()
			values, err := client.Get(ctx, reqs)
			if err != nil {
				return err
			}

			targets := 0
			for _, req := range reqs {
				if req.Target != "" {
					targets++
				}
			}

			if pullExportFlag != "" {
				if err := writeEnvFile(pullExportFlag, values); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote env file %s\n", pullExportFlag)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resolved %d parameters (%d target files)\n", len(values), targets)
			return nil
		},
	}
)

func init() {
	pullCmd.Flags().StringVar(&pullManifestFlag, "manifest", "paramkit.json", "Manifest file listing the parameters to resolve")
	pullCmd.Flags().StringVar(&pullExportFlag, "export-env", "", "Also write resolved values as KEY=VALUE lines to this file")
}
