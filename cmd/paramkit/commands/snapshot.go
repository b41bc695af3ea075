package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"paramkit/internal/config"
	"paramkit/internal/manifest"
	"paramkit/internal/paramstore"
	"paramkit/internal/snapshot"
)

var (
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Sealed offline snapshots of resolved parameters",
	}

	snapSaveManifestFlag string
	snapSaveOutFlag      string

	snapshotSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Resolve a manifest and seal the values into an encrypted snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			// The passphrase stays wrapped until the seal call so it can
			// never leak through wrapped errors or logging.
			passphrase := config.SnapshotPassphrase()
			if passphrase.Unmask() == "" {
				return fmt.Errorf("%s must be set", config.SnapshotPassphraseEnv)
			}

			doc, err := manifest.Load(snapSaveManifestFlag)
			if err != nil {
				return err
			}

			// Snapshots capture values only; target files are not written
			// during save.
			reqs := doc.Requests()
			for i := range reqs {
				reqs[i].Target = ""
			}

			client, err := newStoreClient(ctx, logger)
			if err != nil {
				return err
			}

			values, err := client.Get(ctx, reqs)
			if err != nil {
				return err
			}

			if err := snapshot.Seal(snapSaveOutFlag, values, passphrase.Unmask()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sealed %d parameters to %s\n", len(values), snapSaveOutFlag)
			return nil
		},
	}

	snapRestoreInFlag       string
	snapRestoreExportFlag   string
	snapRestoreManifestFlag string

	snapshotRestoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Open a sealed snapshot and write its values to target files or an env file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapRestoreExportFlag != "" && snapRestoreManifestFlag != "" {
				return fmt.Errorf("--export-env and --manifest are mutually exclusive")
			}

			passphrase := config.SnapshotPassphrase()
			if passphrase.Unmask() == "" {
				return fmt.Errorf("%s must be set", config.SnapshotPassphraseEnv)
			}

			snap, err := snapshot.Open(snapRestoreInFlag, passphrase.Unmask())
			if err != nil {
				return err
			}

			if snapRestoreManifestFlag != "" {
				doc, err := manifest.Load(snapRestoreManifestFlag)
				if err != nil {
					return err
				}
				written, err := restoreTargets(doc, snap.Values)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d target files\n", written)
				return nil
			}

			if snapRestoreExportFlag != "" {
				if err := writeEnvFile(snapRestoreExportFlag, snap.Values); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote env file %s\n", snapRestoreExportFlag)
				return nil
			}

			// Without a write destination, list the contents; values stay
			// sealed away from the terminal.
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot from %s (%d parameters)\n",
				snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), len(snap.Values))
			for _, name := range sortedNames(snap.Values) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
			}
			return nil
		},
	}
)

// restoreTargets materializes snapshot values to the manifest's target
// files, with the same durable-write discipline store reads apply. Entries
// without a target are skipped. An entry whose value is in neither the
// snapshot nor its default fails the restore.
func restoreTargets(doc *manifest.Document, values map[string]string) (int, error) {
	written := 0
	for _, entry := range doc.Parameters {
		if entry.Target == "" {
			continue
		}

		value, ok := values[entry.Name]
		if !ok {
			if entry.Default == nil {
				return written, fmt.Errorf("snapshot has no value for %q and the manifest gives no default", entry.Name)
			}
			value = *entry.Default
		}

		if err := paramstore.WriteTarget(entry.Target, value); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func init() {
	snapshotSaveCmd.Flags().StringVar(&snapSaveManifestFlag, "manifest", "paramkit.json", "Manifest file listing the parameters to seal")
	snapshotSaveCmd.Flags().StringVar(&snapSaveOutFlag, "out", "paramkit.snap", "Snapshot file to write")

	snapshotRestoreCmd.Flags().StringVar(&snapRestoreInFlag, "in", "paramkit.snap", "Snapshot file to open")
	snapshotRestoreCmd.Flags().StringVar(&snapRestoreExportFlag, "export-env", "", "Write snapshot values as KEY=VALUE lines to this file")
	snapshotRestoreCmd.Flags().StringVar(&snapRestoreManifestFlag, "manifest", "", "Write snapshot values to this manifest's target files")

	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
}
