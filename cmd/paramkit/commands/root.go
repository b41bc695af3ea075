// Package commands implements the paramkit CLI command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"paramkit/internal/events"
	"paramkit/internal/paramstore"
)

const rootCmdUse = "paramkit"

var (
	regionFlag      string
	eventsQueueFlag string
	verboseFlag     bool

	RootCmd = &cobra.Command{
		Use:           rootCmdUse,
		Short:         "paramkit, manage application parameters in the parameter store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. Interrupts cancel the command context so
// in-flight store calls abort cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	AttachGlobalOptions(RootCmd.PersistentFlags())

	RootCmd.AddCommand(pullCmd)
	RootCmd.AddCommand(pushCmd)
	RootCmd.AddCommand(rmCmd)
	RootCmd.AddCommand(snapshotCmd)
}

// AttachGlobalOptions registers the flags shared by every subcommand.
func AttachGlobalOptions(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&regionFlag, "region", "", "AWS region override (defaults to ambient resolution)")
	flagSet.StringVar(&eventsQueueFlag, "events-queue", "", "SQS queue URL for parameter change events")
	flagSet.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

// newLogger builds the CLI logger. Quiet by default; --verbose turns on
// debug output on stderr so stdout stays parseable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// newStoreClient builds the parameter store client from the global flags.
func newStoreClient(ctx context.Context, logger *slog.Logger) (*paramstore.Client, error) {
	client, err := paramstore.New(ctx,
		paramstore.WithRegion(regionFlag),
		paramstore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parameter store client: %w", err)
	}
	return client, nil
}

// newChangePublisher builds the change event publisher when --events-queue
// is set; nil otherwise.
func newChangePublisher(ctx context.Context, logger *slog.Logger) (*events.Publisher, error) {
	if eventsQueueFlag == "" {
		return nil, nil
	}

	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	return events.NewPublisher(sqs.NewFromConfig(awsCfg), eventsQueueFlag, logger), nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if regionFlag != "" {
		opts = append(opts, awsconfig.WithRegion(regionFlag))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
