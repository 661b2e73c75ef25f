package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kpatap/internal/config"
	"github.com/alfredjeanlab/kpatap/internal/emit"
	"github.com/alfredjeanlab/kpatap/internal/export"
	"github.com/alfredjeanlab/kpatap/internal/idgen"
	"github.com/alfredjeanlab/kpatap/internal/kpa"
	"github.com/alfredjeanlab/kpatap/internal/state"
	"github.com/alfredjeanlab/kpatap/internal/state/postgres"
	"github.com/alfredjeanlab/kpatap/internal/stream"
)

var syncStreams []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync records from every stream (or a selection) to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runID, err := idgen.RunID()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("run_id", runID)

		return runSync(cfg, logger, runID)
	},
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncStreams, "streams", nil, "only sync the named streams (repeatable)")
}

func runSync(cfg *config.Config, logger *slog.Logger, runID string) error {
	ctx := context.Background()

	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}
	startMillis, err := cfg.StartMillis()
	if err != nil {
		return err
	}

	client := kpa.NewClient(kpa.Options{
		BaseURL:            cfg.APIURL,
		Token:              cfg.AccessToken,
		UserAgent:          cfg.UserAgent,
		ExtraRetryStatuses: cfg.ExtraRetryStatuses,
		Timeout:            timeout,
		Logger:             logger,
	})

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	emitters := emit.Multi{emit.NewWriter(os.Stdout)}
	if cfg.NATSURL != "" {
		natsEmitter, err := emit.NewNATSEmitter(cfg.NATSURL)
		if err != nil {
			return err
		}
		emitters = append(emitters, natsEmitter)
	}
	var capture *export.Capture
	if cfg.S3Bucket != "" {
		capture = export.NewCapture()
		emitters = append(emitters, capture)
	}
	defer emitters.Close()

	descriptors, err := stream.Discover(ctx, client)
	if err != nil {
		return fmt.Errorf("discovering streams: %w", err)
	}
	logger.Info("starting sync", "streams", len(descriptors))

	syncer := stream.NewSyncer(client, store, emitters, logger, startMillis)
	runErr := syncer.Run(ctx, descriptors, syncStreams)

	// Whatever was emitted before a failure still gets archived.
	if capture != nil && capture.Len() > 0 {
		dest, err := export.NewS3Destination(ctx, cfg.S3Bucket, exportKey(cfg.S3Key, runID), cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return err
		}
		if err := capture.Upload(ctx, dest); err != nil {
			return err
		}
		logger.Info("run archived", "bucket", cfg.S3Bucket, "key", exportKey(cfg.S3Key, runID))
	}

	return runErr
}

func openStore(cfg *config.Config) (state.Store, error) {
	if cfg.DatabaseURL != "" {
		return postgres.New(cfg.DatabaseURL)
	}
	return state.NewFileStore(cfg.StatePath)
}

// exportKey stamps the run ID into the object key, before the extension when
// one is present.
func exportKey(key, runID string) string {
	if i := strings.LastIndex(key, "."); i > 0 {
		return key[:i] + "-" + runID + key[i:]
	}
	return key + "-" + runID
}
