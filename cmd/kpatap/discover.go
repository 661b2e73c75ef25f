package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kpatap/internal/kpa"
	"github.com/alfredjeanlab/kpatap/internal/stream"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Enumerate streams and print the catalog as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		timeout, err := cfg.Timeout()
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

		ctx := context.Background()
		descriptors, err := stream.Discover(ctx, client)
		if err != nil {
			return fmt.Errorf("discovering streams: %w", err)
		}

		// Discovery only resolves schemas; no bookmarks are read and
		// nothing is emitted.
		syncer := stream.NewSyncer(client, nil, nil, logger, 0)
		entries, failed, err := syncer.Catalog(ctx, descriptors, stream.ModeDiscovery)
		if err != nil {
			return err
		}
		for _, name := range failed {
			logger.Warn("stream omitted from catalog", "stream", name)
		}

		return printCatalog(os.Stdout, entries)
	},
}

func printCatalog(w io.Writer, entries []stream.CatalogEntry) error {
	catalog := map[string]any{"streams": entries}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
