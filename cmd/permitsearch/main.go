// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/permitsearch"
	"github.com/poiesic/permitsearch/config"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/ingestion"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "permitsearch",
		Usage: "Search mobile food facility permits by name, street and distance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (YAML, TOML, JSON or .env)",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Badger directory or SQLite database file",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Record store: badger or sqlite",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import a permit dataset from a CSV or XLSX file",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sheet",
						Usage: "Worksheet to read from an XLSX file (default: first sheet)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of permits written per transaction",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent batch writers",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Report progress on stderr",
						Value: true,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search permits and print the results as JSON",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "applicant",
						Aliases: []string{"a"},
						Usage:   "Case-insensitive substring of the applicant name",
					},
					&cli.StringFlag{
						Name:    "street",
						Aliases: []string{"s"},
						Usage:   "Case-insensitive substring of the address",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Exact permit status; pass an empty value to match any status",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
					},
					&cli.Float64Flag{
						Name:  "lat",
						Usage: "Latitude of the search origin",
					},
					&cli.Float64Flag{
						Name:  "lon",
						Usage: "Longitude of the search origin",
					},
					&cli.StringFlag{
						Name:  "xlsx",
						Usage: "Also write the results to this XLSX file",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the search API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
					&cli.StringFlag{
						Name:  "seed",
						Usage: "CSV or XLSX file imported when the store is empty",
					},
					&cli.StringFlag{
						Name:  "seed-sheet",
						Usage: "Worksheet of an XLSX seed file",
					},
				},
			},
			{
				Name:   "count",
				Usage:  "Print the number of stored permits",
				Action: countCommand,
			},
		},
	}
}

// setupLogger loads the configuration and installs the default logger.
// Command-line flags take precedence over the config file and environment.
func setupLogger(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("store") {
		cfg.Store = c.String("store")
	}
	if c.IsSet("data") {
		cfg.DataPath = c.String("data")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	levelStr := strings.ToLower(cfg.LogLevel)
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func openDatabase(c *cli.Context) (*permitsearch.Database, error) {
	return permitsearch.NewDatabase(appConfig(c), permitsearch.WithLogger(slog.Default()))
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("import requires a FILE argument")
	}

	cfg := appConfig(c)
	if c.IsSet("batch-size") {
		cfg.ImportBatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		cfg.ImportWorkers = c.Int("workers")
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var opts []ingestion.Option
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	importer, err := db.NewImporter(opts...)
	if err != nil {
		return err
	}
	defer importer.Release()

	result, err := importer.ImportFile(c.Context, path, c.String("sheet"))
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	fmt.Fprintf(c.App.Writer, "Imported %d permits from %s (%d rows, %d skipped, %d content IDs, %d failed) in %s\n",
		result.Written, path, result.Rows, result.Skipped, result.HashIDs, result.Failed, result.Elapsed.Round(time.Millisecond))
	return nil
}

// searchCriteria builds criteria from the search flags, falling back to the configured defaults.
func searchCriteria(c *cli.Context, cfg *config.Config) core.Criteria {
	filter := core.Filter{
		ApplicantName: c.String("applicant"),
		StreetName:    c.String("street"),
		Status:        cfg.DefaultStatus,
	}
	if c.IsSet("status") {
		filter.Status = c.String("status")
	}

	limit := cfg.DefaultLimit
	if c.IsSet("limit") {
		limit = min(c.Int("limit"), cfg.MaxLimit)
	}

	var lat, lon *float64
	if c.IsSet("lat") {
		lat = core.Float64(c.Float64("lat"))
	}
	if c.IsSet("lon") {
		lon = core.Float64(c.Float64("lon"))
	}
	return core.NewCriteria(filter, limit).WithOrigin(lat, lon)
}

func searchCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	results, err := searcher.Search(c.Context, searchCriteria(c, db.Config()))
	if err != nil {
		return err
	}

	if out := c.String("xlsx"); out != "" {
		if err := ingestion.WriteXLSX(out, "", results); err != nil {
			return err
		}
		slog.Info("wrote results", "path", out, "count", len(results))
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func serveCommand(c *cli.Context) error {
	cfg := appConfig(c)
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("seed") {
		cfg.SeedPath = c.String("seed")
	}
	if c.IsSet("seed-sheet") {
		cfg.SeedSheet = c.String("seed-sheet")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Seed(ctx); err != nil {
		return err
	}

	server, err := db.NewServer()
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx, cfg.Addr)
}

func countCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	n, err := db.PermitRepository().CountPermits(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}
