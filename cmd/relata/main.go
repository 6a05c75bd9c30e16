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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/relata"
	"github.com/poiesic/relata/ai"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/pipeline"
	"github.com/urfave/cli/v2"
)

func main() {
	scopeFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tenant",
			Usage:    "Tenant ID scoping all records and vectors",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "environment",
			Usage: "Environment selecting the vector index",
			Value: "development",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-large",
		},
		&cli.IntFlag{
			Name:  "embedding-dim",
			Usage: "Embedding dimension",
			Value: 3072,
		},
	}

	app := &cli.App{
		Name:  "relata",
		Usage: "Related-questions index maintenance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "sweep",
				Usage:  "Recompute related lists for all records, resuming from the last checkpoint",
				Action: sweepCommand,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Process a single page and exit instead of sweeping to wraparound",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each page",
						Value: pipeline.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: pipeline.DefaultMaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: time.Second,
					},
				}, scopeFlags...),
			},
			{
				Name:   "update",
				Usage:  "Refresh the related list of a single record",
				Action: updateCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Record ID to refresh",
						Required: true,
					},
				}, scopeFlags...),
			},
			{
				Name:   "search",
				Usage:  "Show the related questions of a record",
				Action: searchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Record ID to search from",
						Required: true,
					},
				}, scopeFlags...),
			},
			{
				Name:   "seed",
				Usage:  "Load question records from a file, one question per line",
				Action: seedCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the questions file",
						Required: true,
					},
				}, scopeFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openPipeline builds the pipeline from the shared scope flags.
func openPipeline(c *cli.Context) (*relata.Pipeline, error) {
	config := pipeline.DefaultConfig()
	config.TenantID = c.String("tenant")
	config.Environment = c.String("environment")
	if c.IsSet("batch-size") {
		config.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		config.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		config.RetryDelay = c.Duration("retry-delay")
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithDimension(c.Int("embedding-dim")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}

	p, err := relata.NewPipeline(c.String("db"), config, relata.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	return p, nil
}

func sweepCommand(c *cli.Context) error {
	ctx := context.Background()

	p, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	orchestrator, err := p.NewOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Tenant: %s\n", c.String("tenant"))
	fmt.Fprintf(os.Stderr, "Index: %s\n", p.IndexManager().IndexName())
	fmt.Fprintln(os.Stderr)

	var result *pipeline.SweepResult
	if c.Bool("once") {
		result, err = orchestrator.RunOnce(ctx)
	} else {
		tracker := pipeline.NewProgressTracker(os.Stderr, 0, c.Int("report-interval"))
		result, err = orchestrator.Run(ctx, tracker)
	}
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed: %d, succeeded: %d, failed: %d, skipped: %d\n",
		result.Processed, result.Succeeded, result.Failed, result.Skipped)
	return nil
}

func updateCommand(c *cli.Context) error {
	ctx := context.Background()

	p, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	updater, err := p.NewOnDemand()
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	diff, err := updater.UpdateOne(ctx, c.String("id"))
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	updater.Flush()

	fmt.Printf("Record %s\n", diff.ID)
	fmt.Println("Before:")
	printRelated(diff.Previous)
	fmt.Println("After:")
	printRelated(diff.Current)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	p, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	record, err := p.Records().GetRecord(ctx, c.String("id"))
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}

	searcher, err := p.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	related, err := searcher.FindRelated(ctx, record)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Record %s: %s\n", record.ID, record.Title())
	printRelated(related)
	return nil
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open questions file: %w", err)
	}
	defer file.Close()

	p, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	var records []*core.Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		records = append(records, &core.Record{
			ID:   core.IDFromContent(text),
			Text: text,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read questions file: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no questions found in %s", c.String("file"))
	}

	added, err := p.Records().AddRecords(ctx, records...)
	if err != nil {
		return fmt.Errorf("failed to add records: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Seeded %d records\n", len(added))
	return nil
}

func printRelated(entries []core.RelatedEntry) {
	if len(entries) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, entry := range entries {
		fmt.Printf("  %.3f  %s  %s\n", entry.Similarity, entry.ID, entry.Title)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
