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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/dossier"
	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/answer"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/dataset"
	"github.com/poiesic/dossier/graph"
	"github.com/poiesic/dossier/ingestion"
	"github.com/poiesic/dossier/server"
	"github.com/poiesic/dossier/watch"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dossier",
		Usage: "Question answering over knowledge-graph backed datasets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"DOSSIER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "datasets",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML dataset catalog (built-in catalog when empty)",
				EnvVars: []string{"DOSSIER_DATASETS"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: append(pipelineFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   server.DefaultAddr,
						EnvVars: []string{"DOSSIER_ADDR"},
					},
					&cli.StringSliceFlag{
						Name:  "preload",
						Usage: "Dataset ids to build at startup",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload ready datasets when their source files change",
					},
					&cli.DurationFlag{
						Name:  "watch-debounce",
						Usage: "Quiet period after a source change before reloading",
						Value: 2 * time.Second,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Build a dataset and answer one question",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(pipelineFlags(),
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset id",
						Required: true,
					},
				),
			},
			{
				Name:   "build",
				Usage:  "Build a dataset and report its stats",
				Action: buildCommand,
				Flags: append(pipelineFlags(),
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of most important entities to list",
						Value: 10,
					},
				),
			},
			{
				Name:   "datasets",
				Usage:  "List configured datasets",
				Action: datasetsCommand,
			},
		},
	}
}

// pipelineFlags configures the AI services and the build pipeline.
func pipelineFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible service host URL used for every model",
			Value:   defaults.EmbeddingHost,
			EnvVars: []string{"DOSSIER_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL (defaults to --host)",
			EnvVars: []string{"DOSSIER_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "extractor-host",
			Usage:   "Graph extraction service host URL (defaults to --host)",
			EnvVars: []string{"DOSSIER_EXTRACTOR_HOST"},
		},
		&cli.StringFlag{
			Name:    "answer-host",
			Usage:   "Answer generation service host URL (defaults to --host)",
			EnvVars: []string{"DOSSIER_ANSWER_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.EmbeddingModel,
			EnvVars: []string{"DOSSIER_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "extractor-model",
			Usage:   "Graph extraction model name",
			Value:   defaults.ExtractorModel,
			EnvVars: []string{"DOSSIER_EXTRACTOR_MODEL"},
		},
		&cli.StringFlag{
			Name:    "answer-model",
			Usage:   "Answer generation model name",
			Value:   defaults.AnswerModel,
			EnvVars: []string{"DOSSIER_ANSWER_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI services",
			EnvVars: []string{"DOSSIER_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:  "min-importance",
			Usage: "Drop extracted entities below this importance (1-10)",
			Value: defaults.MinImportance,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk size in characters",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Characters shared by neighbouring chunks",
			Value: 200,
		},
		&cli.IntFlag{
			Name:  "max-hits",
			Usage: "Passages placed in each answer prompt",
			Value: 5,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum extraction attempts per chunk",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 500 * time.Millisecond,
		},
		&cli.DurationFlag{
			Name:  "build-timeout",
			Usage: "Give up on a dataset build after this long (0 disables)",
		},
	}
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithAnswerModel(c.String("answer-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithMinImportance(c.Int("min-importance")),
	}
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	if host := c.String("extractor-host"); host != "" {
		opts = append(opts, ai.WithExtractorHost(host))
	}
	if host := c.String("answer-host"); host != "" {
		opts = append(opts, ai.WithAnswerHost(host))
	}
	return ai.NewConfig(opts...)
}

func loadCatalog(c *cli.Context) ([]dataset.Config, error) {
	path := c.String("datasets")
	if path == "" {
		return dataset.DefaultConfigs(), nil
	}
	return dataset.LoadConfigs(path)
}

func newService(c *cli.Context, extra ...dossier.ServiceOption) (*dossier.Service, error) {
	configs, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}

	opts := []dossier.ServiceOption{
		dossier.WithAIConfig(aiConfigFromFlags(c)),
		dossier.WithDatasets(configs...),
		dossier.WithChunkerOptions(
			ingestion.WithChunkSize(c.Int("chunk-size")),
			ingestion.WithChunkOverlap(c.Int("chunk-overlap")),
		),
		dossier.WithGraphOptions(graph.WithRetry(c.Int("max-retries"), c.Duration("retry-delay"))),
		dossier.WithAnswerOptions(answer.WithMaxHits(c.Int("max-hits"))),
		dossier.WithManagerOptions(dataset.WithBuildTimeout(c.Duration("build-timeout"))),
	}
	return dossier.NewService(append(opts, extra...)...)
}

type runner interface {
	Run(ctx context.Context) error
}

// startWatcher runs w in the background. The returned function stops it and
// waits until any reload it started has finished.
func startWatcher(ctx context.Context, w runner) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			slog.Error("source watcher stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(c)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	for _, id := range c.StringSlice("preload") {
		stats, err := svc.Initialize(ctx, id)
		if err != nil {
			return fmt.Errorf("preloading %s: %w", id, err)
		}
		slog.Info("preloaded dataset", "dataset", id, "chunks", stats.ChunkCount, "entities", stats.EntityCount)
	}

	if c.Bool("watch") {
		watcher, err := svc.NewSourceWatcher(watch.WithDebounce(c.Duration("watch-debounce")))
		if err != nil {
			return fmt.Errorf("failed to watch dataset sources: %w", err)
		}
		// deferred after svc.Close, so it runs first
		defer startWatcher(ctx, watcher)()
	}

	srv, err := svc.NewServer(server.WithAddr(c.String("addr")))
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	svc, err := newService(c)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	id := c.String("dataset")
	if _, err := svc.Initialize(c.Context, id); err != nil {
		return err
	}
	reply, err := svc.Ask(c.Context, id, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, reply)
	return nil
}

func buildCommand(c *cli.Context) error {
	svc, err := newService(c, dossier.WithGraphOptions(graph.WithProgress(c.App.ErrWriter)))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	id := c.String("dataset")
	start := time.Now()
	stats, err := svc.Initialize(c.Context, id)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Dataset:       %s\n", id)
	fmt.Fprintf(w, "Chunks:        %d\n", stats.ChunkCount)
	fmt.Fprintf(w, "Entities:      %d\n", stats.EntityCount)
	fmt.Fprintf(w, "Relationships: %d\n", stats.RelationshipCount)
	fmt.Fprintf(w, "Elapsed:       %s\n", time.Since(start).Round(time.Millisecond))

	top := topEntities(svc.Manager().Graph(id), c.Int("top"))
	if len(top) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top entities:")
		for _, e := range top {
			fmt.Fprintf(w, "  %-30s %-14s %2d  (%d chunks)\n", e.Name, e.Type, e.Importance, len(e.ChunkIds))
		}
	}
	return nil
}

func topEntities(g *core.Graph, n int) []*core.Entity {
	if g == nil || n <= 0 {
		return nil
	}
	entities := slices.Clone(g.Entities)
	slices.SortStableFunc(entities, func(a, b *core.Entity) int {
		if a.Importance != b.Importance {
			return b.Importance - a.Importance
		}
		return len(b.ChunkIds) - len(a.ChunkIds)
	})
	if len(entities) > n {
		entities = entities[:n]
	}
	return entities
}

func datasetsCommand(c *cli.Context) error {
	configs, err := loadCatalog(c)
	if err != nil {
		return err
	}
	registry, err := dataset.NewRegistry(configs...)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, cfg := range registry.Configs() {
		status := "ok"
		if _, err := os.Stat(cfg.SourcePath); err != nil {
			status = "missing"
		}
		fmt.Fprintf(w, "%-12s %-28s %-8s %s\n", cfg.ID, cfg.Name, status, cfg.SourcePath)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
