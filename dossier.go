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

package dossier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/ai/openai"
	"github.com/poiesic/dossier/answer"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/dataset"
	"github.com/poiesic/dossier/graph"
	"github.com/poiesic/dossier/ingestion"
	"github.com/poiesic/dossier/server"
	"github.com/poiesic/dossier/watch"
)

// Service wires an AI provider and the dataset pipeline together.
type Service struct {
	provider   ai.AIProvider
	chunker    *ingestion.TextChunker
	builder    *graph.Builder
	manager    *dataset.Manager
	dispatcher *dataset.Dispatcher
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	configs     []dataset.Config
	logger      *slog.Logger
	chunkerOpts []ingestion.Option
	graphOpts   []graph.Option
	answerOpts  []answer.Option
	managerOpts []dataset.Option
}

func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of creating one from the AI config.
// The Service takes ownership and closes it.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithDatasets replaces the built-in dataset catalog.
func WithDatasets(configs ...dataset.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.configs = configs
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

func WithChunkerOptions(opts ...ingestion.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkerOpts = append(o.chunkerOpts, opts...)
	}
}

func WithGraphOptions(opts ...graph.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.graphOpts = append(o.graphOpts, opts...)
	}
}

func WithAnswerOptions(opts ...answer.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.answerOpts = append(o.answerOpts, opts...)
	}
}

func WithManagerOptions(opts ...dataset.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.managerOpts = append(o.managerOpts, opts...)
	}
}

func NewService(opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
		configs:  dataset.DefaultConfigs(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	registry, err := dataset.NewRegistry(options.configs...)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	chunker, err := ingestion.NewTextChunker(provider.Embedder(),
		append([]ingestion.Option{ingestion.WithLogger(logger)}, options.chunkerOpts...)...)
	if err != nil {
		provider.Close()
		return nil, err
	}

	builder, err := graph.NewBuilder(provider.GraphExtractor(),
		append([]graph.Option{graph.WithLogger(logger)}, options.graphOpts...)...)
	if err != nil {
		chunker.Release()
		provider.Close()
		return nil, err
	}

	factory, err := answer.NewFactory(provider.Embedder(), provider.Generator(),
		append([]answer.Option{answer.WithLogger(logger)}, options.answerOpts...)...)
	if err != nil {
		builder.Release()
		chunker.Release()
		provider.Close()
		return nil, err
	}

	manager, err := dataset.NewManager(registry, chunker, builder, engineFactory(factory),
		append([]dataset.Option{dataset.WithLogger(logger)}, options.managerOpts...)...)
	if err != nil {
		builder.Release()
		chunker.Release()
		provider.Close()
		return nil, err
	}

	dispatcher, err := dataset.NewDispatcher(manager)
	if err != nil {
		manager.Close()
		builder.Release()
		chunker.Release()
		provider.Close()
		return nil, err
	}

	return &Service{
		provider:   provider,
		chunker:    chunker,
		builder:    builder,
		manager:    manager,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// engineFactory adapts an answer.Factory to the dataset collaborator contract.
func engineFactory(f *answer.Factory) dataset.EngineFactory {
	return dataset.EngineFactoryFunc(func(ctx context.Context, chunks []core.Chunk, g *core.Graph, expertRole, domain string) (dataset.AnswerEngine, error) {
		engine, err := f.NewEngine(ctx, chunks, g, expertRole, domain)
		if err != nil {
			return nil, err
		}
		return engine, nil
	})
}

func (s *Service) Manager() *dataset.Manager {
	return s.manager
}

func (s *Service) Dispatcher() *dataset.Dispatcher {
	return s.dispatcher
}

func (s *Service) Registry() *dataset.Registry {
	return s.manager.Registry()
}

func (s *Service) Initialize(ctx context.Context, id string) (dataset.Stats, error) {
	return s.manager.Initialize(ctx, id)
}

func (s *Service) Ask(ctx context.Context, id, question string) (string, error) {
	return s.dispatcher.Ask(ctx, id, question)
}

func (s *Service) Stats(id string) dataset.Stats {
	return s.manager.Stats(id)
}

func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	return server.NewServer(s.manager, s.dispatcher,
		append([]server.Option{server.WithLogger(s.logger)}, opts...)...)
}

// NewSourceWatcher returns a watcher that reloads ready datasets when their
// source files change.
func (s *Service) NewSourceWatcher(opts ...watch.Option) (*watch.SourceWatcher, error) {
	return watch.NewSourceWatcher(s.manager, s.Registry().Configs(),
		append([]watch.Option{watch.WithLogger(s.logger)}, opts...)...)
}

func (s *Service) Close() error {
	var errs []error
	if err := s.manager.Close(); err != nil {
		s.logger.Error("error closing dataset manager", "err", err)
		errs = append(errs, err)
	}
	s.builder.Release()
	s.chunker.Release()
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
