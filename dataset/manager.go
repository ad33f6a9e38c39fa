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

package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/dossier/core"
	"golang.org/x/sync/singleflight"
)

// runtime is everything a ready dataset needs to answer questions.
// It is never modified after it has been installed.
type runtime struct {
	chunks []core.Chunk
	graph  *core.Graph
	engine AnswerEngine
	stats  Stats

	inflight sync.WaitGroup
}

type entry struct {
	state   State
	failure error
	runtime *runtime
}

// Manager builds datasets on demand and tracks their state.
// It is safe for concurrent use.
type Manager struct {
	registry     *Registry
	chunker      Chunker
	builder      GraphBuilder
	factory      EngineFactory
	buildTimeout time.Duration
	baseLogger   *slog.Logger
	logger       *slog.Logger

	flights singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

type Option func(*Manager) error

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithBuildTimeout bounds how long a single build may run. Zero disables the limit.
func WithBuildTimeout(d time.Duration) Option {
	return func(m *Manager) error {
		if d < 0 {
			return ErrInvalidBuildTimeout
		}
		m.buildTimeout = d
		return nil
	}
}

func NewManager(registry *Registry, chunker Chunker, builder GraphBuilder, factory EngineFactory, opts ...Option) (*Manager, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	if builder == nil {
		return nil, ErrGraphBuilderRequired
	}
	if factory == nil {
		return nil, ErrEngineFactoryRequired
	}

	m := &Manager{
		registry: registry,
		chunker:  chunker,
		builder:  builder,
		factory:  factory,
		logger:   slog.Default(),
		entries:  make(map[string]*entry, registry.Len()),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.baseLogger = m.logger
	m.logger = m.logger.With("component", "dataset-manager")

	for _, id := range registry.IDs() {
		m.entries[id] = &entry{state: StateUninitialized}
	}
	return m, nil
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsReady reports whether id has a built runtime.
func (m *Manager) IsReady(id string) bool {
	return m.ready(id) != nil
}

// Status returns the lifecycle state of id. For a failed dataset the error is
// the reason of the last failed build. Unknown ids report ErrConfigNotFound.
func (m *Manager) Status(id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return StateUninitialized, newError(ErrConfigNotFound, id, nil)
	}
	return e.state, e.failure
}

// Stats returns the counts recorded when id was built. A dataset that is not
// ready reports zero counts.
func (m *Manager) Stats(id string) Stats {
	if rt := m.ready(id); rt != nil {
		return rt.stats
	}
	return Stats{}
}

// Graph returns the knowledge graph of a ready dataset, or nil.
func (m *Manager) Graph(id string) *core.Graph {
	if rt := m.ready(id); rt != nil {
		return rt.graph
	}
	return nil
}

// Chunks returns the chunks of a ready dataset, or nil.
func (m *Manager) Chunks(id string) []core.Chunk {
	if rt := m.ready(id); rt != nil {
		return slices.Clone(rt.chunks)
	}
	return nil
}

// Initialize builds id unless it is already ready, and returns its stats.
// Concurrent calls for the same id share one build. A caller whose context is
// cancelled stops waiting but the build carries on for the others.
func (m *Manager) Initialize(ctx context.Context, id string) (Stats, error) {
	cfg, err := m.registry.Get(id)
	if err != nil {
		return Stats{}, err
	}
	if rt := m.ready(id); rt != nil {
		return rt.stats, nil
	}
	return m.await(ctx, cfg, false)
}

// Reload rebuilds a ready dataset and swaps in the new runtime once the build
// succeeds. On failure the current runtime stays in place. The replaced
// runtime is closed after the questions it is answering complete.
func (m *Manager) Reload(ctx context.Context, id string) (Stats, error) {
	cfg, err := m.registry.Get(id)
	if err != nil {
		return Stats{}, err
	}
	if !m.IsReady(id) {
		return Stats{}, newError(ErrNotInitialized, id, nil)
	}
	return m.await(ctx, cfg, true)
}

func (m *Manager) await(ctx context.Context, cfg Config, reload bool) (Stats, error) {
	if m.isClosed() {
		return Stats{}, ErrManagerClosed
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(cfg.ID, func() (v any, err error) {
		// singleflight re-panics on a goroutine nobody can recover
		defer func() {
			if r := recover(); r != nil {
				err = m.recovered(cfg.ID, reload, r)
			}
		}()
		return m.build(buildCtx, cfg, reload)
	})

	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// build runs inside the single flight for cfg.ID.
func (m *Manager) build(ctx context.Context, cfg Config, reload bool) (Stats, error) {
	// a caller that lost the race joins after the winner installed its runtime
	if rt := m.ready(cfg.ID); rt != nil && !reload {
		return rt.stats, nil
	}

	logger := m.logger.With("dataset", cfg.ID)
	if m.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.buildTimeout)
		defer cancel()
	}

	logger.Info("building dataset", "name", cfg.Name, "source", cfg.SourcePath, "reload", reload)
	start := time.Now()

	rt, err := m.assemble(ctx, cfg)
	if err != nil {
		if reload {
			logger.Error("reload failed, keeping current runtime", "err", err)
			return Stats{}, err
		}
		logger.Error("build failed", "err", err)
		m.fail(cfg.ID, err)
		return Stats{}, err
	}

	if err := m.install(cfg.ID, rt); err != nil {
		return Stats{}, err
	}
	logger.Info("dataset ready",
		"chunks", rt.stats.ChunkCount,
		"entities", rt.stats.EntityCount,
		"relationships", rt.stats.RelationshipCount,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return rt.stats, nil
}

func (m *Manager) assemble(ctx context.Context, cfg Config) (*runtime, error) {
	if _, err := os.Stat(cfg.SourcePath); err != nil {
		return nil, newError(ErrSourceUnavailable, cfg.ID, err)
	}

	chunks, err := m.chunker.Chunk(ctx, cfg.SourcePath)
	if err != nil {
		return nil, m.pipelineError(ctx, cfg.ID, fmt.Errorf("chunking: %w", err))
	}

	graph, err := m.builder.Build(ctx, chunks)
	if err != nil {
		return nil, m.pipelineError(ctx, cfg.ID, fmt.Errorf("building graph: %w", err))
	}
	if graph == nil {
		graph = core.NewGraph(nil, nil)
	}

	engine, err := m.factory.NewEngine(ctx, chunks, graph, cfg.ExpertRole, cfg.Domain)
	if err != nil {
		return nil, m.pipelineError(ctx, cfg.ID, fmt.Errorf("creating answer engine: %w", err))
	}
	if engine == nil {
		return nil, m.pipelineError(ctx, cfg.ID, errors.New("engine factory returned no engine"))
	}

	return &runtime{
		chunks: chunks,
		graph:  graph,
		engine: engine,
		stats: Stats{
			ChunkCount:        len(chunks),
			EntityCount:       graph.EntityCount(),
			RelationshipCount: graph.RelationshipCount(),
		},
	}, nil
}

// recovered turns a panic raised by a collaborator into a failed build.
func (m *Manager) recovered(id string, reload bool, r any) error {
	err := newError(ErrPipelineInitialization, id, fmt.Errorf("panic: %v", r))
	m.logger.Error("build panicked", "dataset", id, "reload", reload, "panic", r, "stack", string(debug.Stack()))
	if !reload {
		m.fail(id, err)
	}
	return err
}

func (m *Manager) pipelineError(ctx context.Context, id string, cause error) error {
	if m.buildTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cause = fmt.Errorf("%w after %s: %w", ErrBuildTimeout, m.buildTimeout, cause)
	}
	return newError(ErrPipelineInitialization, id, cause)
}

// fail marks id as failed. A closed manager keeps its entries untouched,
// the same as it discards successful builds.
func (m *Manager) fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	e := m.entries[id]
	e.state = StateFailed
	e.failure = err
	e.runtime = nil
}

func (m *Manager) install(id string, rt *runtime) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		closeEngine(rt.engine)
		return ErrManagerClosed
	}
	e := m.entries[id]
	old := e.runtime
	e.state = StateReady
	e.failure = nil
	e.runtime = rt
	m.mu.Unlock()

	if old != nil {
		go m.retire(id, old)
	}
	return nil
}

// retire closes a replaced runtime once nobody is using it.
func (m *Manager) retire(id string, rt *runtime) {
	rt.inflight.Wait()
	if err := closeEngine(rt.engine); err != nil {
		m.logger.Warn("closing retired answer engine", "dataset", id, "err", err)
	}
}

func (m *Manager) ready(id string) *runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok && e.state == StateReady {
		return e.runtime
	}
	return nil
}

// acquire returns the runtime of a ready dataset and marks it in use until
// release is called.
func (m *Manager) acquire(id string) (rt *runtime, release func(), ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, found := m.entries[id]
	if !found || e.state != StateReady {
		return nil, nil, false
	}
	rt = e.runtime
	rt.inflight.Add(1)
	return rt, rt.inflight.Done, true
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close drops every runtime and closes its answer engine once in-flight
// questions finish. Builds that complete after Close are discarded.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var runtimes []*runtime
	for _, e := range m.entries {
		if e.runtime != nil {
			runtimes = append(runtimes, e.runtime)
		}
		e.state = StateUninitialized
		e.failure = nil
		e.runtime = nil
	}
	m.mu.Unlock()

	var errs []error
	for _, rt := range runtimes {
		rt.inflight.Wait()
		if err := closeEngine(rt.engine); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeEngine(engine AnswerEngine) error {
	if closer, ok := engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
