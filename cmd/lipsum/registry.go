package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/CTAG07/lipsum/pkg/markov"
)

// builtinCorpus is the name under which the embedded lorem ipsum chain is
// served. It cannot be created, modified or removed through the store.
const builtinCorpus = "lorem"

var errReadOnly = errors.New("the built-in corpus is read-only")

// registry caches one trained chain per corpus. A chain is never trained
// after it has been published: updates build a fresh chain and swap it in.
// Builds of one corpus are serialized, so the chain published last was always
// built from the latest texts.
type registry struct {
	mu      sync.RWMutex
	store   *corpus.Store
	chains  map[string]*markov.Chain
	builds  map[string]*sync.Mutex
	build   func(context.Context, corpus.Info) (*markov.Chain, error)
	logger  *slog.Logger
	metrics *metrics
}

func newRegistry(store *corpus.Store, logger *slog.Logger, m *metrics) *registry {
	r := &registry{
		store:   store,
		chains:  make(map[string]*markov.Chain),
		builds:  make(map[string]*sync.Mutex),
		logger:  logger,
		metrics: m,
	}
	r.build = func(ctx context.Context, info corpus.Info) (*markov.Chain, error) {
		return store.BuildChain(ctx, info, markov.WithLogger(logger))
	}
	r.publish(builtinCorpus, lorem.Chain())
	return r
}

// info returns the corpus metadata for name, including the built-in corpus.
func (r *registry) info(ctx context.Context, name string) (corpus.Info, error) {
	if name == builtinCorpus {
		return corpus.Info{Name: builtinCorpus, Order: lorem.Order, Texts: 2,
			Bytes: len(lorem.LoremIpsum) + len(lorem.LiberPrimus)}, nil
	}
	return r.store.GetCorpus(ctx, name)
}

func (r *registry) cached(name string) (*markov.Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[name]
	return c, ok
}

// buildLock returns the mutex serializing builds of the named corpus.
// Entries are kept after a corpus is removed so that a waiting builder and a
// later one never hold different mutexes for the same name.
func (r *registry) buildLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.builds[name]
	if !ok {
		m = &sync.Mutex{}
		r.builds[name] = m
	}
	return m
}

// get returns the chain of the named corpus, building it on first use.
func (r *registry) get(ctx context.Context, name string) (*markov.Chain, error) {
	if c, ok := r.cached(name); ok {
		return c, nil
	}
	lock := r.buildLock(name)
	lock.Lock()
	defer lock.Unlock()
	// Another caller may have built it while we waited.
	if c, ok := r.cached(name); ok {
		return c, nil
	}
	return r.rebuild(ctx, name)
}

// reload rebuilds the chain of the named corpus from the store and publishes
// it. Readers holding the previous chain keep using it undisturbed.
func (r *registry) reload(ctx context.Context, name string) (*markov.Chain, error) {
	if name == builtinCorpus {
		return lorem.Chain(), nil
	}
	lock := r.buildLock(name)
	lock.Lock()
	defer lock.Unlock()
	return r.rebuild(ctx, name)
}

// rebuild must be called with the build lock of name held.
func (r *registry) rebuild(ctx context.Context, name string) (*markov.Chain, error) {
	info, err := r.store.GetCorpus(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := r.build(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to build chain for corpus %q: %w", name, err)
	}
	r.publish(name, c)
	return c, nil
}

func (r *registry) publish(name string, c *markov.Chain) {
	r.mu.Lock()
	r.chains[name] = c
	r.mu.Unlock()
	r.metrics.chainPrefixes.WithLabelValues(name).Set(float64(c.Size()))
}

// forget drops the cached chain of a removed corpus. It waits for a build in
// progress, which would otherwise publish the removed corpus again.
func (r *registry) forget(name string) {
	lock := r.buildLock(name)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	delete(r.chains, name)
	r.mu.Unlock()
	r.metrics.chainPrefixes.DeleteLabelValues(name)
}
