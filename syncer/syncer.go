// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/breaker"
	"github.com/bitmark-inc/walletd/contentstore"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/peermsg"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// default tunables
const (
	defaultLockTimeout   = 5 * time.Second
	defaultRecoveryLimit = 50
	defaultOutboxHorizon = 7 * 24 * time.Hour
)

// Observer - callback invoked after every completed sync run
//
// the explicit observer list replaces ambient UI refresh events; the
// engine owns the list and invokes it after the transition is durable
type Observer func(*Result)

// Config - wiring for one engine instance
type Config struct {
	Address       string
	Name          string // mutable name this wallet publishes under
	OwnerKey      tokenrecord.HexBytes
	Snapshots     storage.Handle
	Marks         storage.Handle
	Locks         storage.Handle
	Content       *contentstore.Cached
	Peers         peermsg.Transport
	Aggregator    aggregator.Client
	Breaker       *breaker.Breaker // nil takes a default breaker
	LockTimeout   time.Duration
	RecoveryLimit int           // maximum history walk depth
	OutboxHorizon time.Duration // abandoned outbox entries older than this are dropped
}

// Engine - the single writer of one wallet's canonical snapshot
type Engine struct {
	mu sync.Mutex // guards busy, current, staged and observers

	log  *logger.L
	cfg  Config
	brk  *breaker.Breaker
	lock *coordinator

	busy      bool
	current   *run
	observers []Observer
}

// run - one pipeline execution with its shared pending result
type run struct {
	done   chan struct{}
	result *Result
}

// New - create an engine for one address
func New(cfg Config) *Engine {
	if nil == cfg.Breaker {
		cfg.Breaker = breaker.New(0, 0)
	}
	if 0 == cfg.LockTimeout {
		cfg.LockTimeout = defaultLockTimeout
	}
	if 0 == cfg.RecoveryLimit {
		cfg.RecoveryLimit = defaultRecoveryLimit
	}
	if 0 == cfg.OutboxHorizon {
		cfg.OutboxHorizon = defaultOutboxHorizon
	}
	return &Engine{
		log:  logger.New("syncer"),
		cfg:  cfg,
		brk:  cfg.Breaker,
		lock: newCoordinator(cfg.Locks, cfg.Address, cfg.LockTimeout),
	}
}

// RegisterObserver - add a post-transition callback
func (e *Engine) RegisterObserver(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

func (e *Engine) notifyObservers(result *Result) {
	e.mu.Lock()
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()
	for _, o := range observers {
		o(result)
	}
}

// Breaker - the engine's transport breaker, shared with other loops
func (e *Engine) Breaker() *breaker.Breaker {
	return e.brk
}

// package level singleton in the style of the daemon's other globals

var globalData struct {
	sync.Mutex
	engine      *Engine
	initialised bool
}

// Initialise - set up the package level engine
func Initialise(cfg Config) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}
	globalData.engine = New(cfg)
	globalData.initialised = true
	return nil
}

// Finalise - tear down the package level engine
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	globalData.engine = nil
	globalData.initialised = false
	return nil
}

// Sync - run the package level engine
func Sync(params Params) (*Result, error) {
	globalData.Lock()
	engine := globalData.engine
	globalData.Unlock()

	if nil == engine {
		return nil, fault.NotInitialised
	}
	return engine.Sync(params)
}

// Global - access the package level engine, nil before Initialise
func Global() *Engine {
	globalData.Lock()
	defer globalData.Unlock()
	return globalData.engine
}
