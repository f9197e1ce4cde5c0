// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package receiver - debounced batching of incoming tokens
//
// Tokens arrive one peer message at a time but often in bursts.  Each
// arrival resets an idle timer; the batch flushes when the window
// stays quiet or the batch hits its size cap.  A flush first runs a
// fast local-only sync so the wallet shows the tokens immediately,
// then after a deliberate delay a full sync to pick up the spend
// state the arrivals imply.
package receiver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/background"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/peermsg"
	"github.com/bitmark-inc/walletd/syncer"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// defaults
const (
	defaultIdleWindow    = 2 * time.Second
	defaultMaxBatch      = 50
	defaultFullSyncDelay = 10 * time.Second
)

// Config - wiring for the batching loop
type Config struct {
	Engine        *syncer.Engine
	IdleWindow    time.Duration
	MaxBatch      int
	FullSyncDelay time.Duration
}

// Receiver - collects arrivals into sync batches
type Receiver struct {
	log *logger.L
	cfg Config

	arrivals chan tokenrecord.Token

	mu        sync.Mutex
	processes *background.T
}

// New - create a receiver
func New(cfg Config) *Receiver {
	if 0 == cfg.IdleWindow {
		cfg.IdleWindow = defaultIdleWindow
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if 0 == cfg.FullSyncDelay {
		cfg.FullSyncDelay = defaultFullSyncDelay
	}
	return &Receiver{
		log:      logger.New("receiver"),
		cfg:      cfg,
		arrivals: make(chan tokenrecord.Token, cfg.MaxBatch),
	}
}

// Receive - hand one decoded token to the batching loop
func (r *Receiver) Receive(token tokenrecord.Token) {
	r.arrivals <- token
}

// ReceiveMessage - decode and batch one raw peer message
func (r *Receiver) ReceiveMessage(payload []byte) error {
	message := peermsg.Envelope{}
	if err := json.Unmarshal(payload, &message); nil != err {
		return fault.CannotDecodeMessage
	}
	token := message.Token
	if nil != message.Proof {
		if 0 == len(token.Transactions) {
			token = token.WithGenesisProof(message.Proof)
		} else {
			token = token.WithTransactionProof(len(token.Transactions)-1, message.Proof)
		}
	}
	r.Receive(token)
	return nil
}

// Start - launch the batching loop
func (r *Receiver) Start() *background.T {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes = background.Start(background.Processes{r}, nil)
	return r.processes
}

// Run - the idle window loop
func (r *Receiver) Run(args interface{}, shutdown <-chan struct{}) {

	r.log.Info("starting…")

	batch := []tokenrecord.Token(nil)
	idle := time.NewTimer(r.cfg.IdleWindow)
	defer idle.Stop()
	stopTimer(idle)

	fullSync := time.NewTimer(r.cfg.FullSyncDelay)
	defer fullSync.Stop()
	stopTimer(fullSync)

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case token := <-r.arrivals:
			batch = append(batch, token)
			if len(batch) >= r.cfg.MaxBatch {
				stopTimer(idle)
				batch = r.flush(batch, fullSync)
				continue loop
			}
			// every arrival re-opens the idle window
			stopTimer(idle)
			idle.Reset(r.cfg.IdleWindow)

		case <-idle.C:
			if 0 != len(batch) {
				batch = r.flush(batch, fullSync)
			}

		case <-fullSync.C:
			// catch the spend state the arrivals imply
			if _, err := r.cfg.Engine.Sync(syncer.Params{}); nil != err {
				r.log.Errorf("full sync: %s", err)
			}
		}
	}

	// a shutdown must not lose tokens already handed over
	if 0 != len(batch) {
		r.flush(batch, nil)
	}

	r.log.Info("shutting down…")
}

// flush - fast local-only sync now, full sync after the delay
func (r *Receiver) flush(batch []tokenrecord.Token, fullSync *time.Timer) []tokenrecord.Token {

	r.log.Infof("flushing %d received tokens", len(batch))

	_, err := r.cfg.Engine.Sync(syncer.Params{
		Mode:           syncer.ModeLocalOnly,
		IncomingTokens: batch,
	})
	if nil != err {
		r.log.Errorf("incoming sync: %s", err)
	}

	if nil != fullSync {
		stopTimer(fullSync)
		fullSync.Reset(r.cfg.FullSyncDelay)
	}
	return nil
}

// stopTimer - stop and drain, safe for an unfired timer
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// package level singleton

var globalData struct {
	sync.Mutex
	receiver    *Receiver
	processes   *background.T
	initialised bool
}

// Initialise - create and start the package level receiver
func Initialise(cfg Config) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}
	globalData.receiver = New(cfg)
	globalData.processes = globalData.receiver.Start()
	globalData.initialised = true
	return nil
}

// Finalise - stop the batching loop
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	globalData.processes.Stop()
	globalData.processes = nil
	globalData.receiver = nil
	globalData.initialised = false
	return nil
}

// Global - the package level receiver, nil before Initialise
func Global() *Receiver {
	globalData.Lock()
	defer globalData.Unlock()
	return globalData.receiver
}
