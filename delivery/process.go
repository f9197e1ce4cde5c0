// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/walletd/background"
	"github.com/bitmark-inc/walletd/fault"
)

// worker - one member of the bounded pool
type worker struct {
	number int
	queue  *Queue
}

// Run - drain due items until shutdown
//
// the shared rate limiter spaces sends across the whole pool
func (w *worker) Run(args interface{}, shutdown <-chan struct{}) {

	log := w.queue.log
	log.Infof("delivery worker %d starting…", w.number)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdown
		cancel()
	}()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(pollInterval):
		}

		for {
			item := w.queue.takeDue(time.Now())
			if nil == item {
				break
			}
			if err := w.queue.limiter.Wait(ctx); nil != err {
				// shutdown while waiting for a send slot
				w.queue.release(item)
				break loop
			}
			w.queue.attempt(item)
		}
	}

	log.Infof("delivery worker %d shutting down…", w.number)
}

// release - return a claimed item to the pool untouched
func (q *Queue) release(item *Item) {
	q.mu.Lock()
	item.inFlight = false
	q.mu.Unlock()
}

// Start - launch the worker pool
func (q *Queue) Start() *background.T {
	processes := make(background.Processes, q.cfg.WorkerCount)
	for i := 0; i < q.cfg.WorkerCount; i += 1 {
		processes[i] = &worker{number: i + 1, queue: q}
	}
	return background.Start(processes, nil)
}

// package level singleton

var globalData struct {
	sync.Mutex
	queue       *Queue
	processes   *background.T
	initialised bool
}

// Initialise - create and start the package level queue
func Initialise(cfg Config) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}
	globalData.queue = NewQueue(cfg)
	globalData.processes = globalData.queue.Start()
	globalData.initialised = true
	return nil
}

// Finalise - stop the workers
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	globalData.processes.Stop()
	globalData.processes = nil
	globalData.queue = nil
	globalData.initialised = false
	return nil
}

// Global - the package level queue, nil before Initialise
func Global() *Queue {
	globalData.Lock()
	defer globalData.Unlock()
	return globalData.queue
}
