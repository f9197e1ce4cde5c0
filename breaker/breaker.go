// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package breaker - transport circuit breaker
//
// Read failures against the remote transports accumulate; past a
// threshold the breaker opens and the sync engine degrades to
// local-only mode instead of stalling on a dead network.  Sustained
// success closes it again.
package breaker

import (
	"sync"

	"github.com/bitmark-inc/walletd/counter"
)

// State - breaker position, reported in sync results
type State string

// breaker states
const (
	Closed State = "CLOSED" // transports in use
	Open   State = "OPEN"   // local-only mode forced
)

// default thresholds
const (
	DefaultFailureLimit = 5
	DefaultSuccessLimit = 3
)

// Breaker - failure tracker owned by the sync engine
type Breaker struct {
	sync.Mutex
	failureLimit  uint64
	successLimit  uint64
	failures      counter.Counter // consecutive failures while closed
	successes     counter.Counter // consecutive successes while open
	totalFailures counter.Counter
	open          bool
}

// New - breaker with explicit thresholds, zero values take defaults
func New(failureLimit uint64, successLimit uint64) *Breaker {
	if 0 == failureLimit {
		failureLimit = DefaultFailureLimit
	}
	if 0 == successLimit {
		successLimit = DefaultSuccessLimit
	}
	return &Breaker{
		failureLimit: failureLimit,
		successLimit: successLimit,
	}
}

// RecordFailure - note one failed transport call
func (b *Breaker) RecordFailure() {
	b.Lock()
	defer b.Unlock()

	b.totalFailures.Increment()
	b.successes.Reset()

	if b.open {
		return
	}
	if b.failures.Increment() >= b.failureLimit {
		b.open = true
	}
}

// RecordSuccess - note one successful transport call
func (b *Breaker) RecordSuccess() {
	b.Lock()
	defer b.Unlock()

	b.failures.Reset()

	if !b.open {
		return
	}
	if b.successes.Increment() >= b.successLimit {
		b.open = false
		b.successes.Reset()
	}
}

// IsOpen - remote transports are to be avoided
func (b *Breaker) IsOpen() bool {
	b.Lock()
	defer b.Unlock()
	return b.open
}

// State - current position
func (b *Breaker) State() State {
	if b.IsOpen() {
		return Open
	}
	return Closed
}

// TotalFailures - lifetime failure count, for stats
func (b *Breaker) TotalFailures() uint64 {
	return b.totalFailures.Uint64()
}
