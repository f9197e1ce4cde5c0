// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"encoding/json"

	"github.com/bitmark-inc/walletd/tokenrecord"
)

// suffix of the staging slot next to the canonical snapshot
const stagingSuffix = ":staged"

// Sync - reconcile local, remote and caller supplied data
//
// concurrent calls coalesce: while a run is in flight a caller with
// no new data waits for that run's result; a caller with new tokens
// stages them durably first (the UI sees them immediately on reload)
// and then loops to fold them into the next run
func (e *Engine) Sync(params Params) (*Result, error) {

	for {
		e.mu.Lock()

		if !e.busy {
			e.busy = true
			current := &run{done: make(chan struct{})}
			e.current = current

			// fold anything staged by coalesced callers into this run
			params.IncomingTokens = append(params.IncomingTokens, e.takeStaged()...)
			e.mu.Unlock()

			result := e.runPipeline(params)

			e.mu.Lock()
			e.busy = false
			e.current = nil
			current.result = result
			e.mu.Unlock()

			close(current.done)
			e.notifyObservers(result)

			return result, nil
		}

		current := e.current

		if !params.hasNewData() {
			// no new data: share the in flight result
			e.mu.Unlock()
			<-current.done
			return current.result, nil
		}

		// new data while the canonical snapshot is locked by the run:
		// persist it to the staging slot for immediate durability
		e.stage(params.newTokens())
		completed := params.CompletedTransfers
		params = Params{Mode: params.Mode, CompletedTransfers: completed}
		e.mu.Unlock()

		<-current.done
		// loop: either this caller becomes the next runner and folds
		// the staged tokens in, or another caller beat it to them
	}
}

// stage - durably persist tokens that arrived mid-run
// caller holds e.mu
func (e *Engine) stage(tokens []tokenrecord.Token) {
	if 0 == len(tokens) || nil == e.cfg.Snapshots {
		return
	}
	staged := e.readStaged()
	staged = append(staged, tokens...)
	data, err := json.Marshal(staged)
	if nil != err {
		e.log.Errorf("stage tokens: %s", err)
		return
	}
	e.cfg.Snapshots.Put([]byte(e.cfg.Address+stagingSuffix), data)
}

// readStaged - current contents of the staging slot
func (e *Engine) readStaged() []tokenrecord.Token {
	if nil == e.cfg.Snapshots {
		return nil
	}
	data := e.cfg.Snapshots.Get([]byte(e.cfg.Address + stagingSuffix))
	if nil == data {
		return nil
	}
	tokens := []tokenrecord.Token{}
	if err := json.Unmarshal(data, &tokens); nil != err {
		e.log.Errorf("read staged tokens: %s", err)
		return nil
	}
	return tokens
}

// takeStaged - drain the staging slot
// caller holds e.mu
func (e *Engine) takeStaged() []tokenrecord.Token {
	tokens := e.readStaged()
	if 0 != len(tokens) {
		e.cfg.Snapshots.Delete([]byte(e.cfg.Address + stagingSuffix))
	}
	return tokens
}
