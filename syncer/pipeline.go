// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"fmt"
	"time"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// runState - everything one pipeline execution carries between stages
type runState struct {
	params Params
	result *Result

	local  *inventory.Snapshot
	remote *inventory.Snapshot

	pristine *inventory.Snapshot // as loaded in stage 1, for the no-change write skip

	remoteVersion  uint64
	remoteContent  string // content id the name currently points to
	highWaterMark  uint64
	forceWrite     bool // local-only content or pending local lead
	publishBlocked bool // consistency failure: correctness over freshness
	uploadNeeded   bool // stage 9 decision carried into stage 10
	useTransports  bool
}

// runPipeline - the ten stages, strictly in order
func (e *Engine) runPipeline(params Params) *Result {

	start := time.Now()

	result := &Result{
		Status: StatusSuccess,
		Mode:   params.Mode,
	}
	if "" == string(result.Mode) {
		result.Mode = ModeNormal
	}

	// truly unexpected host errors become an ERROR result with the
	// stats accumulated so far
	defer func() {
		if r := recover(); nil != r {
			e.log.Criticalf("sync panic: %v", r)
			result.Status = StatusError
			result.issue(fmt.Sprintf("unexpected: %v", r))
		}
		result.Duration = time.Since(start)
		result.BreakerState = e.brk.State()
	}()

	locked := e.lock.tryAcquire()
	if !locked {
		// advisory only: availability wins, note it and continue
		e.log.Warn("advisory lock timeout, proceeding")
		result.issue("advisory lock acquisition timed out")
	}
	defer e.lock.release()

	s := &runState{
		params: params,
		result: result,
		useTransports: ModeLocalOnly != result.Mode &&
			nil != e.cfg.Content &&
			!e.brk.IsOpen(),
	}
	if e.brk.IsOpen() && ModeLocalOnly != result.Mode {
		result.issue("circuit open: forced local-only")
	}

	// stage 1: load local, migrating any legacy shape
	if err := e.loadLocal(s); nil != err {
		e.log.Errorf("load local: %s", err)
		result.Status = StatusError
		result.issue(fmt.Sprintf("load local: %s", err))
		return result
	}

	// stage 0: caller supplied records become another source to
	// reconcile, folded in before the remote is consulted
	if ModeNametag != result.Mode {
		e.ingest(s)
	}

	// stage 2: load and merge remote, walk history when recovering;
	// a degraded run still folds in whatever the resolution cache holds
	if s.useTransports {
		e.loadRemote(s)
	} else if ModeLocalOnly != result.Mode && nil != e.cfg.Content {
		e.loadCachedRemote(s)
	}

	if ModeNametag == result.Mode {
		// nametag mode runs only stages 1, 2 and the nametag filter
		e.filterNametag(s)
		e.persistLocal(s)
		result.Status = StatusNametagOnly
		result.Counts = s.local.Counts()
		result.Version = s.local.Metadata.Version
		return result
	}

	// stage 3: canonicalise hash encodings
	e.normalise(s)

	// stage 4: structural commitment validation
	e.validateStructure(s)

	// stage 5: delegated cryptographic validation, non-fatal
	e.validateTokens(s)

	// stage 6: collapse duplicate records per token
	e.deduplicate(s)

	// stage 7 and 7.5: spend detection and tombstone verification
	if s.useTransports {
		e.detectSpent(s)
		e.verifyTombstones(s)
	}

	// stage 8: merge and assign
	e.assignCompleted(s)
	e.dropBoomerangs(s)
	if s.useTransports {
		e.filterNametag(s)
		e.reconcileBindings(s)
		e.recoverStaleProofs(s)
	}

	// stage 9: prepare next version and store locally
	e.prepare(s)

	// stage 10: upload and publish
	if s.useTransports {
		e.publish(s)
	} else if s.uploadNeeded {
		result.PublishPending = true
	}

	result.Counts = s.local.Counts()
	result.Version = s.local.Metadata.Version
	return result
}

// loadLocal - stage 1
func (e *Engine) loadLocal(s *runState) error {
	local, err := storage.LoadSnapshot(e.cfg.Snapshots, e.cfg.Address)
	if nil != err {
		return err
	}
	if nil == local {
		local = inventory.NewSnapshot(e.cfg.Address)
	}
	local.Metadata.Address = e.cfg.Address

	// taken before expiry so a run that only drops abandoned entries
	// still writes the trimmed snapshot back
	s.pristine = local.Clone()

	// abandoned split attempts expire rather than pile up
	cutoff := time.Now().Add(-e.cfg.OutboxHorizon).Unix()
	if dropped := local.ExpireOutbox(cutoff); dropped > 0 {
		e.log.Warnf("expired %d abandoned outbox entries", dropped)
		s.forceWrite = true
	}

	s.local = local
	s.highWaterMark = storage.LoadHighWaterMark(e.cfg.Marks, e.cfg.Address)
	return nil
}

// ingest - stage 0 data folded into the loaded snapshot
func (e *Engine) ingest(s *runState) {
	incoming := inventory.MostAdvancedById(s.params.newTokens())
	if 0 == len(incoming) {
		return
	}

	for id, tok := range incoming {
		state := tok.StateHash().String()

		// a token already recorded as spent at this exact state must
		// not come back to active through a replayed delivery
		if s.local.HasTombstone(id, state) {
			continue
		}

		if existing, ok := s.local.Active[id]; ok {
			merged := tokenrecord.MoreAdvanced(existing, tok)
			if len(merged.Transactions) != len(existing.Transactions) ||
				merged.ProofCount() != existing.ProofCount() {
				s.local.Active[id] = merged
				s.forceWrite = true
			}
		} else {
			s.local.Active[id] = tok
			s.result.Stats.Imported += 1
			s.forceWrite = true
		}
	}
}

// persistLocal - write the snapshot back to the local store
//
// skipped when the run changed nothing against the snapshot loaded in
// stage 1, so an idle sync costs no write
func (e *Engine) persistLocal(s *runState) {
	if nil != s.pristine &&
		s.local.Metadata == s.pristine.Metadata &&
		inventory.ContentEquals(s.local, s.pristine) {
		return
	}
	if err := storage.SaveSnapshot(e.cfg.Snapshots, e.cfg.Address, s.local); nil != err {
		e.log.Errorf("persist local: %s", err)
		s.result.issue(fmt.Sprintf("persist local: %s", err))
	}
}
