// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"fmt"
	"time"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// detectSpent - stage 7
//
// ask the aggregator about every active token's current state; a
// positive answer moves the token to sent and records a tombstone.
// Query failures are logged and the token stays active until a later
// run can decide.
func (e *Engine) detectSpent(s *runState) {
	if nil == e.cfg.Aggregator || 0 == len(s.local.Active) {
		return
	}

	queries := make([]aggregator.SpendQuery, 0, len(s.local.Active))
	for id, tok := range s.local.Active {
		queries = append(queries, aggregator.SpendQuery{
			TokenId:   id,
			StateHash: tok.StateHash().String(),
			OwnerKey:  e.cfg.OwnerKey,
		})
	}

	failures := 0
	for _, answer := range aggregator.QuerySpent(e.cfg.Aggregator, queries) {
		if nil != answer.Err {
			failures += 1
			e.log.Warnf("spend query %s: %s", answer.Query.TokenId, answer.Err)
			continue
		}
		if !answer.Spent {
			continue
		}
		e.log.Infof("token %s spent at %s", answer.Query.TokenId, answer.Query.StateHash)
		s.local.MoveToSent(answer.Query.TokenId, answer.Query.StateHash, nil, time.Now().Unix())
		s.result.Stats.Removed += 1
		s.result.Stats.TombstonesAdded += 1
		s.forceWrite = true
	}

	if 0 != failures {
		e.brk.RecordFailure()
		s.result.issue(fmt.Sprintf("%d spend queries failed", failures))
	} else {
		e.brk.RecordSuccess()
	}
}

// verifyTombstones - stage 7.5
//
// every tombstone must be backed by evidence: a matching sent entry
// with a real inclusion proof settles it without any network, the
// rest go to the aggregator in one batch.  A tombstone failing both
// is a finality rollback false positive: remove it and restore the
// token from archived then forked storage.
func (e *Engine) verifyTombstones(s *runState) {
	if 0 == len(s.local.Tombstones) {
		return
	}

	unverified := []inventory.Tombstone(nil)
	for _, t := range s.local.Tombstones {
		sent := s.local.FindSent(t.TokenId, t.StateHash)
		if nil != sent && sent.SpendProof.IsInclusion() {
			continue
		}
		unverified = append(unverified, t)
	}
	if 0 == len(unverified) {
		return
	}
	if nil == e.cfg.Aggregator {
		return
	}

	queries := make([]aggregator.SpendQuery, len(unverified))
	for i, t := range unverified {
		queries[i] = aggregator.SpendQuery{
			TokenId:   t.TokenId,
			StateHash: t.StateHash,
			OwnerKey:  e.cfg.OwnerKey,
		}
	}

	for i, answer := range aggregator.QuerySpent(e.cfg.Aggregator, queries) {
		if nil != answer.Err {
			// no evidence either way: the tombstone stands for now
			e.log.Warnf("tombstone check %s: %s", answer.Query.TokenId, answer.Err)
			continue
		}
		if answer.Spent {
			continue
		}

		// false positive: the aggregator denies the spend
		t := unverified[i]
		e.log.Warnf("false tombstone %s at %s removed", t.TokenId, t.StateHash)
		s.local.RemoveTombstone(t.TokenId, t.StateHash)
		s.removeSent(t.TokenId, t.StateHash)
		if s.local.RestoreToken(t.TokenId, t.StateHash) {
			s.result.Stats.Recovered += 1
		}
		s.result.issue(fmt.Sprintf("tombstone %s at %s was a false positive", t.TokenId, t.StateHash))
		s.forceWrite = true
	}
}

// removeSent - drop the sent entry matching a withdrawn tombstone
func (s *runState) removeSent(id tokenrecord.TokenId, stateHash string) {
	for i, entry := range s.local.Sent {
		if entry.TokenId == id && entry.StateHash == stateHash {
			s.local.Sent = append(s.local.Sent[:i], s.local.Sent[i+1:]...)
			return
		}
	}
}
