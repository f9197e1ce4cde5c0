// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"fmt"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// normalise - stage 3
//
// canonicalise every hash encoding so later stages compare imprints
// with plain equality; bare legacy digests gain the algorithm prefix
func (e *Engine) normalise(s *runState) {

	for id, tok := range s.local.Active {
		s.local.Active[id] = normaliseToken(tok)
	}

	for i, t := range s.local.Tombstones {
		if canonical, err := statehash.Normalise(t.StateHash); nil == err {
			s.local.Tombstones[i].StateHash = canonical
		}
	}
	for i, entry := range s.local.Sent {
		if canonical, err := statehash.Normalise(entry.StateHash); nil == err {
			s.local.Sent[i].StateHash = canonical
		}
		s.local.Sent[i].SpendProof = entry.SpendProof.Normalised()
	}
	for i, entry := range s.local.Invalid {
		if canonical, err := statehash.Normalise(entry.StateHash); nil == err {
			s.local.Invalid[i].StateHash = canonical
		}
	}
	for i, entry := range s.local.Outbox {
		if canonical, err := statehash.Normalise(entry.SourceStateHash); nil == err {
			s.local.Outbox[i].SourceStateHash = canonical
		}
	}
}

func normaliseToken(tok tokenrecord.Token) tokenrecord.Token {
	if nil != tok.Genesis.Proof {
		tok = tok.WithGenesisProof(tok.Genesis.Proof.Normalised())
	}
	for i, tx := range tok.Transactions {
		if nil != tx.Proof {
			tok = tok.WithTransactionProof(i, tx.Proof.Normalised())
		}
	}
	return tok
}

// validateStructure - stage 4
//
// structural commitment checks: well formed authenticators and an
// unbroken previous state chain; a failure is a PROOF_MISMATCH
func (e *Engine) validateStructure(s *runState) {
	for id, tok := range s.local.Active {
		if err := tokenrecord.CheckStructure(tok); nil != err {
			e.log.Warnf("token %s failed structure check: %s", id, err)
			s.local.MarkInvalid(id, inventory.ReasonProofMismatch, err.Error())
			s.forceWrite = true
		}
	}
}

// validateTokens - stage 5
//
// full cryptographic verification is delegated; a failure moves the
// token to invalid but never aborts the run
func (e *Engine) validateTokens(s *runState) {
	if nil == e.cfg.Aggregator {
		return
	}
	for id, tok := range s.local.Active {
		v := e.cfg.Aggregator.VerifyToken(tok)
		if !v.OK {
			reason := inventory.ReasonSDKValidation
			if v.StaleNametag {
				// recoverable later by refreshing proofs
				reason = inventory.ReasonStaleNametag
			}
			e.log.Warnf("token %s failed verification: %s", id, v.Reason)
			s.local.MarkInvalid(id, reason, v.Reason)
			s.result.issue(fmt.Sprintf("token %s invalid: %s", id, v.Reason))
			s.forceWrite = true
		}
	}
}

// deduplicate - stage 6
//
// one record per token id: an archived copy that is no more advanced
// than the active one is redundant, a more advanced archived copy
// replaces it; spend collections dedup by token id + state hash
func (e *Engine) deduplicate(s *runState) {

	for id, archived := range s.local.Archived {
		active, ok := s.local.Active[id]
		if !ok {
			continue
		}
		merged := tokenrecord.MoreAdvanced(active, archived)
		s.local.Active[id] = merged
		if merged.StateHash() == archived.StateHash() {
			delete(s.local.Archived, id)
		}
	}

	s.local.Tombstones = dedupTombstones(s.local.Tombstones)
	s.local.Sent = dedupSent(s.local.Sent)
	s.local.Invalid = dedupInvalid(s.local.Invalid)
}

func dedupTombstones(entries []inventory.Tombstone) []inventory.Tombstone {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, t := range entries {
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupSent(entries []inventory.SentEntry) []inventory.SentEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, t := range entries {
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupInvalid(entries []inventory.InvalidEntry) []inventory.InvalidEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, t := range entries {
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		out = append(out, t)
	}
	return out
}
