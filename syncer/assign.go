// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// assignCompleted - stage 8
//
// completed transfer records from the delivery queue move their token
// to sent, but only when the declared state hash still matches: a
// token that advanced past the declared state since the delivery was
// queued must not be marked spent at the wrong state
func (e *Engine) assignCompleted(s *runState) {
	for _, completed := range s.params.CompletedTransfers {
		tok, ok := s.local.Active[completed.TokenId]
		if !ok {
			continue
		}
		current := tok.StateHash().String()
		if current != completed.StateHash {
			e.log.Warnf("completed transfer %s declares %s but token is at %s",
				completed.TokenId, completed.StateHash, current)
			s.result.issue(fmt.Sprintf(
				"completed transfer %s skipped: state moved on", completed.TokenId))
			continue
		}
		s.local.MoveToSent(completed.TokenId, completed.StateHash, completed.Proof, time.Now().Unix())
		s.result.Stats.Removed += 1
		s.result.Stats.TombstonesAdded += 1
		s.forceWrite = true
	}
}

// dropBoomerangs - stage 8 continued
//
// an outbox entry whose source token is active again at a different
// state is stale: the token boomeranged back before the operation
// finalised and the recorded commitment can never anchor
func (e *Engine) dropBoomerangs(s *runState) {
	kept := s.local.Outbox[:0]
	for _, entry := range s.local.Outbox {
		if entry.IsTerminal() {
			kept = append(kept, entry)
			continue
		}
		tok, active := s.local.Active[entry.SourceTokenId]
		if active && tok.StateHash().String() != entry.SourceStateHash {
			e.log.Warnf("dropping boomerang outbox entry %s: source %s moved from %s",
				entry.Key(), entry.SourceTokenId, entry.SourceStateHash)
			s.result.issue(fmt.Sprintf("stale outbox entry %s dropped", entry.Key()))
			s.forceWrite = true
			continue
		}
		kept = append(kept, entry)
	}
	s.local.Outbox = kept
}

// filterNametag - stage 8.4
//
// a nametag stays only while the signing key still owns it; ownership
// is re-proven on every transported run so a name transferred away on
// another device disappears here
func (e *Engine) filterNametag(s *runState) {
	if nil == s.local.Nametag || nil == e.cfg.Aggregator {
		return
	}
	owns, err := e.cfg.Aggregator.OwnsNametag(*s.local.Nametag, e.cfg.OwnerKey)
	if nil != err {
		// unknown, keep the nametag until a run can prove otherwise
		e.log.Warnf("nametag ownership check: %s", err)
		return
	}
	if !owns {
		e.log.Warnf("nametag %q no longer owned, dropping", s.local.Nametag.Name)
		s.result.issue(fmt.Sprintf("nametag %q no longer owned", s.local.Nametag.Name))
		s.local.Nametag = nil
		s.forceWrite = true
	}
}

// reconcileBindings - stage 8.5
//
// best effort only: make the routing binding for the nametag point at
// our key so peers can address us by name; any failure is logged and
// never blocks the run
func (e *Engine) reconcileBindings(s *runState) {
	if nil == s.local.Nametag || nil == e.cfg.Peers {
		return
	}
	name := s.local.Nametag.Name

	bound, err := e.cfg.Peers.QueryBindingByName(name)
	if nil != err {
		e.log.Warnf("binding query %q: %s", name, err)
		return
	}
	if bytes.Equal(bound, e.cfg.OwnerKey) {
		return
	}

	ok, err := e.cfg.Peers.PublishBinding(name, e.cfg.OwnerKey)
	if nil != err {
		e.log.Warnf("binding publish %q: %s", name, err)
		return
	}
	if !ok {
		// held by another key: surface it, ownership filtering in
		// 8.4 decides whether the nametag itself survives
		e.log.Warnf("binding %q held by another key", name)
		s.result.issue(fmt.Sprintf("routing binding %q held by another key", name))
	}
}

// recoverStaleProofs - stage 8.6
//
// a token invalidated only because its embedded nametag proof went
// stale is recoverable: look up a fresh proof for every event, keyed
// by the state each commitment spends, and re-validate
func (e *Engine) recoverStaleProofs(s *runState) {
	if nil == e.cfg.Aggregator || 0 == len(s.local.Invalid) {
		return
	}

	kept := s.local.Invalid[:0]
	for _, entry := range s.local.Invalid {
		if inventory.ReasonStaleNametag != entry.Reason {
			kept = append(kept, entry)
			continue
		}

		refreshed, ok := e.refreshProofs(entry.Token)
		if !ok {
			kept = append(kept, entry)
			continue
		}

		if err := tokenrecord.CheckStructure(refreshed); nil != err {
			kept = append(kept, entry)
			continue
		}
		if v := e.cfg.Aggregator.VerifyToken(refreshed); !v.OK {
			kept = append(kept, entry)
			continue
		}

		e.log.Infof("token %s recovered after proof refresh", entry.TokenId)
		s.local.Active[entry.TokenId] = refreshed
		s.result.Stats.Recovered += 1
		s.forceWrite = true
	}
	s.local.Invalid = kept
}

// refreshProofs - fetch current proofs for every event of a token
//
// oldest first so a failure leaves the earlier part of the chain
// already refreshed for the next attempt
func (e *Engine) refreshProofs(tok tokenrecord.Token) (tokenrecord.Token, bool) {

	id := tok.Id()

	proof, err := e.cfg.Aggregator.GetProof(aggregator.RequestIdFor(id, ""))
	if nil != err {
		e.brk.RecordFailure()
		return tok, false
	}
	if proof.IsInclusion() {
		tok = tok.WithGenesisProof(proof)
	}

	for i, tx := range tok.Transactions {
		proof, err := e.cfg.Aggregator.GetProof(
			aggregator.RequestIdFor(id, tx.Previous.String()))
		if nil != err {
			e.brk.RecordFailure()
			return tok, false
		}
		if proof.IsInclusion() {
			tok = tok.WithTransactionProof(i, proof)
		}
	}

	e.brk.RecordSuccess()
	return tok, true
}
