// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split

import (
	"encoding/json"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/storage"
)

// Resume - finish a split interrupted after its burn
//
// the burn entry records the planned composition, so the whole group
// rebuilds from the outbox alone: children rederive deterministically
// from the source token id and re-run every remaining phase.  Replayed
// commitments resubmit under their original request ids, so the
// aggregator answers REQUEST_ID_EXISTS for anything that already
// landed and the run continues where the crash cut it off.
func (x *Executor) Resume(groupId string) (*Outcome, error) {

	entries, err := x.groupEntries(groupId)
	if nil != err {
		return nil, err
	}
	burn := entries[phaseBurn]
	if nil == burn {
		return nil, fault.NotFoundOutboxGroup
	}
	if "" == burn.CoinKind {
		return nil, fault.IncompleteOutboxGroup
	}

	x.log.Infof("resume %s: %s into %d + %d for %q",
		groupId, burn.SourceTokenId, burn.SendAmount, burn.KeepAmount, burn.Recipient)

	// the burn must land before any child can exist
	if inventory.OutboxProofReceived != burn.Status {
		if err := x.replayEntry(phaseBurn, burn); nil != err {
			return nil, err
		}
	}

	// rebuild both children; the derivation matches the original run
	// so a group crashed before its first mint entry still produces
	// the same child ids
	sendChild := childToken(burn.SourceTokenId, 0, x.cfg.OwnerPredicate, burn.CoinKind, burn.SendAmount)
	keepChild := childToken(burn.SourceTokenId, 1, x.cfg.OwnerPredicate, burn.CoinKind, burn.KeepAmount)

	sendChild, err = x.mintChild(groupId, phaseMintSend, burn.SourceTokenId, burn.SourceStateHash, sendChild)
	if nil != err {
		return nil, err
	}
	keepChild, err = x.mintChild(groupId, phaseMintKeep, burn.SourceTokenId, burn.SourceStateHash, keepChild)
	if nil != err {
		return nil, err
	}

	if nil != x.cfg.Checkpoint {
		if err := x.cfg.Checkpoint(); nil != err {
			x.log.Warnf("resume %s: pre-transfer checkpoint failed: %s", groupId, err)
		}
	}

	transferred, err := x.transferChild(groupId, sendChild, burn.Recipient)
	if nil != err {
		return nil, err
	}

	return &Outcome{
		GroupId:     groupId,
		Kept:        &keepChild,
		Transferred: &transferred,
	}, nil
}

// replayEntry - resubmit one recorded commitment under its original key
func (x *Executor) replayEntry(phase int, entry *inventory.OutboxEntry) error {
	commitment := aggregator.Commitment{}
	if err := json.Unmarshal(entry.Commitment, &commitment); nil != err {
		return &PhaseError{
			Phase:  phaseName(phase),
			Status: aggregator.SubmitRejected,
			Err:    err,
		}
	}
	return x.submitAndAwait(phaseName(phase), *entry, commitment)
}

// PendingGroups - split groups with at least one unfinished phase
func (x *Executor) PendingGroups() ([]string, error) {
	snap, err := storage.LoadSnapshot(x.cfg.Snapshots, x.cfg.Address)
	if nil != err {
		return nil, err
	}
	if nil == snap {
		return nil, nil
	}

	seen := map[string]struct{}{}
	groups := []string(nil)
	for _, entry := range snap.Outbox {
		if entry.IsTerminal() {
			continue
		}
		if _, done := seen[entry.GroupId]; done {
			continue
		}
		seen[entry.GroupId] = struct{}{}
		groups = append(groups, entry.GroupId)
	}
	return groups, nil
}

// groupEntries - the group's entries indexed by phase
func (x *Executor) groupEntries(groupId string) ([phaseTransfer + 1]*inventory.OutboxEntry, error) {

	entries := [phaseTransfer + 1]*inventory.OutboxEntry{}

	snap, err := storage.LoadSnapshot(x.cfg.Snapshots, x.cfg.Address)
	if nil != err {
		return entries, err
	}
	if nil == snap {
		return entries, fault.NotFoundSnapshot
	}

	for i := range snap.Outbox {
		entry := &snap.Outbox[i]
		if entry.GroupId == groupId && entry.Phase >= 0 && entry.Phase <= phaseTransfer {
			entries[entry.Phase] = entry
		}
	}
	return entries, nil
}
