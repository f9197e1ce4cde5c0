// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
)

// HistoryEntry - one published snapshot along the predecessor chain
type HistoryEntry struct {
	ContentId string           `json:"contentId"`
	Version   uint64           `json:"version"`
	Counts    inventory.Counts `json:"counts"`
}

// History - read-only walk of the published snapshot chain
//
// starts from the currently published snapshot and follows
// predecessor links up to depth entries; merges nothing, purely an
// inspection of what the wallet has published over time.  Stops
// cleanly at a missing link, errors on a cycle.
func (e *Engine) History(depth int) ([]HistoryEntry, error) {

	if nil == e.cfg.Content {
		return nil, fault.NotInitialised
	}
	if depth <= 0 || depth > e.cfg.RecoveryLimit {
		depth = e.cfg.RecoveryLimit
	}

	resolution, err := e.cfg.Content.Resolve(e.cfg.Name)
	if nil != err {
		if fault.NotFoundName == err {
			return nil, nil
		}
		return nil, err
	}

	entries := []HistoryEntry{}
	visited := map[string]struct{}{}

	link := resolution.Id.String()
	content := resolution.Content

	for len(entries) < depth {

		if _, seen := visited[link]; seen {
			return entries, fault.RecoveryCycleDetected
		}
		visited[link] = struct{}{}

		snapshot, err := inventory.Decode(content)
		if nil != err {
			return entries, err
		}
		entries = append(entries, HistoryEntry{
			ContentId: link,
			Version:   snapshot.Metadata.Version,
			Counts:    snapshot.Counts(),
		})

		link = snapshot.Metadata.PreviousLink
		if "" == link {
			break
		}
		id, err := cid.Decode(link)
		if nil != err {
			return entries, err
		}
		content, err = e.cfg.Content.Fetch(id)
		if nil != err {
			if fault.NotFoundContent == err {
				break
			}
			return entries, err
		}
	}

	return entries, nil
}
