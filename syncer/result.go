// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"time"

	"github.com/bitmark-inc/walletd/breaker"
	"github.com/bitmark-inc/walletd/inventory"
)

// Status - overall outcome of a sync run
type Status string

// sync statuses
const (
	StatusSuccess        Status = "SUCCESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS" // uploaded but the name publish failed
	StatusNametagOnly    Status = "NAMETAG_ONLY"
	StatusError          Status = "ERROR"
)

// Stats - what one run changed
type Stats struct {
	Imported        int // tokens merged in from remote, history or callers
	Removed         int // stale outbox entries and false tombstones dropped
	Recovered       int // tokens restored or re-validated
	TombstonesAdded int
}

// Result - returned to every (coalesced) caller of Sync
type Result struct {
	Status         Status
	Mode           Mode
	Stats          Stats
	Counts         inventory.Counts
	LastContentId  string // content id of the newest published snapshot
	Published      bool
	PublishPending bool // content changed but publishing was blocked or skipped
	Duration       time.Duration
	Version        uint64
	BreakerState   breaker.State
	Issues         []string // non-fatal problems, human readable
}

// issue - append a non-fatal problem to the run record
func (r *Result) issue(s string) {
	r.Issues = append(r.Issues, s)
}
