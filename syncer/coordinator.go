// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/bitmark-inc/walletd/storage"
)

// lock slot time to live: a crashed holder expires after this
const lockTTL = 30 * time.Second

// how often a waiting acquirer re-checks the slot
const lockPollInterval = 50 * time.Millisecond

// coordinator - cross-tab advisory lock over the shared local store
//
// several wallet instances (browser tabs, processes) may point at the
// same store; the slot in storage serialises their sync runs.  The
// lock is advisory: acquisition timeout falls through to proceed
// anyway, favouring availability over strict exclusion.
type coordinator struct {
	locks   storage.Handle
	address string
	owner   string
	timeout time.Duration
}

func newCoordinator(locks storage.Handle, address string, timeout time.Duration) *coordinator {
	buffer := make([]byte, 8)
	_, _ = rand.Read(buffer)
	return &coordinator{
		locks:   locks,
		address: address,
		owner:   hex.EncodeToString(buffer),
		timeout: timeout,
	}
}

// tryAcquire - claim the slot, waiting up to the configured timeout
//
// returns true when the slot was claimed; false means the timeout
// elapsed and the caller proceeds without it
func (c *coordinator) tryAcquire() bool {
	if nil == c.locks {
		return true
	}

	deadline := time.Now().Add(c.timeout)
	for {
		now := time.Now()
		current := storage.ReadLock(c.locks, c.address)

		free := "" == current.Owner || current.Expires <= now.UnixMilli()
		if free || current.Owner == c.owner {
			storage.WriteLock(c.locks, c.address, storage.LockRecord{
				Owner:   c.owner,
				Expires: now.Add(lockTTL).UnixMilli(),
			})
			return true
		}

		if now.After(deadline) {
			return false
		}
		time.Sleep(lockPollInterval)
	}
}

// release - free the slot if still held by this instance
func (c *coordinator) release() {
	if nil == c.locks {
		return
	}
	storage.ClearLock(c.locks, c.address, c.owner)
}
