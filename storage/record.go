// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"encoding/json"

	"github.com/bitmark-inc/walletd/inventory"
)

// SaveSnapshot - durably record the canonical snapshot for an address
func SaveSnapshot(h Handle, address string, s *inventory.Snapshot) error {
	data, err := s.Encode()
	if nil != err {
		return err
	}
	h.Put([]byte(address), data)
	return nil
}

// LoadSnapshot - read the canonical snapshot for an address
//
// returns nil without error when no snapshot was ever written; any
// legacy storage shape is migrated transparently
func LoadSnapshot(h Handle, address string) (*inventory.Snapshot, error) {
	data := h.Get([]byte(address))
	if nil == data {
		return nil, nil
	}
	return inventory.Decode(data)
}

// SaveHighWaterMark - record the highest remote version ever observed
//
// the mark only moves forward; a lower value is ignored
func SaveHighWaterMark(h Handle, address string, version uint64) {
	if version <= LoadHighWaterMark(h, address) {
		return
	}
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, version)
	h.Put([]byte(address), buffer)
}

// LoadHighWaterMark - read the recorded mark, zero if absent
func LoadHighWaterMark(h Handle, address string) uint64 {
	buffer := h.Get([]byte(address))
	if len(buffer) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buffer[:8])
}

// LockRecord - one cross-tab advisory lock slot
type LockRecord struct {
	Owner   string `json:"owner"`   // random id of the holding instance
	Expires int64  `json:"expires"` // unix milliseconds
}

// ReadLock - current lock slot, zero record if absent or corrupt
func ReadLock(h Handle, address string) LockRecord {
	record := LockRecord{}
	data := h.Get([]byte(address))
	if nil == data {
		return record
	}
	if err := json.Unmarshal(data, &record); nil != err {
		return LockRecord{}
	}
	return record
}

// WriteLock - claim or refresh the lock slot
func WriteLock(h Handle, address string, record LockRecord) {
	data, err := json.Marshal(record)
	if nil != err {
		return
	}
	h.Put([]byte(address), data)
}

// ClearLock - release the slot if this owner still holds it
func ClearLock(h Handle, address string, owner string) {
	current := ReadLock(h, address)
	if current.Owner == owner {
		h.Delete([]byte(address))
	}
}
