// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"
)

// MemoryHandle - a Handle kept entirely in process
//
// used by tests and by ephemeral wallets that never touch disk
type MemoryHandle struct {
	sync.RWMutex
	items map[string][]byte
}

// NewMemoryHandle - create an empty in memory store
func NewMemoryHandle() *MemoryHandle {
	return &MemoryHandle{
		items: make(map[string][]byte),
	}
}

// Get - read a value, nil if missing
func (m *MemoryHandle) Get(key []byte) []byte {
	m.RLock()
	defer m.RUnlock()
	value, ok := m.items[string(key)]
	if !ok {
		return nil
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result
}

// Put - store a value
func (m *MemoryHandle) Put(key []byte, value []byte) {
	m.Lock()
	defer m.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[string(key)] = stored
}

// Delete - remove a key
func (m *MemoryHandle) Delete(key []byte) {
	m.Lock()
	defer m.Unlock()
	delete(m.items, string(key))
}

// Size - number of stored keys
func (m *MemoryHandle) Size() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.items)
}
