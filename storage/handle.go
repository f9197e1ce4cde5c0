// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/bitmark-inc/logger"
)

// Handle - the synchronous key/value contract the wallet requires
//
// Get returns nil for a missing key; Put and Delete either succeed or
// panic, a failing local store is not a recoverable condition
type Handle interface {
	Get(key []byte) []byte
	Put(key []byte, value []byte)
	Delete(key []byte)
}

// PoolHandle - one key prefix inside the shared LevelDB database
type PoolHandle struct {
	prefix byte
}

// prepend the prefix onto the key
func (p *PoolHandle) prefixKey(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = p.prefix
	return append(prefixedKey, key...)
}

// Put - store a key/value bytes pair to the database
func (p *PoolHandle) Put(key []byte, value []byte) {
	poolData.RLock()
	defer poolData.RUnlock()
	if nil == poolData.db {
		logger.Panic("pool.Put nil database")
		return
	}
	err := poolData.db.Put(p.prefixKey(key), value, nil)
	logger.PanicIfError("pool.Put", err)
}

// Delete - remove a key from the database
func (p *PoolHandle) Delete(key []byte) {
	poolData.RLock()
	defer poolData.RUnlock()
	if nil == poolData.db {
		logger.Panic("pool.Delete nil database")
		return
	}
	err := poolData.db.Delete(p.prefixKey(key), nil)
	logger.PanicIfError("pool.Delete", err)
}

// Get - read a value for a given key
//
// this returns the actual element - copy the result if it must be preserved
func (p *PoolHandle) Get(key []byte) []byte {
	poolData.RLock()
	defer poolData.RUnlock()
	if nil == poolData.db {
		return nil
	}
	value, err := poolData.db.Get(p.prefixKey(key), nil)
	if leveldb.ErrNotFound == err {
		return nil
	}
	logger.PanicIfError("pool.Get", err)
	return value
}
