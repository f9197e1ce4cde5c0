// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/bitmark-inc/walletd/fault"
)

// exported storage pools
//
// note all must be exported (i.e. initial capital) or initialisation will panic
type pools struct {
	Snapshots *PoolHandle // prefix: S
	Marks     *PoolHandle // prefix: M
	Locks     *PoolHandle // prefix: L
	Contents  *PoolHandle // prefix: C
	Names     *PoolHandle // prefix: N
	Bindings  *PoolHandle // prefix: B
	Inbox     *PoolHandle // prefix: I
	Requests  *PoolHandle // prefix: R
	Spends    *PoolHandle // prefix: X
}

// Pool - the set of exported pools
var Pool pools

// holds the database handle
var poolData struct {
	sync.RWMutex
	db *leveldb.DB
}

// Initialise - open up the database connection
//
// this must be called before any pool is accessed
func Initialise(database string) error {
	poolData.Lock()
	defer poolData.Unlock()

	if nil != poolData.db {
		return fault.AlreadyInitialised
	}

	db, err := leveldb.OpenFile(database+"-wallet.leveldb", nil)
	if nil != err {
		return err
	}
	poolData.db = db

	Pool.Snapshots = &PoolHandle{prefix: 'S'}
	Pool.Marks = &PoolHandle{prefix: 'M'}
	Pool.Locks = &PoolHandle{prefix: 'L'}
	Pool.Contents = &PoolHandle{prefix: 'C'}
	Pool.Names = &PoolHandle{prefix: 'N'}
	Pool.Bindings = &PoolHandle{prefix: 'B'}
	Pool.Inbox = &PoolHandle{prefix: 'I'}
	Pool.Requests = &PoolHandle{prefix: 'R'}
	Pool.Spends = &PoolHandle{prefix: 'X'}

	return nil
}

// Finalise - close the database connection
func Finalise() {
	poolData.Lock()
	defer poolData.Unlock()

	if nil == poolData.db {
		return
	}

	poolData.db.Close()
	poolData.db = nil
	Pool = pools{}
}

// IsInitialised - check the database is open
func IsInitialised() bool {
	poolData.RLock()
	defer poolData.RUnlock()
	return nil != poolData.db
}
