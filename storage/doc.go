// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - local persistence for wallet snapshots
//
// The wallet only needs a synchronous key/value store with get, put
// and delete; that contract is the Handle interface so a host can
// substitute its own store (browser local storage, mobile key chain).
// The default implementation is a single LevelDB database per wallet
// data directory, divided into prefixed pools:
//
//   S ⇒ canonical snapshot per address
//   M ⇒ high-water mark per address
//   L ⇒ advisory lock slot per address
//
// maintain the prefixes above - it is the on disk format
package storage
