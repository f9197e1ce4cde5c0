// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package syncer - the inventory synchronisation engine
//
// One engine instance owns the canonical snapshot for one wallet
// address.  Every mutation of the snapshot flows through Sync, which
// runs a fixed ten stage pipeline:
//
//    0  ingest caller supplied tokens and completed transfers
//    1  load the local snapshot, migrating legacy storage
//    2  load and merge the remote snapshot (anti-regression guarded),
//       walking snapshot history when recovering
//    3  normalise hash encodings
//    4  structural commitment validation
//    5  cryptographic token validation (delegated, non-fatal)
//    6  collapse duplicate records per token
//    7  spend detection, then tombstone verification
//    8  completed transfer assignment, boomerang outbox cleanup,
//       nametag ownership and bindings, stale proof recovery
//    9  prepare the next version for storage
//   10  upload and republish the name pointer
//
// Concurrent Sync calls coalesce onto the run in flight; cross tab
// writers are additionally serialised by an advisory lock with a
// bounded acquisition timeout.  The stages execute strictly in order,
// but remote queries inside a stage run in bounded parallel batches.
package syncer
