// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package inventory - the wallet's canonical token inventory
//
// An inventory partitions every known token into five disjoint
// collections: active (spendable), sent (confirmed spent), invalid
// (failed validation), archived (superseded states kept for rollback
// recovery) and forked (exact historical states).  Alongside the
// partitions it records tombstones, the durable outbox of in flight
// cryptographic operations, the optional nametag and the sync
// metadata (version, predecessor link).
//
// The serialized snapshot here is the exact wire shape exchanged with
// the content addressed transport: the local copy and the published
// copy must be semantically identical, field order and whitespace
// aside.
package inventory
