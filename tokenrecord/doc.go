// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tokenrecord - value types for wallet held tokens
//
// A token is an immutable genesis event followed by an ordered list of
// transfer transactions.  Every event carries its payload and, once
// the aggregator has anchored the matching commitment, an inclusion
// proof.  The types here are values: nothing mutates a token in place,
// updated copies are produced by the With… constructors.  This keeps
// shared snapshots safe to hand between the sync engine, the split
// protocol and the delivery loops without defensive copying.
package tokenrecord
