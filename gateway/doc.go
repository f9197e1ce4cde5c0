// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package gateway - single host implementations of the transport
// contracts
//
// The wallet core only sees the aggregator, content store and peer
// messaging interfaces.  This package binds all three to pools inside
// the wallet's own database so a complete wallet, or several wallets
// sharing one database, can run on a single host with no network.
// This is the walletd equivalent of a local development chain.
package gateway
