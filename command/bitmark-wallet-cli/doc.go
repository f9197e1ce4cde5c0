// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// One-shot operations against a local wallet data directory
//
// e.g. to send 70 alpha to a named recipient:
//
//   bitmark-wallet-cli -c wallet.conf transfer -r them -k alpha -a 70
//
// The database is opened exclusively, so stop the daemon first.
package main
