// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package aggregator

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/walletd/tokenrecord"
)

// request id domain separation tag
const requestIdTag = "request:v1:"

// RequestIdFor - deterministic idempotency key for one commitment
//
// keyed by the state the commitment spends, never by its output, so
// that a proof can be looked up again knowing only the token record.
// A genesis commitment spends no prior state and passes an empty
// state hash.
func RequestIdFor(id tokenrecord.TokenId, stateHash string) string {
	h := sha3.New256()
	h.Write([]byte(requestIdTag))
	h.Write(id[:])
	h.Write([]byte{0x00})
	h.Write([]byte(stateHash))
	return hex.EncodeToString(h.Sum(nil))
}
