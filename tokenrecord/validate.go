// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord

import (
	"github.com/bitmark-inc/walletd/fault"
)

// CheckStructure - structural validation of a token record
//
// verifies chain linkage and proof well-formedness only; full
// cryptographic verification is the aggregator client's job
func CheckStructure(t Token) error {

	if 0 == len(t.Genesis.Data.Recipient) {
		return fault.InvalidTokenId
	}
	if t.Genesis.State.IsZero() {
		return fault.InvalidDataHash
	}

	if nil != t.Genesis.Proof && !t.Genesis.Proof.checkWellFormed() {
		return fault.InvalidProofChain
	}

	previous := t.Genesis.State
	for _, tx := range t.Transactions {

		// every transfer must spend the state produced by its predecessor
		if tx.Previous != previous {
			return fault.InvalidProofChain
		}
		if tx.Result.IsZero() {
			return fault.InvalidDataHash
		}
		if nil != tx.Proof {
			if !tx.Proof.checkWellFormed() {
				return fault.InvalidProofChain
			}
			// the attestation must cover the state being spent
			if nil != tx.Proof.Authenticator && tx.Proof.Authenticator.StateHash != tx.Previous {
				return fault.InvalidProofChain
			}
		}
		previous = tx.Result
	}

	return nil
}
