// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// ReasonCode - why a token landed in the invalid collection
type ReasonCode string

// reason codes for invalid entries
const (
	ReasonProofMismatch ReasonCode = "PROOF_MISMATCH" // structural: malformed proof or broken chain
	ReasonSDKValidation ReasonCode = "SDK_VALIDATION" // cryptographic verification failed
	ReasonStaleNametag  ReasonCode = "STALE_NAMETAG"  // only the embedded nametag proof is stale
)

// Tombstone - assertion that one (token, state) pair was spent
//
// never retained without a verifiable spend proof or a positive
// aggregator check; a tombstone failing both is a false positive and
// must be removed with the token restored
type Tombstone struct {
	TokenId   tokenrecord.TokenId `json:"tokenId"`
	StateHash string              `json:"stateHash"` // canonical imprint
}

// SentEntry - a confirmed spent token
//
// keyed by token id plus state hash so a boomerang (the same token
// reappearing at a different state) coexists with its old record
type SentEntry struct {
	TokenId    tokenrecord.TokenId         `json:"tokenId"`
	StateHash  string                      `json:"stateHash"` // state that was spent
	Token      tokenrecord.Token           `json:"token"`     // final record at spend time
	SpendProof *tokenrecord.InclusionProof `json:"spendProof,omitempty"`
	Recipient  string                      `json:"recipient,omitempty"`
	SentAt     int64                       `json:"sentAt,omitempty"` // unix seconds
}

// InvalidEntry - a token that failed validation
type InvalidEntry struct {
	TokenId   tokenrecord.TokenId `json:"tokenId"`
	StateHash string              `json:"stateHash"`
	Reason    ReasonCode          `json:"reason"`
	Detail    string              `json:"detail,omitempty"`
	Token     tokenrecord.Token   `json:"token"`
}

// Nametag - human name bound to this wallet's signing key
type Nametag struct {
	Name     string               `json:"name"`
	Token    tokenrecord.Token    `json:"token"`    // nametag token, proof embedded
	OwnerKey tokenrecord.HexBytes `json:"ownerKey"` // signing public key
}

// partitionKey - identity of sent and invalid entries for dedup
func partitionKey(id tokenrecord.TokenId, stateHash string) string {
	return id.String() + ":" + stateHash
}

// Key - dedup identity of a tombstone
func (t Tombstone) Key() string {
	return partitionKey(t.TokenId, t.StateHash)
}

// Key - dedup identity of a sent entry
func (s SentEntry) Key() string {
	return partitionKey(s.TokenId, s.StateHash)
}

// Key - dedup identity of an invalid entry
func (i InvalidEntry) Key() string {
	return partitionKey(i.TokenId, i.StateHash)
}
