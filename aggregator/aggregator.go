// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package aggregator - client contract for the commitment log
//
// The aggregator anchors signed state transition commitments into an
// append only log and answers inclusion and spend queries.  Building
// and cryptographically verifying commitments happens behind this
// interface; the wallet core only sequences the calls.
package aggregator

import (
	"time"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// SubmitStatus - outcome of submitting one commitment
type SubmitStatus string

// submit outcomes
const (
	SubmitSuccess         SubmitStatus = "SUCCESS"
	SubmitRequestIdExists SubmitStatus = "REQUEST_ID_EXISTS" // idempotent resubmit, not an error
	SubmitRejected        SubmitStatus = "REJECTED"
)

// Commitment - a signed intent to transition a token, ready to submit
//
// the request id doubles as the aggregator's idempotency key: the
// same commitment resubmitted after a crash reports REQUEST_ID_EXISTS
type Commitment struct {
	RequestId string
	Kind      inventory.OperationKind
	Data      tokenrecord.HexBytes // serialized, resubmittable as-is
}

// Operation - parameters for building one commitment
type Operation struct {
	Kind       inventory.OperationKind
	Source     tokenrecord.Token   // token whose state is spent (burn/transfer)
	NewTokenId tokenrecord.TokenId // mint target id, zero otherwise
	Recipient  string              // recipient predicate reference
	Coins      []tokenrecord.Coin  // composition of a minted token
	Salt       tokenrecord.HexBytes
}

// Signer - key holder able to sign commitments, supplied by the host
type Signer interface {
	PublicKey() tokenrecord.HexBytes
	Sign(message []byte) (tokenrecord.HexBytes, error)
}

// VerifyResult - outcome of full cryptographic token verification
//
// StaleNametag marks a failure caused only by an out of date embedded
// nametag proof; such tokens are recoverable by refreshing proofs
type VerifyResult struct {
	OK           bool
	Reason       string
	StaleNametag bool
}

// Client - everything the wallet core needs from the aggregator
type Client interface {

	// CreateCommitment - build and sign a commitment for one operation
	CreateCommitment(op Operation, signer Signer) (Commitment, error)

	// Submit - send a commitment, idempotent per request id
	Submit(commitment Commitment) (SubmitStatus, error)

	// GetProof - fetch the proof for a request, nil if not anchored yet;
	// a proof without an authenticator is an exclusion proof
	GetProof(requestId string) (*tokenrecord.InclusionProof, error)

	// WaitForProof - poll until an inclusion proof arrives or timeout
	WaitForProof(commitment Commitment, timeout time.Duration) (*tokenrecord.InclusionProof, error)

	// VerifyToken - full cryptographic verification of a token record
	VerifyToken(token tokenrecord.Token) VerifyResult

	// IsSpent - authoritative spend check for one (token, state) pair
	IsSpent(tokenId tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error)

	// OwnsNametag - re-prove that the signing key owns a nametag
	OwnsNametag(nametag inventory.Nametag, ownerKey tokenrecord.HexBytes) (bool, error)
}
