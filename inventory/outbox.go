// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// OutboxStatus - progress of one pending cryptographic operation
type OutboxStatus string

// outbox entry states
const (
	OutboxReadyToSubmit OutboxStatus = "READY_TO_SUBMIT"
	OutboxSubmitted     OutboxStatus = "SUBMITTED"
	OutboxProofReceived OutboxStatus = "PROOF_RECEIVED"
	OutboxFailed        OutboxStatus = "FAILED"
)

// OperationKind - the kind of state transition an entry performs
type OperationKind string

// operation kinds in split phase order
const (
	OpBurn     OperationKind = "BURN"
	OpMint     OperationKind = "MINT"
	OpTransfer OperationKind = "TRANSFER"
)

// OutboxEntry - one durable record of an in flight operation
//
// created before the commitment is first submitted and updated as the
// operation progresses, so a crash at any point can be resumed from
// the recorded phase
type OutboxEntry struct {
	GroupId         string                      `json:"groupId"` // one atomic split
	Phase           int                         `json:"phase"`   // 0 burn, 1..n mints, final transfer
	Kind            OperationKind               `json:"kind"`
	Status          OutboxStatus                `json:"status"`
	Commitment      tokenrecord.HexBytes        `json:"commitment"`          // serialized, resubmittable
	RequestId       string                      `json:"requestId"`           // aggregator idempotency key
	Proof           *tokenrecord.InclusionProof `json:"proof,omitempty"`     // once received
	SourceTokenId   tokenrecord.TokenId         `json:"sourceTokenId"`
	SourceStateHash string                      `json:"sourceStateHash"`        // state the operation spends
	ChildTokenId    tokenrecord.TokenId         `json:"childTokenId,omitempty"` // mint target, zero otherwise
	ChildGenesis    *tokenrecord.GenesisEvent   `json:"childGenesis,omitempty"` // mint genesis, for crash recovery
	Recipient       string                      `json:"recipient,omitempty"`    // transfer target predicate
	CoinKind        tokenrecord.CoinKind        `json:"coinKind,omitempty"`     // planned children kind, on the burn entry
	SendAmount      tokenrecord.Amount          `json:"sendAmount,omitempty"`   // planned send child amount, on the burn entry
	KeepAmount      tokenrecord.Amount          `json:"keepAmount,omitempty"`   // planned keep child amount, on the burn entry
	CreatedAt       int64                       `json:"createdAt"`              // unix seconds
}

// Key - identity of an outbox entry within its snapshot
func (e OutboxEntry) Key() string {
	return e.GroupId + ":" + e.RequestId
}

// IsTerminal - entry finished, successfully or not
func (e OutboxEntry) IsTerminal() bool {
	return OutboxProofReceived == e.Status || OutboxFailed == e.Status
}
