// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// Mode - how much of the pipeline a sync run performs
type Mode string

// sync modes
const (
	ModeNormal    Mode = "NORMAL"     // full pipeline
	ModeLocalOnly Mode = "LOCAL_ONLY" // no transport at all
	ModeRecovery  Mode = "RECOVERY"   // walk snapshot history to a depth
	ModeNametag   Mode = "NAMETAG"    // stages 1, 2 and nametag filtering only
)

// CompletedTransfer - a delivery that finished while we were away
//
// the declared state hash must match the token's current state before
// the token is moved to sent
type CompletedTransfer struct {
	TokenId   tokenrecord.TokenId
	StateHash string
	Proof     *tokenrecord.InclusionProof
}

// Params - one sync request
type Params struct {
	Mode               Mode
	RecoveryDepth      int // history steps to walk in RECOVERY mode
	IncomingTokens     []tokenrecord.Token
	OutboxTokens       []tokenrecord.Token // freshly minted by a running split
	CompletedTransfers []CompletedTransfer
}

// hasNewData - whether this request brings anything the in flight
// run does not already cover
func (p Params) hasNewData() bool {
	return 0 != len(p.IncomingTokens) ||
		0 != len(p.OutboxTokens) ||
		0 != len(p.CompletedTransfers)
}

// newTokens - all tokens carried by the request
func (p Params) newTokens() []tokenrecord.Token {
	if 0 == len(p.OutboxTokens) {
		return p.IncomingTokens
	}
	tokens := make([]tokenrecord.Token, 0, len(p.IncomingTokens)+len(p.OutboxTokens))
	tokens = append(tokens, p.IncomingTokens...)
	tokens = append(tokens, p.OutboxTokens...)
	return tokens
}
