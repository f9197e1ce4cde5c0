// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split

import (
	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// TransferDirect - move one whole token to a recipient
//
// a plan's direct tokens need no burn or mint, just the single
// transfer phase spending the token's current state.  The outbox
// entry is written before submission like every split phase, so a
// crashed direct transfer resubmits under the same request id.
func (x *Executor) TransferDirect(token tokenrecord.Token, recipient string) (tokenrecord.Token, error) {

	sourceState := token.StateHash().String()
	groupId := aggregator.RequestIdFor(token.Id(), sourceState)[:16]

	x.log.Infof("direct %s: %s to %q", groupId, token.Id(), recipient)

	tx := buildDirectTransfer(token, recipient)

	err := x.runPhase(groupId, phaseTransfer, aggregator.Operation{
		Kind:      inventory.OpTransfer,
		Source:    token,
		Recipient: recipient,
		Salt:      tx.Data.Salt,
	}, outboxShape{
		kind:            inventory.OpTransfer,
		requestId:       aggregator.RequestIdFor(token.Id(), sourceState),
		sourceTokenId:   token.Id(),
		sourceStateHash: sourceState,
		recipient:       recipient,
	})
	if nil != err {
		return token, err
	}

	tx.Proof = x.recordedProof(groupId, phaseTransfer)
	return token.WithAppendedTransaction(tx), nil
}

// buildDirectTransfer - deterministic transfer spending the current state
func buildDirectTransfer(token tokenrecord.Token, recipient string) tokenrecord.TransferTransaction {
	previous := token.StateHash()
	return tokenrecord.TransferTransaction{
		Data: tokenrecord.EventData{
			Recipient: recipient,
			Coins:     token.Genesis.Data.Coins,
			Salt:      token.Genesis.Data.Salt,
			Reason:    "transfer",
		},
		Previous: previous,
		Result:   statehash.NewHash([]byte("transfer:" + token.Id().String() + ":" + previous.String() + ":" + recipient)),
	}
}
