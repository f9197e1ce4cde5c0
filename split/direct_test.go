// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

func TestTransferDirectAppendsTransaction(t *testing.T) {
	f := newSplitFixture()

	source := sourceToken(100)
	sourceState := source.StateHash().String()

	transferred, err := f.executor.TransferDirect(source, recipient)
	require.NoError(t, err)

	require.Len(t, transferred.Transactions, 1)
	tx := transferred.Transactions[0]
	assert.Equal(t, recipient, tx.Data.Recipient)
	assert.Equal(t, source.StateHash(), tx.Previous)
	assert.NotNil(t, tx.Proof)
	assert.Equal(t, tokenrecord.Amount(100), transferred.Value(kind))

	// no burn, no mints, just the one check-pointed phase
	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.OpTransfer, entries[0].Kind)
	assert.Equal(t, inventory.OutboxProofReceived, entries[0].Status)
	assert.Equal(t, aggregator.RequestIdFor(source.Id(), sourceState), entries[0].RequestId)
	assert.Equal(t, recipient, entries[0].Recipient)
	assert.Empty(t, f.persisted)
}

func TestTransferDirectResubmitIsTolerated(t *testing.T) {
	f := newSplitFixture()

	source := sourceToken(40)
	requestId := aggregator.RequestIdFor(source.Id(), source.StateHash().String())

	_, err := f.executor.TransferDirect(source, recipient)
	require.NoError(t, err)

	// a second run spends the same state under the same request id
	_, err = f.executor.TransferDirect(source, recipient)
	require.NoError(t, err)

	assert.Equal(t, 2, f.agg.submissionCount(requestId))
	assert.Len(t, f.outbox(t), 1)
}
