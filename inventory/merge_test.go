// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// one token in two states of advancement
func tokenPair(seed string) (short tokenrecord.Token, long tokenrecord.Token) {
	short = testToken(seed)
	long = short.WithAppendedTransaction(tokenrecord.TransferTransaction{
		Data:     short.Genesis.Data,
		Previous: short.Genesis.State,
		Result:   statehash.NewHash([]byte(seed + ":next")),
	})
	return short, long
}

func TestMergeRemotePrefersAdvancedRecord(t *testing.T) {

	short, long := tokenPair("m1")

	local := inventory.NewSnapshot("addr")
	local.Active[short.Id()] = short

	remote := inventory.NewSnapshot("addr")
	remote.Active[long.Id()] = long

	r := local.MergeRemote(remote, true)

	assert.Equal(t, 1, r.Imported, "remote record imported")
	got := local.Active[short.Id()]
	assert.Equal(t, 1, len(got.Transactions), "advanced record kept")
	assert.Equal(t, 1, len(local.Archived), "superseded local state archived")
}

func TestMergeRemoteDeterministicUnderOrder(t *testing.T) {

	short, long := tokenPair("m2")

	// local has the long record, remote the short one:
	// the merge must still settle on the long record
	local := inventory.NewSnapshot("addr")
	local.Active[long.Id()] = long
	remote := inventory.NewSnapshot("addr")
	remote.Active[short.Id()] = short

	local.MergeRemote(remote, true)
	got := local.Active[long.Id()]
	assert.Equal(t, 1, len(got.Transactions), "load order does not matter")
}

func TestMergeRemoteFlagsLocalOnlyTokens(t *testing.T) {

	mine := testToken("local-only")
	local := inventory.NewSnapshot("addr")
	local.Active[mine.Id()] = mine

	r := local.MergeRemote(inventory.NewSnapshot("addr"), true)

	require.Equal(t, 1, len(r.NeedUpload), "local only token flagged")
	assert.Equal(t, mine.Id(), r.NeedUpload[0], "flagged id")
}

func TestMergeRemoteUnionsWithDedup(t *testing.T) {

	spent := testToken("dup")
	key := spent.StateHash().String()

	local := inventory.NewSnapshot("addr")
	local.Tombstones = []inventory.Tombstone{{TokenId: spent.Id(), StateHash: key}}

	remote := inventory.NewSnapshot("addr")
	remote.Tombstones = []inventory.Tombstone{
		{TokenId: spent.Id(), StateHash: key}, // duplicate
		{TokenId: spent.Id(), StateHash: "0000aa"},
	}

	r := local.MergeRemote(remote, true)

	assert.Equal(t, 1, r.Tombstones, "only the new tombstone added")
	assert.Equal(t, 2, len(local.Tombstones), "union result")
}

func TestMergeRemoteSkipsSpendDataWhenRegressed(t *testing.T) {

	spent := testToken("regressed")
	remote := inventory.NewSnapshot("addr")
	remote.Tombstones = []inventory.Tombstone{
		{TokenId: spent.Id(), StateHash: spent.StateHash().String()},
	}
	fresh := testToken("fresh")
	remote.Active[fresh.Id()] = fresh

	local := inventory.NewSnapshot("addr")
	r := local.MergeRemote(remote, false)

	assert.Equal(t, 1, r.Imported, "token records still merge")
	assert.Equal(t, 0, len(local.Tombstones), "spend data not merged")
}

func TestRestoreTokenPrefersArchived(t *testing.T) {

	tok := testToken("restore")
	s := inventory.NewSnapshot("addr")
	s.ArchiveToken(tok)
	s.ForkToken(tok)

	ok := s.RestoreToken(tok.Id(), tok.StateHash().String())

	assert.True(t, ok, "restored")
	assert.Equal(t, 1, len(s.Active), "token active again")
	assert.Equal(t, 0, len(s.Archived), "taken from archive")
	assert.Equal(t, 1, len(s.Forked), "forked copy untouched")
}

func TestMoveToSentCreatesTombstone(t *testing.T) {

	tok := testToken("sent")
	s := inventory.NewSnapshot("addr")
	s.Active[tok.Id()] = tok

	state := tok.StateHash().String()
	s.MoveToSent(tok.Id(), state, nil, 12345)

	assert.Equal(t, 0, len(s.Active), "no longer active")
	assert.Equal(t, 1, len(s.Sent), "sent entry written")
	assert.True(t, s.HasTombstone(tok.Id(), state), "tombstone written")
}

func TestMostAdvancedByIdCollapsesDuplicates(t *testing.T) {

	short, long := tokenPair("collapse")
	other := testToken("other")

	result := inventory.MostAdvancedById([]tokenrecord.Token{short, long, other, short})

	require.Equal(t, 2, len(result), "one entry per id")
	assert.Equal(t, 1, len(result[short.Id()].Transactions), "most advanced kept")
}
