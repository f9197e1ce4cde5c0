// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

func testToken(seed string) tokenrecord.Token {
	return tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:" + seed,
				Coins: []tokenrecord.Coin{
					{Kind: "alpha", Amount: 10},
				},
				Salt: []byte(seed),
			},
			State: statehash.NewHash([]byte(seed)),
		},
	}
}

func populatedSnapshot(t *testing.T) *inventory.Snapshot {
	s := inventory.NewSnapshot("addr-1")
	s.Metadata.Version = 7
	s.Metadata.PreviousLink = "bafy-previous"
	s.Metadata.Pointer = "wallet/addr-1"

	tok := testToken("active")
	s.Active[tok.Id()] = tok

	arch := testToken("archived")
	s.ArchiveToken(arch)

	fork := testToken("forked")
	s.ForkToken(fork)

	spent := testToken("spent")
	s.Tombstones = append(s.Tombstones, inventory.Tombstone{
		TokenId:   spent.Id(),
		StateHash: spent.StateHash().String(),
	})
	s.Sent = append(s.Sent, inventory.SentEntry{
		TokenId:   spent.Id(),
		StateHash: spent.StateHash().String(),
		Token:     spent,
	})

	s.Outbox = append(s.Outbox, inventory.OutboxEntry{
		GroupId:         "group-1",
		Phase:           0,
		Kind:            inventory.OpBurn,
		Status:          inventory.OutboxSubmitted,
		Commitment:      []byte("commitment"),
		RequestId:       "req-1",
		SourceTokenId:   tok.Id(),
		SourceStateHash: tok.StateHash().String(),
	})

	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {

	s := populatedSnapshot(t)

	data, err := s.Encode()
	require.Nil(t, err, "encode")

	back, err := inventory.Decode(data)
	require.Nil(t, err, "decode")

	assert.Equal(t, s.Metadata, back.Metadata, "metadata survives")
	assert.Equal(t, s.Counts(), back.Counts(), "collection sizes survive")
	assert.True(t, inventory.ContentEquals(s, back), "content identical")
}

func TestEncodeIsDeterministic(t *testing.T) {

	s := populatedSnapshot(t)

	one, err := s.Encode()
	require.Nil(t, err)
	two, err := s.Encode()
	require.Nil(t, err)

	assert.Equal(t, one, two, "same snapshot same bytes")
}

func TestDecodeLegacyFormat(t *testing.T) {

	tok := testToken("legacy")
	bareHash := tok.StateHash().String()[4:] // strip algorithm prefix

	legacy := map[string]interface{}{
		"version": 3,
		"address": "addr-legacy",
		"tokens":  []tokenrecord.Token{tok},
		"tombstones": []map[string]string{
			{
				"tokenId":   tok.Id().String(),
				"stateHash": bareHash,
			},
		},
	}
	data, err := json.Marshal(legacy)
	require.Nil(t, err, "build legacy shape")

	s, err := inventory.Decode(data)
	require.Nil(t, err, "legacy decode")

	assert.Equal(t, uint64(3), s.Metadata.Version, "version carried over")
	assert.Equal(t, "addr-legacy", s.Metadata.Address, "address carried over")
	assert.Equal(t, inventory.CurrentFormat, s.Metadata.Format, "migrated to current format")
	assert.Equal(t, 1, len(s.Active), "token migrated to active")

	// the bare digest gains its canonical prefix
	require.Equal(t, 1, len(s.Tombstones))
	assert.Equal(t, tok.StateHash().String(), s.Tombstones[0].StateHash, "state hash normalised")
}

func TestDecodeRejectsUnknownShape(t *testing.T) {

	_, err := inventory.Decode([]byte(`{"something":"else"}`))
	assert.NotNil(t, err, "unknown storage shape")

	_, err = inventory.Decode([]byte(`not json`))
	assert.NotNil(t, err, "not json at all")
}

func TestContentEqualsIgnoresVersionAndLink(t *testing.T) {

	a := populatedSnapshot(t)
	b := populatedSnapshot(t)

	b.Metadata.Version = 99
	b.Metadata.PreviousLink = "bafy-other"

	assert.True(t, inventory.ContentEquals(a, b), "version and link are not content")

	extra := testToken("extra")
	b.Active[extra.Id()] = extra
	assert.False(t, inventory.ContentEquals(a, b), "token difference is content")
}
