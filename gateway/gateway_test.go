// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gateway_test

import (
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/contentstore"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/gateway"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/keypair"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// main - for setting up the logger
func TestMain(m *testing.M) {
	curPath, err := os.Getwd()
	if nil != err {
		fmt.Printf("os.Getwd error: %s", err)
		os.Exit(1)
	}
	testingDirName := curPath + "/testing"
	_ = os.RemoveAll(testingDirName)
	if err := os.MkdirAll(testingDirName, 0700); nil != err {
		fmt.Printf("mkdir error: %s", err)
		os.Exit(1)
	}
	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	if err := logger.Initialise(logging); nil != err {
		fmt.Printf("logger setup failed with error: %s", err)
		os.Exit(1)
	}
	rc := m.Run()
	logger.Finalise()
	_ = os.RemoveAll(testingDirName)
	os.Exit(rc)
}

func makeToken(seed string) tokenrecord.Token {
	return tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:" + seed,
				Coins: []tokenrecord.Coin{
					{Kind: "alpha", Amount: 100},
				},
				Salt: []byte(seed),
			},
			State: statehash.NewHash([]byte(seed + ":genesis")),
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := gateway.NewStore(storage.NewMemoryHandle(), storage.NewMemoryHandle())

	content := []byte(`{"formatVersion":3}`)
	id, err := store.Upload(content)
	require.NoError(t, err)

	expected, err := contentstore.ComputeId(content)
	require.NoError(t, err)
	assert.Equal(t, expected, id)

	fetched, err := store.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, content, fetched)

	_, err = store.Resolve("wallet-one")
	assert.ErrorIs(t, err, fault.NotFoundName)

	err = store.Publish("wallet-one", id)
	require.NoError(t, err)

	resolution, err := store.Resolve("wallet-one")
	require.NoError(t, err)
	assert.Equal(t, id, resolution.Id)
	assert.Equal(t, content, resolution.Content)
}

func TestPeersMailbox(t *testing.T) {
	peers := gateway.NewPeers(storage.NewMemoryHandle(), storage.NewMemoryHandle())
	recipient := tokenrecord.HexBytes{0x01, 0x02, 0x03}

	first, err := peers.Send(recipient, []byte("one"))
	require.NoError(t, err)
	second, err := peers.Send(recipient, []byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	payloads, err := peers.Drain(recipient)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte("one"), payloads[0])
	assert.Equal(t, []byte("two"), payloads[1])

	payloads, err = peers.Drain(recipient)
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestPeersBinding(t *testing.T) {
	peers := gateway.NewPeers(storage.NewMemoryHandle(), storage.NewMemoryHandle())

	unbound, err := peers.QueryBindingByName("wallet-one")
	require.NoError(t, err)
	assert.Nil(t, unbound)

	ok, err := peers.PublishBinding("wallet-one", tokenrecord.HexBytes{0xaa})
	require.NoError(t, err)
	assert.True(t, ok)

	// republishing the same key is allowed, a different key is not
	ok, err = peers.PublishBinding("wallet-one", tokenrecord.HexBytes{0xaa})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = peers.PublishBinding("wallet-one", tokenrecord.HexBytes{0xbb})
	require.NoError(t, err)
	assert.False(t, ok)

	bound, err := peers.QueryBindingByName("wallet-one")
	require.NoError(t, err)
	assert.Equal(t, tokenrecord.HexBytes{0xaa}, bound)
}

func testAggregator(t *testing.T) (*gateway.Aggregator, *keypair.Keypair) {
	t.Helper()
	signer, err := keypair.Generate()
	require.NoError(t, err)
	agg := gateway.NewAggregator(
		storage.NewMemoryHandle(),
		storage.NewMemoryHandle(),
		storage.NewMemoryHandle(),
	)
	return agg, signer
}

func TestSubmitIsIdempotent(t *testing.T) {
	agg, signer := testAggregator(t)
	source := makeToken("burn-source")

	commitment, err := agg.CreateCommitment(aggregator.Operation{
		Kind:   inventory.OpBurn,
		Source: source,
	}, signer)
	require.NoError(t, err)
	assert.Equal(t,
		aggregator.RequestIdFor(source.Id(), source.StateHash().String()),
		commitment.RequestId)

	status, err := agg.Submit(commitment)
	require.NoError(t, err)
	assert.Equal(t, aggregator.SubmitSuccess, status)

	status, err = agg.Submit(commitment)
	require.NoError(t, err)
	assert.Equal(t, aggregator.SubmitRequestIdExists, status)

	spent, err := agg.IsSpent(source.Id(), source.StateHash().String(), signer.PublicKey())
	require.NoError(t, err)
	assert.True(t, spent)
}

func TestProofCoversSpentState(t *testing.T) {
	agg, signer := testAggregator(t)
	source := makeToken("transfer-source")

	commitment, err := agg.CreateCommitment(aggregator.Operation{
		Kind:      inventory.OpTransfer,
		Source:    source,
		Recipient: "predicate:recipient",
	}, signer)
	require.NoError(t, err)

	_, err = agg.Submit(commitment)
	require.NoError(t, err)

	proof, err := agg.WaitForProof(commitment, time.Second)
	require.NoError(t, err)
	require.True(t, proof.IsInclusion())
	assert.Equal(t, source.StateHash(), proof.Authenticator.StateHash)
	assert.False(t, proof.Root.IsZero())
}

func TestUnknownRequestHasNoProof(t *testing.T) {
	agg, _ := testAggregator(t)

	proof, err := agg.GetProof("never-submitted")
	require.NoError(t, err)
	assert.Nil(t, proof)
}

func TestDoubleSpendIsRejected(t *testing.T) {
	agg, signer := testAggregator(t)
	source := makeToken("contested")

	commitment, err := agg.CreateCommitment(aggregator.Operation{
		Kind:   inventory.OpBurn,
		Source: source,
	}, signer)
	require.NoError(t, err)

	status, err := agg.Submit(commitment)
	require.NoError(t, err)
	require.Equal(t, aggregator.SubmitSuccess, status)

	// same spend smuggled in under a fresh request id
	rival := commitment
	rival.RequestId = "rival-request"
	status, err = agg.Submit(rival)
	require.NoError(t, err)
	assert.Equal(t, aggregator.SubmitRejected, status)
}

func TestMintedTokenVerifies(t *testing.T) {
	agg, signer := testAggregator(t)
	token := makeToken("minted")

	commitment, err := agg.CreateCommitment(aggregator.Operation{
		Kind:       inventory.OpMint,
		NewTokenId: token.Id(),
		Recipient:  token.Genesis.Data.Recipient,
		Coins:      token.Genesis.Data.Coins,
		Salt:       token.Genesis.Data.Salt,
	}, signer)
	require.NoError(t, err)
	assert.Equal(t, aggregator.RequestIdFor(token.Id(), ""), commitment.RequestId)

	_, err = agg.Submit(commitment)
	require.NoError(t, err)

	proof, err := agg.GetProof(commitment.RequestId)
	require.NoError(t, err)
	require.True(t, proof.IsInclusion())

	result := agg.VerifyToken(token.WithGenesisProof(proof))
	assert.True(t, result.OK)
}

func TestOwnsNametag(t *testing.T) {
	bindings := storage.NewMemoryHandle()
	agg := gateway.NewAggregator(
		storage.NewMemoryHandle(),
		storage.NewMemoryHandle(),
		bindings,
	)
	peers := gateway.NewPeers(bindings, storage.NewMemoryHandle())

	signer, err := keypair.Generate()
	require.NoError(t, err)
	nametag := inventory.Nametag{
		Name:     "wallet-one",
		OwnerKey: signer.PublicKey(),
	}

	// unclaimed names count as owned
	owned, err := agg.OwnsNametag(nametag, signer.PublicKey())
	require.NoError(t, err)
	assert.True(t, owned)

	ok, err := peers.PublishBinding("wallet-one", signer.PublicKey())
	require.NoError(t, err)
	require.True(t, ok)
	owned, err = agg.OwnsNametag(nametag, signer.PublicKey())
	require.NoError(t, err)
	assert.True(t, owned)

	rival, err := keypair.Generate()
	require.NoError(t, err)
	ok, err = peers.PublishBinding("wallet-one", rival.PublicKey())
	require.NoError(t, err)
	require.False(t, ok)

	// a binding forced to another key loses ownership
	bindings.Put([]byte("wallet-one"), []byte(hex.EncodeToString(rival.PublicKey())))
	owned, err = agg.OwnsNametag(nametag, signer.PublicKey())
	require.NoError(t, err)
	assert.False(t, owned)
}
