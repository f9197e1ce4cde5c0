// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// build a minimal token with n transfer transactions, proofs optional
func makeToken(seed string, transfers int, provenTransfers int) tokenrecord.Token {
	t := tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:" + seed,
				Coins: []tokenrecord.Coin{
					{Kind: "alpha", Amount: 100},
				},
				Salt: []byte(seed),
			},
			State: statehash.NewHash([]byte(seed + ":genesis")),
			Proof: inclusionProof(seed+":genesis", statehash.Hash{}),
		},
	}

	previous := t.Genesis.State
	for i := 0; i < transfers; i += 1 {
		result := statehash.NewHash([]byte{byte(i + 1)})
		tx := tokenrecord.TransferTransaction{
			Data: tokenrecord.EventData{
				Recipient: "predicate:next",
				Coins:     t.Genesis.Data.Coins,
				Salt:      []byte{byte(i)},
			},
			Previous: previous,
			Result:   result,
		}
		if i < provenTransfers {
			tx.Proof = inclusionProof(seed, previous)
		}
		t = t.WithAppendedTransaction(tx)
		previous = result
	}
	return t
}

func inclusionProof(seed string, spends statehash.Hash) *tokenrecord.InclusionProof {
	return &tokenrecord.InclusionProof{
		Authenticator: &tokenrecord.Authenticator{
			PublicKey: []byte("pub:" + seed),
			Signature: []byte("sig:" + seed),
			StateHash: spends,
		},
		Root: statehash.NewHash([]byte("root:" + seed)),
	}
}

func TestIdDerivationIsDeterministic(t *testing.T) {

	a := makeToken("one", 0, 0)
	b := makeToken("one", 2, 1)
	c := makeToken("two", 0, 0)

	// transactions do not change the identity
	assert.Equal(t, a.Id(), b.Id(), "id depends only on genesis")
	assert.NotEqual(t, a.Id(), c.Id(), "different genesis different id")
}

func TestStateHashFollowsLastTransaction(t *testing.T) {

	a := makeToken("state", 0, 0)
	assert.Equal(t, a.Genesis.State, a.StateHash(), "no transactions: genesis state")

	b := makeToken("state", 3, 0)
	assert.Equal(t, b.Transactions[2].Result, b.StateHash(), "last transaction result")
}

func TestExclusionProofIsNeverConfirmation(t *testing.T) {

	tok := makeToken("excl", 0, 0)
	assert.True(t, tok.IsCommitted(), "inclusion proof on genesis")

	// replace with an exclusion proof: present, but no authenticator
	excl := &tokenrecord.InclusionProof{
		Root: statehash.NewHash([]byte("root")),
	}
	tok = tok.WithGenesisProof(excl)
	assert.False(t, tok.IsCommitted(), "exclusion proof must not confirm")

	tok = tok.WithGenesisProof(nil)
	assert.False(t, tok.IsCommitted(), "missing proof must not confirm")
}

func TestMoreAdvancedPrefersLongerHistory(t *testing.T) {

	local := makeToken("merge", 1, 0)
	remote := makeToken("merge", 2, 1)

	// regardless of argument order the longer history wins
	assert.Equal(t, 2, len(tokenrecord.MoreAdvanced(local, remote).Transactions), "remote longer")
	assert.Equal(t, 2, len(tokenrecord.MoreAdvanced(remote, local).Transactions), "order independence")
}

func TestMoreAdvancedTieBreaksOnProofs(t *testing.T) {

	bare := makeToken("tie", 2, 0)
	proven := makeToken("tie", 2, 2)

	assert.Equal(t, proven.ProofCount(), tokenrecord.MoreAdvanced(bare, proven).ProofCount(), "proof bearing side wins")
	assert.Equal(t, proven.ProofCount(), tokenrecord.MoreAdvanced(proven, bare).ProofCount(), "order independence")

	// full tie keeps the first (local) argument
	x := makeToken("tie", 2, 1)
	y := makeToken("tie", 2, 1)
	assert.Equal(t, x, tokenrecord.MoreAdvanced(x, y), "tie keeps local")
}

func TestWithProofDoesNotMutateOriginal(t *testing.T) {

	original := makeToken("immutable", 1, 0)
	assert.Nil(t, original.Transactions[0].Proof, "setup: no proof")

	updated := original.WithTransactionProof(0, inclusionProof("new", original.Genesis.State))

	assert.Nil(t, original.Transactions[0].Proof, "original untouched")
	assert.NotNil(t, updated.Transactions[0].Proof, "copy updated")
}

func TestDeriveChildTokenId(t *testing.T) {

	parent := makeToken("parent", 0, 0).Id()

	c0 := tokenrecord.DeriveChildTokenId(parent, 0)
	c1 := tokenrecord.DeriveChildTokenId(parent, 1)

	assert.NotEqual(t, c0, c1, "children differ by index")
	assert.Equal(t, c0, tokenrecord.DeriveChildTokenId(parent, 0), "derivation is stable")
	assert.NotEqual(t, parent, c0, "child differs from parent")
}

func TestValueSumsCoinKind(t *testing.T) {

	tok := tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:v",
				Coins: []tokenrecord.Coin{
					{Kind: "alpha", Amount: 30},
					{Kind: "beta", Amount: 5},
					{Kind: "alpha", Amount: 40},
				},
			},
			State: statehash.NewHash([]byte("v")),
		},
	}

	assert.Equal(t, tokenrecord.Amount(70), tok.Value("alpha"), "alpha total")
	assert.Equal(t, tokenrecord.Amount(5), tok.Value("beta"), "beta total")
	assert.Equal(t, tokenrecord.Amount(0), tok.Value("gamma"), "absent kind")
}
