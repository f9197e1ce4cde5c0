// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/split"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

const kind = tokenrecord.CoinKind("alpha")

// one committed token per amount
func holdings(amounts ...tokenrecord.Amount) []tokenrecord.Token {
	tokens := make([]tokenrecord.Token, len(amounts))
	for i, amount := range amounts {
		seed := fmt.Sprintf("tok-%d-%d", i, amount)
		tokens[i] = tokenrecord.Token{
			Genesis: tokenrecord.GenesisEvent{
				Data: tokenrecord.EventData{
					Recipient: "predicate:self",
					Coins: []tokenrecord.Coin{
						{Kind: kind, Amount: amount},
					},
					Salt: []byte(seed),
				},
				State: statehash.NewHash([]byte(seed)),
			},
		}
	}
	return tokens
}

func planValues(plan *split.Plan) []tokenrecord.Amount {
	values := make([]tokenrecord.Amount, len(plan.Direct))
	for i, tok := range plan.Direct {
		values[i] = tok.Value(plan.Kind)
	}
	return values
}

func TestPlanExactSingleToken(t *testing.T) {
	plan, err := split.BuildPlan(holdings(30, 70), 70, kind)
	require.NoError(t, err)

	assert.Nil(t, plan.Split)
	assert.Equal(t, []tokenrecord.Amount{70}, planValues(plan))
}

func TestPlanSplitsOverflowingToken(t *testing.T) {
	plan, err := split.BuildPlan(holdings(40, 40), 70, kind)
	require.NoError(t, err)

	assert.Equal(t, []tokenrecord.Amount{40}, planValues(plan))
	require.NotNil(t, plan.Split)
	assert.Equal(t, tokenrecord.Amount(30), plan.Split.Needed)
	assert.Equal(t, tokenrecord.Amount(10), plan.Split.Remainder)
}

func TestPlanExactCombination(t *testing.T) {
	plan, err := split.BuildPlan(holdings(15, 25, 60), 40, kind)
	require.NoError(t, err)

	assert.Nil(t, plan.Split)
	assert.Equal(t, []tokenrecord.Amount{15, 25}, planValues(plan))
}

func TestPlanPrefersSmallestCombination(t *testing.T) {
	// 10+30 beats 5+15+20
	plan, err := split.BuildPlan(holdings(5, 10, 15, 20, 30), 40, kind)
	require.NoError(t, err)

	assert.Nil(t, plan.Split)
	assert.Len(t, plan.Direct, 2)
}

func TestPlanFirstTokenAlreadyOverflows(t *testing.T) {
	plan, err := split.BuildPlan(holdings(100), 70, kind)
	require.NoError(t, err)

	assert.Empty(t, plan.Direct)
	require.NotNil(t, plan.Split)
	assert.Equal(t, tokenrecord.Amount(70), plan.Split.Needed)
	assert.Equal(t, tokenrecord.Amount(30), plan.Split.Remainder)
}

func TestPlanInsufficientValue(t *testing.T) {
	_, err := split.BuildPlan(holdings(10, 20), 70, kind)
	assert.Equal(t, fault.InsufficientValue, err)
}

func TestPlanIgnoresOtherCoinKinds(t *testing.T) {
	tokens := holdings(50)
	tokens = append(tokens, tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:self",
				Coins: []tokenrecord.Coin{
					{Kind: "beta", Amount: 1000},
				},
				Salt: []byte("beta-token"),
			},
			State: statehash.NewHash([]byte("beta-token")),
		},
	})

	_, err := split.BuildPlan(tokens, 70, kind)
	assert.Equal(t, fault.InsufficientValue, err)
}

func TestPlanZeroTarget(t *testing.T) {
	_, err := split.BuildPlan(holdings(10), 0, kind)
	assert.Equal(t, fault.InsufficientValue, err)
}
