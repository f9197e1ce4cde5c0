// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package aggregator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// fake client recording every spend query that reaches it
type recordingClient struct {
	aggregator.Client // panic on anything unexpected

	calls int
	spent map[string]bool
}

func (c *recordingClient) IsSpent(id tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error) {
	c.calls += 1
	return c.spent[stateHash], nil
}

func TestCachedSpendChecks(t *testing.T) {

	client := &recordingClient{
		spent: map[string]bool{"0000aa": true},
	}
	cached := aggregator.NewCached(client, time.Minute)

	id := tokenrecord.TokenId{0x01}

	spent, err := cached.IsSpent(id, "0000aa", nil)
	require.NoError(t, err)
	assert.True(t, spent)

	spent, err = cached.IsSpent(id, "0000aa", nil)
	require.NoError(t, err)
	assert.True(t, spent)
	assert.Equal(t, 1, client.calls, "second check answered from cache")

	// a different state is a different question
	spent, err = cached.IsSpent(id, "0000bb", nil)
	require.NoError(t, err)
	assert.False(t, spent)
	assert.Equal(t, 2, client.calls)
}

func TestCachedNegativeAnswersExpire(t *testing.T) {

	client := &recordingClient{spent: map[string]bool{}}
	cached := aggregator.NewCached(client, 10*time.Millisecond)

	id := tokenrecord.TokenId{0x02}

	_, err := cached.IsSpent(id, "0000cc", nil)
	require.NoError(t, err)
	require.Equal(t, 1, client.calls)

	// the state gets spent after the first answer
	client.spent["0000cc"] = true
	time.Sleep(25 * time.Millisecond)

	spent, err := cached.IsSpent(id, "0000cc", nil)
	require.NoError(t, err)
	assert.True(t, spent, "stale negative answer expired")
	assert.Equal(t, 2, client.calls)
}
