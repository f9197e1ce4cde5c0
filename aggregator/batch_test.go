// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package aggregator_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// fake client counting concurrent spend queries
type countingClient struct {
	aggregator.Client // panic on anything unexpected

	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	spentIds   map[string]bool
	failOnHash string
}

func (c *countingClient) IsSpent(id tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error) {
	current := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)

	c.mu.Lock()
	if current > c.maxSeen {
		c.maxSeen = current
	}
	c.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	if stateHash == c.failOnHash {
		return false, fault.TransportFailure
	}
	return c.spentIds[id.String()], nil
}

func TestQuerySpentBoundedParallel(t *testing.T) {

	client := &countingClient{spentIds: map[string]bool{}}

	queries := make([]aggregator.SpendQuery, 40)
	for i := range queries {
		queries[i] = aggregator.SpendQuery{StateHash: "0000aa"}
	}

	answers := aggregator.QuerySpent(client, queries)

	assert.Equal(t, 40, len(answers), "one answer per query")
	assert.LessOrEqual(t, client.maxSeen, int32(10), "parallelism bounded")
	assert.Greater(t, client.maxSeen, int32(1), "actually parallel")
}

func TestQuerySpentIsolatesFailures(t *testing.T) {

	client := &countingClient{
		spentIds:   map[string]bool{},
		failOnHash: "0000ff",
	}

	queries := []aggregator.SpendQuery{
		{StateHash: "0000aa"},
		{StateHash: "0000ff"},
		{StateHash: "0000bb"},
	}

	answers := aggregator.QuerySpent(client, queries)

	assert.Nil(t, answers[0].Err, "first succeeds")
	assert.NotNil(t, answers[1].Err, "second fails alone")
	assert.Nil(t, answers[2].Err, "third succeeds")
	assert.Equal(t, queries[1], answers[1].Query, "answers keep query order")
}

// ensure the status constants stay aligned with the outbox states
func TestOperationKindsMatchOutbox(t *testing.T) {
	assert.Equal(t, inventory.OpBurn, inventory.OperationKind("BURN"))
	assert.Equal(t, inventory.OpMint, inventory.OperationKind("MINT"))
	assert.Equal(t, inventory.OpTransfer, inventory.OperationKind("TRANSFER"))
}
