// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package aggregator

import (
	"sync"

	"github.com/bitmark-inc/walletd/tokenrecord"
)

// number of spend queries in flight at once
const batchParallelism = 10

// SpendQuery - one (token, state) pair to check with the aggregator
type SpendQuery struct {
	TokenId   tokenrecord.TokenId
	StateHash string
	OwnerKey  tokenrecord.HexBytes
}

// SpendAnswer - result of one spend query
type SpendAnswer struct {
	Query SpendQuery
	Spent bool
	Err   error
}

// QuerySpent - run spend queries in bounded parallel batches
//
// answers appear in query order; individual failures are recorded per
// answer so one flaky request does not lose the whole batch
func QuerySpent(client Client, queries []SpendQuery) []SpendAnswer {

	answers := make([]SpendAnswer, len(queries))

	var wg sync.WaitGroup
	limit := make(chan struct{}, batchParallelism)

	for i, q := range queries {
		wg.Add(1)
		limit <- struct{}{}
		go func(i int, q SpendQuery) {
			defer wg.Done()
			defer func() { <-limit }()

			spent, err := client.IsSpent(q.TokenId, q.StateHash, q.OwnerKey)
			answers[i] = SpendAnswer{
				Query: q,
				Spent: spent,
				Err:   err,
			}
		}(i, q)
	}
	wg.Wait()

	return answers
}
