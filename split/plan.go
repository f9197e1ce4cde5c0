// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package split - plan and execute value transfers over whole tokens
//
// Tokens are indivisible on the wire: moving an amount that no subset
// of held tokens sums to exactly needs one token split into a part to
// send and a remainder to keep.  Planning picks the cheapest shape;
// execution runs the burn, mint, transfer phases against the
// aggregator with every step check-pointed to the durable outbox
// before it is submitted, so a crash at any point is resumable.
package split

import (
	"sort"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// largest exact-sum combination searched before falling back to the
// greedy prefix
const maxCombination = 5

// PlannedSplit - one token to break into a sent part and a remainder
type PlannedSplit struct {
	Token     tokenrecord.Token
	Needed    tokenrecord.Amount // amount the transfer still requires
	Remainder tokenrecord.Amount // stays with the sender
}

// Plan - the tokens to move for one target amount
//
// Direct tokens transfer whole; Split is nil when the direct tokens
// already sum to the target exactly
type Plan struct {
	Kind   tokenrecord.CoinKind
	Target tokenrecord.Amount
	Direct []tokenrecord.Token
	Split  *PlannedSplit
}

// BuildPlan - choose tokens covering a target amount of one coin kind
//
// preference order: a single token of exactly the target, then an
// exact-sum combination of up to five tokens, then an ascending
// greedy prefix plus one split token.  Tokens holding none of the
// kind are ignored.
func BuildPlan(tokens []tokenrecord.Token, target tokenrecord.Amount, kind tokenrecord.CoinKind) (*Plan, error) {

	if 0 == target {
		return nil, fault.InsufficientValue
	}

	usable := make([]tokenrecord.Token, 0, len(tokens))
	total := tokenrecord.Amount(0)
	for _, tok := range tokens {
		value := tok.Value(kind)
		if 0 == value {
			continue
		}
		usable = append(usable, tok)
		total += value
	}
	if total < target {
		return nil, fault.InsufficientValue
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Value(kind) < usable[j].Value(kind)
	})

	// a single token of exactly the target
	for _, tok := range usable {
		if tok.Value(kind) == target {
			return &Plan{
				Kind:   kind,
				Target: target,
				Direct: []tokenrecord.Token{tok},
			}, nil
		}
	}

	// an exact-sum combination, smallest set first
	limit := maxCombination
	if len(usable) < limit {
		limit = len(usable)
	}
	for size := 2; size <= limit; size += 1 {
		if combo := exactCombination(usable, kind, target, size); nil != combo {
			return &Plan{
				Kind:   kind,
				Target: target,
				Direct: combo,
			}, nil
		}
	}

	// greedy ascending prefix, splitting the first overflowing token
	direct := []tokenrecord.Token(nil)
	accumulated := tokenrecord.Amount(0)
	for _, tok := range usable {
		value := tok.Value(kind)
		if accumulated+value > target {
			return &Plan{
				Kind:   kind,
				Target: target,
				Direct: direct,
				Split: &PlannedSplit{
					Token:     tok,
					Needed:    target - accumulated,
					Remainder: value - (target - accumulated),
				},
			}, nil
		}
		direct = append(direct, tok)
		accumulated += value
		if accumulated == target {
			return &Plan{
				Kind:   kind,
				Target: target,
				Direct: direct,
			}, nil
		}
	}

	// unreachable: total >= target guarantees a prefix overflows or
	// sums exactly
	return nil, fault.InsufficientValue
}

// exactCombination - depth first search for an exact sum of one size
func exactCombination(tokens []tokenrecord.Token, kind tokenrecord.CoinKind, target tokenrecord.Amount, size int) []tokenrecord.Token {

	picked := make([]tokenrecord.Token, 0, size)

	var search func(start int, remaining tokenrecord.Amount, slots int) bool
	search = func(start int, remaining tokenrecord.Amount, slots int) bool {
		if 0 == slots {
			return 0 == remaining
		}
		for i := start; i <= len(tokens)-slots; i += 1 {
			value := tokens[i].Value(kind)
			if value > remaining {
				// ascending order: nothing further fits either
				break
			}
			picked = append(picked, tokens[i])
			if search(i+1, remaining-value, slots-1) {
				return true
			}
			picked = picked[:len(picked)-1]
		}
		return false
	}

	if search(0, target, size) {
		result := make([]tokenrecord.Token, len(picked))
		copy(result, picked)
		return result
	}
	return nil
}
