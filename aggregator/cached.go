// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package aggregator

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/walletd/tokenrecord"
)

const (
	defaultSpentTTL   = 30 * time.Second
	spentCacheCleanup = 2 * time.Minute
)

// Cached - Client decorator memoising spend checks
//
// a burst of syncs asks the same (token, state) questions over and
// over; a positive answer is final and cached forever, a negative one
// only for the TTL since the token may be spent at any moment
type Cached struct {
	Client
	spent *gocache.Cache
}

// NewCached - wrap a client with the spend check cache
func NewCached(client Client, ttl time.Duration) *Cached {
	if 0 == ttl {
		ttl = defaultSpentTTL
	}
	return &Cached{
		Client: client,
		spent:  gocache.New(ttl, spentCacheCleanup),
	}
}

// IsSpent - cached spend check
func (c *Cached) IsSpent(tokenId tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error) {
	key := tokenId.String() + ":" + stateHash
	if cached, ok := c.spent.Get(key); ok {
		return cached.(bool), nil
	}
	spent, err := c.Client.IsSpent(tokenId, stateHash, ownerKey)
	if nil != err {
		return false, err
	}
	if spent {
		c.spent.Set(key, true, gocache.NoExpiration)
	} else {
		c.spent.Set(key, false, gocache.DefaultExpiration)
	}
	return spent, nil
}
