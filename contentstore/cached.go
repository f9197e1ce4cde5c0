// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contentstore

import (
	"time"

	"github.com/ipfs/go-cid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultResolveTTL = 30 * time.Second
	cleanupInterval   = 2 * time.Minute
)

// Cached - Store decorator adding a cache-only fast resolution mode
//
// resolved names and fetched content are remembered briefly so a
// burst of syncs does not hammer the transport; writes pass straight
// through and refresh the cache
type Cached struct {
	store Store
	cache *gocache.Cache
}

// NewCached - wrap a store with the resolution cache
func NewCached(store Store) *Cached {
	return &Cached{
		store: store,
		cache: gocache.New(defaultResolveTTL, cleanupInterval),
	}
}

// Upload - pass through, remembering the content
func (c *Cached) Upload(content []byte) (cid.Cid, error) {
	id, err := c.store.Upload(content)
	if nil == err {
		c.cache.Set("c:"+id.String(), content, gocache.DefaultExpiration)
	}
	return id, err
}

// Fetch - cached read of immutable content
func (c *Cached) Fetch(id cid.Cid) ([]byte, error) {
	if cached, ok := c.cache.Get("c:" + id.String()); ok {
		return cached.([]byte), nil
	}
	content, err := c.store.Fetch(id)
	if nil == err {
		c.cache.Set("c:"+id.String(), content, gocache.DefaultExpiration)
	}
	return content, err
}

// Publish - pass through, refreshing the name cache
func (c *Cached) Publish(name string, id cid.Cid) error {
	err := c.store.Publish(name, id)
	if nil == err {
		c.cache.Set("n:"+name, id, gocache.DefaultExpiration)
	}
	return err
}

// Resolve - resolve through the transport, remembering the answer
func (c *Cached) Resolve(name string) (Resolution, error) {
	r, err := c.store.Resolve(name)
	if nil == err {
		c.cache.Set("n:"+name, r.Id, gocache.DefaultExpiration)
		c.cache.Set("c:"+r.Id.String(), r.Content, gocache.DefaultExpiration)
	}
	return r, err
}

// ResolveCached - cache-only fast resolution, no transport at all
//
// second result is false when the name is not in the cache
func (c *Cached) ResolveCached(name string) (Resolution, bool) {
	cachedId, ok := c.cache.Get("n:" + name)
	if !ok {
		return Resolution{}, false
	}
	id := cachedId.(cid.Cid)
	content, ok := c.cache.Get("c:" + id.String())
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Id: id, Content: content.([]byte)}, true
}
