// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package contentstore - contract for the content addressed transport
//
// Snapshots are stored by content id and found through one mutable
// name pointer per wallet.  The transport itself (gateways, routing)
// lives behind the Store interface; this package adds local content
// id derivation and a read cache for the fast resolution path.
package contentstore

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Resolution - outcome of resolving a mutable name
type Resolution struct {
	Id      cid.Cid
	Content []byte
}

// Store - the content addressed transport contract
//
// Upload must be idempotent and the id must derive from the bytes;
// Fetch returns fault.NotFoundContent for an absent id; Resolve
// returns fault.NotFoundName when the name has never been published
type Store interface {
	Upload(content []byte) (cid.Cid, error)
	Fetch(id cid.Cid) ([]byte, error)
	Publish(name string, id cid.Cid) error
	Resolve(name string) (Resolution, error)
}

// ComputeId - derive the content id locally, without any transport
//
// must agree with what Upload would return for the same bytes: CIDv1,
// raw codec, sha2-256
func ComputeId(content []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(content, multihash.SHA2_256, -1)
	if nil != err {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
