// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord

import (
	"github.com/bitmark-inc/walletd/statehash"
)

// Authenticator - aggregator attestation tying a commitment to a key
//
// a proof whose authenticator is absent is an exclusion proof: the
// aggregator is stating the commitment is not anchored yet, and such
// a proof must never be treated as confirmation
type Authenticator struct {
	PublicKey HexBytes       `json:"publicKey"` // hex
	Signature HexBytes       `json:"signature"` // hex
	StateHash statehash.Hash `json:"stateHash"` // state the commitment spends
}

// InclusionProof - Merkle evidence that a commitment is anchored
type InclusionProof struct {
	Authenticator *Authenticator   `json:"authenticator"` // nil ⇒ exclusion proof
	Path          []statehash.Hash `json:"path"`          // sibling hashes, leaf to root
	Root          statehash.Hash   `json:"root"`          // anchored log root
}

// IsExclusion - proof present but without an attestation
func (p *InclusionProof) IsExclusion() bool {
	return nil != p && nil == p.Authenticator
}

// IsInclusion - proof carrying a full attestation
func (p *InclusionProof) IsInclusion() bool {
	return nil != p && nil != p.Authenticator
}

// Normalised - copy of the proof with every hash in canonical form
//
// proofs arriving over the wire may carry bare digests; after this
// pass equality on imprints is a plain comparison
func (p *InclusionProof) Normalised() *InclusionProof {
	if nil == p {
		return nil
	}
	q := &InclusionProof{
		Path: make([]statehash.Hash, len(p.Path)),
		Root: p.Root,
	}
	copy(q.Path, p.Path)
	if nil != p.Authenticator {
		a := *p.Authenticator
		q.Authenticator = &a
	}
	return q
}

// checkWellFormed - structural checks only, no cryptography
func (p *InclusionProof) checkWellFormed() bool {
	if nil == p {
		return false
	}
	if p.Root.IsZero() {
		return false
	}
	if nil != p.Authenticator {
		if 0 == len(p.Authenticator.PublicKey) || 0 == len(p.Authenticator.Signature) {
			return false
		}
	}
	return true
}
