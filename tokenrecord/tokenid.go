// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/walletd/fault"
)

// IdLength - number of bytes in a token id
const IdLength = 32

// TokenId - identifier derived from the genesis event
//
// distinct from any local UI identifier: two wallets deriving the id
// from the same genesis always agree
type TokenId [IdLength]byte

// internal domain separation tags for id derivation
var (
	genesisIdTag = []byte("token:genesis:")
	childIdTag   = []byte("token:child:")
)

// NewTokenId - derive the identifier for a genesis event
func NewTokenId(genesis GenesisEvent) TokenId {
	payload := genesis.Data.packForHashing()
	return TokenId(sha3.Sum256(append(genesisIdTag, payload...)))
}

// DeriveChildTokenId - deterministic id for the n'th child of a split
//
// the derivation must not depend on anything created at run time so a
// crashed split resumes with exactly the same child ids
func DeriveChildTokenId(parent TokenId, index uint64) TokenId {
	buffer := make([]byte, 0, len(childIdTag)+IdLength+8)
	buffer = append(buffer, childIdTag...)
	buffer = append(buffer, parent[:]...)
	buffer = binary.BigEndian.AppendUint64(buffer, index)
	return TokenId(sha3.Sum256(buffer))
}

// IsZero - true for the zero value
func (id TokenId) IsZero() bool {
	return id == TokenId{}
}

// String - base58 representation, for use by the fmt package (for %s)
func (id TokenId) String() string {
	return base58.Encode(id[:])
}

// GoString - representation for use by the fmt package (for %#v)
func (id TokenId) GoString() string {
	return "<token:" + id.String() + ">"
}

// MarshalText - convert id to base58 text
func (id TokenId) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(id[:])), nil
}

// UnmarshalText - convert base58 text to an id
func (id *TokenId) UnmarshalText(s []byte) error {
	buffer, err := base58.Decode(string(s))
	if nil != err {
		return err
	}
	if IdLength != len(buffer) {
		return fault.InvalidTokenId
	}
	copy(id[:], buffer)
	return nil
}
