// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package statehash - token state hash imprints
//
// A hash value is always carried together with the code of the
// algorithm that produced it.  The canonical text form is a four hex
// digit algorithm prefix followed by the hex digest.  Historic wallet
// snapshots stored bare digests without the prefix; Normalise accepts
// both and always yields the prefixed form so that equality checks on
// imprints stay stable.
package statehash

import (
	"bytes"
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/walletd/fault"
)

// number of bytes in the digest
const DigestLength = 32

// Algorithm - code of the hash algorithm that produced a digest
type Algorithm uint16

// supported algorithms
const (
	SHA3 Algorithm = 0
)

// number of hex digits used for the algorithm prefix
const prefixDigits = 4

// Hash - an algorithm tagged digest of a token state
type Hash struct {
	Algorithm Algorithm
	Digest    [DigestLength]byte
}

// NewHash - digest a record with the default algorithm
func NewHash(record []byte) Hash {
	return Hash{
		Algorithm: SHA3,
		Digest:    sha3.Sum256(record),
	}
}

// HashFromHexString - parse the canonical or the bare legacy text form
//
// a bare digest is taken as SHA3, matching snapshots written before
// the prefix was introduced
func HashFromHexString(s string) (Hash, error) {
	h := Hash{}
	err := h.UnmarshalText([]byte(s))
	return h, err
}

// Normalise - canonical prefixed text form of either accepted text form
func Normalise(s string) (string, error) {
	h, err := HashFromHexString(s)
	if nil != err {
		return "", err
	}
	return h.String(), nil
}

// IsZero - true for the zero value
func (hash Hash) IsZero() bool {
	empty := Hash{}
	return hash.Algorithm == empty.Algorithm && bytes.Equal(hash.Digest[:], empty.Digest[:])
}

// String - canonical prefixed hex, for use by the fmt package (for %s)
func (hash Hash) String() string {
	buffer, _ := hash.MarshalText()
	return string(buffer)
}

// GoString - canonical prefixed hex, for use by the fmt package (for %#v)
func (hash Hash) GoString() string {
	return "<state:" + hash.String() + ">"
}

// MarshalText - convert a hash to its canonical prefixed hex text
func (hash Hash) MarshalText() ([]byte, error) {
	prefix := []byte{byte(hash.Algorithm >> 8), byte(hash.Algorithm)}
	size := hex.EncodedLen(len(prefix)) + hex.EncodedLen(DigestLength)
	buffer := make([]byte, size)
	hex.Encode(buffer, prefix)
	hex.Encode(buffer[prefixDigits:], hash.Digest[:])
	return buffer, nil
}

// UnmarshalText - convert prefixed or bare hex text into a hash
func (hash *Hash) UnmarshalText(s []byte) error {
	switch len(s) {
	case prefixDigits + hex.EncodedLen(DigestLength):
		prefix := make([]byte, prefixDigits/2)
		if _, err := hex.Decode(prefix, s[:prefixDigits]); nil != err {
			return err
		}
		hash.Algorithm = Algorithm(uint16(prefix[0])<<8 | uint16(prefix[1]))
		s = s[prefixDigits:]
	case hex.EncodedLen(DigestLength):
		hash.Algorithm = SHA3
	default:
		return fault.InvalidDataHash
	}

	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	if DigestLength != byteCount {
		return fault.InvalidDataHash
	}
	copy(hash.Digest[:], buffer)
	return nil
}
