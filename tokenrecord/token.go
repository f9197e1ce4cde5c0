// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord

import (
	"github.com/bitmark-inc/walletd/statehash"
)

// GenesisEvent - the mint event that created a token
type GenesisEvent struct {
	Data  EventData       `json:"data"`
	State statehash.Hash  `json:"state"`           // state produced by minting
	Proof *InclusionProof `json:"proof,omitempty"` // nil ⇒ uncommitted
}

// TransferTransaction - one signed state transition
type TransferTransaction struct {
	Data     EventData       `json:"data"`
	Previous statehash.Hash  `json:"previousState"`   // state this transfer spends
	Result   statehash.Hash  `json:"resultState"`     // state this transfer produces
	Proof    *InclusionProof `json:"proof,omitempty"` // nil ⇒ uncommitted
}

// Token - immutable genesis plus ordered transfer list
type Token struct {
	Genesis      GenesisEvent          `json:"genesis"`
	Transactions []TransferTransaction `json:"transactions"`
}

// Id - genesis derived identifier
func (t Token) Id() TokenId {
	return NewTokenId(t.Genesis)
}

// StateHash - the current state of the token
// derives from the last transaction's result, or genesis if none
func (t Token) StateHash() statehash.Hash {
	if n := len(t.Transactions); n > 0 {
		return t.Transactions[n-1].Result
	}
	return t.Genesis.State
}

// Value - amount of one coin kind held by this token
// the composition is fixed at genesis
func (t Token) Value(kind CoinKind) Amount {
	return t.Genesis.Data.Value(kind)
}

// latestProof - proof attached to the newest event, nil if none
func (t Token) latestProof() *InclusionProof {
	if n := len(t.Transactions); n > 0 {
		return t.Transactions[n-1].Proof
	}
	return t.Genesis.Proof
}

// IsCommitted - latest event carries a full inclusion proof
//
// an exclusion proof is a statement of absence: a token whose newest
// proof has no authenticator is still uncommitted
func (t Token) IsCommitted() bool {
	return t.latestProof().IsInclusion()
}

// ProofCount - number of events carrying full inclusion proofs
func (t Token) ProofCount() int {
	n := 0
	if t.Genesis.Proof.IsInclusion() {
		n += 1
	}
	for _, tx := range t.Transactions {
		if tx.Proof.IsInclusion() {
			n += 1
		}
	}
	return n
}

// WithGenesisProof - copy of the token with the genesis proof replaced
func (t Token) WithGenesisProof(proof *InclusionProof) Token {
	u := t.clone()
	u.Genesis.Proof = proof.Normalised()
	return u
}

// WithTransactionProof - copy with the proof of transaction i replaced
func (t Token) WithTransactionProof(i int, proof *InclusionProof) Token {
	u := t.clone()
	if i >= 0 && i < len(u.Transactions) {
		u.Transactions[i].Proof = proof.Normalised()
	}
	return u
}

// WithAppendedTransaction - copy of the token extended by one transfer
func (t Token) WithAppendedTransaction(tx TransferTransaction) Token {
	u := t.clone()
	u.Transactions = append(u.Transactions, tx)
	return u
}

// clone - deep copy so With… constructors never share backing arrays
func (t Token) clone() Token {
	u := t
	u.Genesis.Proof = t.Genesis.Proof.Normalised()
	u.Transactions = make([]TransferTransaction, len(t.Transactions))
	copy(u.Transactions, t.Transactions)
	for i, tx := range u.Transactions {
		u.Transactions[i].Proof = tx.Proof.Normalised()
	}
	return u
}

// MoreAdvanced - pick the better of two records of the same token
//
// prefer whichever side has strictly more transactions, or on a tie
// more proof bearing events; a second tie keeps the first argument so
// the local copy wins when nothing distinguishes them
func MoreAdvanced(a Token, b Token) Token {
	if len(b.Transactions) > len(a.Transactions) {
		return b
	}
	if len(b.Transactions) < len(a.Transactions) {
		return a
	}
	if b.ProofCount() > a.ProofCount() {
		return b
	}
	return a
}
