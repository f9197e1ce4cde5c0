// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// CurrentFormat - snapshot format written by this code
const CurrentFormat = 2

// Metadata - snapshot bookkeeping
type Metadata struct {
	Version      uint64 `json:"version"`
	Address      string `json:"address"`
	Pointer      string `json:"pointer,omitempty"`      // mutable name this wallet publishes under
	Format       int    `json:"format"`
	PreviousLink string `json:"previousLink,omitempty"` // content id of the prior snapshot
}

// ForkKey - identity of a forked token entry
type ForkKey struct {
	TokenId   tokenrecord.TokenId
	StateHash string
}

// Snapshot - one complete inventory for a single address
type Snapshot struct {
	Metadata   Metadata
	Nametag    *Nametag
	Tombstones []Tombstone
	Sent       []SentEntry
	Invalid    []InvalidEntry
	Outbox     []OutboxEntry
	Active     map[tokenrecord.TokenId]tokenrecord.Token
	Archived   map[tokenrecord.TokenId]tokenrecord.Token
	Forked     map[ForkKey]tokenrecord.Token
}

// NewSnapshot - empty inventory for an address
func NewSnapshot(address string) *Snapshot {
	return &Snapshot{
		Metadata: Metadata{
			Address: address,
			Format:  CurrentFormat,
		},
		Active:   make(map[tokenrecord.TokenId]tokenrecord.Token),
		Archived: make(map[tokenrecord.TokenId]tokenrecord.Token),
		Forked:   make(map[ForkKey]tokenrecord.Token),
	}
}

// Counts - per collection sizes for results and logs
type Counts struct {
	Active     int `json:"active"`
	Sent       int `json:"sent"`
	Invalid    int `json:"invalid"`
	Archived   int `json:"archived"`
	Forked     int `json:"forked"`
	Tombstones int `json:"tombstones"`
	Outbox     int `json:"outbox"`
}

// Counts - current collection sizes
func (s *Snapshot) Counts() Counts {
	return Counts{
		Active:     len(s.Active),
		Sent:       len(s.Sent),
		Invalid:    len(s.Invalid),
		Archived:   len(s.Archived),
		Forked:     len(s.Forked),
		Tombstones: len(s.Tombstones),
		Outbox:     len(s.Outbox),
	}
}

// Clone - deep copy, used when handing the canonical snapshot out
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Metadata:   s.Metadata,
		Tombstones: append([]Tombstone(nil), s.Tombstones...),
		Sent:       append([]SentEntry(nil), s.Sent...),
		Invalid:    append([]InvalidEntry(nil), s.Invalid...),
		Outbox:     append([]OutboxEntry(nil), s.Outbox...),
		Active:     make(map[tokenrecord.TokenId]tokenrecord.Token, len(s.Active)),
		Archived:   make(map[tokenrecord.TokenId]tokenrecord.Token, len(s.Archived)),
		Forked:     make(map[ForkKey]tokenrecord.Token, len(s.Forked)),
	}
	if nil != s.Nametag {
		n := *s.Nametag
		c.Nametag = &n
	}
	for id, tok := range s.Active {
		c.Active[id] = tok
	}
	for id, tok := range s.Archived {
		c.Archived[id] = tok
	}
	for key, tok := range s.Forked {
		c.Forked[key] = tok
	}
	return c
}

// HasTombstone - check for a specific (token, state) tombstone
func (s *Snapshot) HasTombstone(id tokenrecord.TokenId, stateHash string) bool {
	for _, t := range s.Tombstones {
		if t.TokenId == id && t.StateHash == stateHash {
			return true
		}
	}
	return false
}

// FindSent - locate the sent entry matching a tombstone, nil if none
func (s *Snapshot) FindSent(id tokenrecord.TokenId, stateHash string) *SentEntry {
	for i, e := range s.Sent {
		if e.TokenId == id && e.StateHash == stateHash {
			return &s.Sent[i]
		}
	}
	return nil
}

// RemoveTombstone - delete one tombstone, reports whether it was there
func (s *Snapshot) RemoveTombstone(id tokenrecord.TokenId, stateHash string) bool {
	for i, t := range s.Tombstones {
		if t.TokenId == id && t.StateHash == stateHash {
			s.Tombstones = append(s.Tombstones[:i], s.Tombstones[i+1:]...)
			return true
		}
	}
	return false
}

// RestoreToken - bring a token back to active from archived or forked
//
// used when a tombstone turns out to be a finality rollback false
// positive; archived is preferred, forked holds the exact state
func (s *Snapshot) RestoreToken(id tokenrecord.TokenId, stateHash string) bool {
	if tok, ok := s.Archived[id]; ok {
		s.Active[id] = tok
		delete(s.Archived, id)
		return true
	}
	key := ForkKey{TokenId: id, StateHash: stateHash}
	if tok, ok := s.Forked[key]; ok {
		s.Active[id] = tok
		delete(s.Forked, key)
		return true
	}
	return false
}

// MoveToSent - move an active token to sent and tombstone its state
func (s *Snapshot) MoveToSent(id tokenrecord.TokenId, stateHash string, spendProof *tokenrecord.InclusionProof, sentAt int64) {
	tok, ok := s.Active[id]
	if !ok {
		return
	}
	delete(s.Active, id)

	entry := SentEntry{
		TokenId:    id,
		StateHash:  stateHash,
		Token:      tok,
		SpendProof: spendProof,
		SentAt:     sentAt,
	}
	if nil == s.FindSent(id, stateHash) {
		s.Sent = append(s.Sent, entry)
	}
	if !s.HasTombstone(id, stateHash) {
		s.Tombstones = append(s.Tombstones, Tombstone{TokenId: id, StateHash: stateHash})
	}
}

// MarkInvalid - move an active token to invalid with a reason
func (s *Snapshot) MarkInvalid(id tokenrecord.TokenId, reason ReasonCode, detail string) {
	tok, ok := s.Active[id]
	if !ok {
		return
	}
	delete(s.Active, id)

	stateHash := tok.StateHash().String()
	entry := InvalidEntry{
		TokenId:   id,
		StateHash: stateHash,
		Reason:    reason,
		Detail:    detail,
		Token:     tok,
	}
	for _, e := range s.Invalid {
		if e.Key() == entry.Key() {
			return
		}
	}
	s.Invalid = append(s.Invalid, entry)
}

// ArchiveToken - keep a superseded state for possible recovery
func (s *Snapshot) ArchiveToken(tok tokenrecord.Token) {
	s.Archived[tok.Id()] = tok
}

// ForkToken - keep one exact historical state
func (s *Snapshot) ForkToken(tok tokenrecord.Token) {
	key := ForkKey{TokenId: tok.Id(), StateHash: tok.StateHash().String()}
	s.Forked[key] = tok
}

// ExpireOutbox - drop outbox entries abandoned before the cutoff
//
// an entry old enough that no resume is coming only obscures the
// genuinely pending ones; returns the number dropped
func (s *Snapshot) ExpireOutbox(cutoff int64) int {
	kept := s.Outbox[:0]
	dropped := 0
	for _, entry := range s.Outbox {
		if entry.CreatedAt < cutoff {
			dropped += 1
			continue
		}
		kept = append(kept, entry)
	}
	s.Outbox = kept
	return dropped
}
