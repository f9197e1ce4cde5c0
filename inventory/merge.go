// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// MergeResult - what a remote merge changed
type MergeResult struct {
	Imported    int                   // tokens taken from the remote side
	NeedUpload  []tokenrecord.TokenId // local only tokens the remote lacks
	Tombstones  int                   // tombstones added by the union
	SentAdded   int
	InvalidAdded int
}

// MergeRemote - fold a remote snapshot into the local one
//
// per token the more advanced record wins; tombstone, sent and
// invalid collections union with dedup by token id + state hash.
// When spendRelevant is false (anti regression: the remote version is
// below the high water mark) only token records merge and the spend
// collections are left untouched.
func (s *Snapshot) MergeRemote(remote *Snapshot, spendRelevant bool) MergeResult {

	r := MergeResult{}
	if nil == remote {
		return r
	}

	remoteHas := make(map[tokenrecord.TokenId]struct{}, len(remote.Active))
	for id, remoteTok := range remote.Active {
		remoteHas[id] = struct{}{}

		localTok, ok := s.Active[id]
		if !ok {
			s.Active[id] = remoteTok
			r.Imported += 1
			continue
		}
		merged := tokenrecord.MoreAdvanced(localTok, remoteTok)
		if len(merged.Transactions) != len(localTok.Transactions) ||
			merged.ProofCount() != localTok.ProofCount() {
			// superseded local state is kept for rollback recovery
			s.ArchiveToken(localTok)
			r.Imported += 1
		}
		s.Active[id] = merged
	}

	// anything the remote does not know about must be uploaded
	for id := range s.Active {
		if _, ok := remoteHas[id]; !ok {
			r.NeedUpload = append(r.NeedUpload, id)
		}
	}

	for id, tok := range remote.Archived {
		if _, ok := s.Archived[id]; !ok {
			s.Archived[id] = tok
		}
	}
	for key, tok := range remote.Forked {
		if _, ok := s.Forked[key]; !ok {
			s.Forked[key] = tok
		}
	}

	if nil == s.Nametag && nil != remote.Nametag {
		n := *remote.Nametag
		s.Nametag = &n
	}

	if !spendRelevant {
		return r
	}

	r.Tombstones = s.unionTombstones(remote.Tombstones)
	r.SentAdded = s.unionSent(remote.Sent)
	r.InvalidAdded = s.unionInvalid(remote.Invalid)

	return r
}

func (s *Snapshot) unionTombstones(more []Tombstone) int {
	seen := make(map[string]struct{}, len(s.Tombstones))
	for _, t := range s.Tombstones {
		seen[t.Key()] = struct{}{}
	}
	added := 0
	for _, t := range more {
		if _, ok := seen[t.Key()]; !ok {
			seen[t.Key()] = struct{}{}
			s.Tombstones = append(s.Tombstones, t)
			added += 1
		}
	}
	return added
}

func (s *Snapshot) unionSent(more []SentEntry) int {
	seen := make(map[string]struct{}, len(s.Sent))
	for _, e := range s.Sent {
		seen[e.Key()] = struct{}{}
	}
	added := 0
	for _, e := range more {
		if _, ok := seen[e.Key()]; !ok {
			seen[e.Key()] = struct{}{}
			s.Sent = append(s.Sent, e)
			added += 1
		}
	}
	return added
}

func (s *Snapshot) unionInvalid(more []InvalidEntry) int {
	seen := make(map[string]struct{}, len(s.Invalid))
	for _, e := range s.Invalid {
		seen[e.Key()] = struct{}{}
	}
	added := 0
	for _, e := range more {
		if _, ok := seen[e.Key()]; !ok {
			seen[e.Key()] = struct{}{}
			s.Invalid = append(s.Invalid, e)
			added += 1
		}
	}
	return added
}

// MostAdvancedById - collapse a token list to one record per id
//
// same preference rule as the remote merge; used for caller supplied
// and peer delivered token batches before they touch the snapshot
func MostAdvancedById(tokens []tokenrecord.Token) map[tokenrecord.TokenId]tokenrecord.Token {
	result := make(map[tokenrecord.TokenId]tokenrecord.Token, len(tokens))
	for _, tok := range tokens {
		id := tok.Id()
		if existing, ok := result[id]; ok {
			result[id] = tokenrecord.MoreAdvanced(existing, tok)
		} else {
			result[id] = tok
		}
	}
	return result
}
