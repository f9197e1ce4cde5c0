// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inventory

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// deterministic key prefixes for per token entries
const (
	activePrefix   = "a:"
	archivedPrefix = "r:"
	forkedPrefix   = "f:"
)

// fixed wire keys
const (
	metadataKey   = "metadata"
	nametagKey    = "nametag"
	tombstonesKey = "tombstones"
	sentKey       = "sent"
	invalidKey    = "invalid"
	outboxKey     = "outbox"
)

// Encode - serialize a snapshot to its canonical wire form
//
// output is deterministic: object keys sort lexically and the arrays
// sort by entry identity, so two semantically equal snapshots encode
// to identical bytes
func (s *Snapshot) Encode() ([]byte, error) {

	wire := make(map[string]json.RawMessage)

	put := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if nil != err {
			return err
		}
		wire[key] = data
		return nil
	}

	tombstones := append([]Tombstone(nil), s.Tombstones...)
	sort.Slice(tombstones, func(i, j int) bool { return tombstones[i].Key() < tombstones[j].Key() })

	sent := append([]SentEntry(nil), s.Sent...)
	sort.Slice(sent, func(i, j int) bool { return sent[i].Key() < sent[j].Key() })

	invalid := append([]InvalidEntry(nil), s.Invalid...)
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].Key() < invalid[j].Key() })

	outbox := append([]OutboxEntry(nil), s.Outbox...)
	sort.Slice(outbox, func(i, j int) bool {
		if outbox[i].GroupId != outbox[j].GroupId {
			return outbox[i].GroupId < outbox[j].GroupId
		}
		return outbox[i].Phase < outbox[j].Phase
	})

	if err := put(metadataKey, s.Metadata); nil != err {
		return nil, err
	}
	if nil != s.Nametag {
		if err := put(nametagKey, s.Nametag); nil != err {
			return nil, err
		}
	}
	if err := put(tombstonesKey, tombstones); nil != err {
		return nil, err
	}
	if err := put(sentKey, sent); nil != err {
		return nil, err
	}
	if err := put(invalidKey, invalid); nil != err {
		return nil, err
	}
	if err := put(outboxKey, outbox); nil != err {
		return nil, err
	}

	for id, tok := range s.Active {
		if err := put(activePrefix+id.String(), tok); nil != err {
			return nil, err
		}
	}
	for id, tok := range s.Archived {
		if err := put(archivedPrefix+id.String(), tok); nil != err {
			return nil, err
		}
	}
	for key, tok := range s.Forked {
		if err := put(forkedPrefix+key.TokenId.String()+":"+key.StateHash, tok); nil != err {
			return nil, err
		}
	}

	// encoding/json sorts map keys, keeping the output stable
	return json.Marshal(wire)
}

// storage formats, decided once at load
type storedForm int

const (
	formUnknown   storedForm = iota
	formCanonical            // format 2: metadata object + keyed token entries
	formLegacy               // format 1: flat arrays, bare state hashes
)

// legacySnapshot - the pre-metadata storage shape
type legacySnapshot struct {
	Version    uint64              `json:"version"`
	Address    string              `json:"address"`
	Tokens     []tokenrecord.Token `json:"tokens"`
	Spent      []SentEntry         `json:"spent"`
	Tombstones []Tombstone         `json:"tombstones"`
}

// sniff the storage format - exactly once, at load
func sniffForm(wire map[string]json.RawMessage) storedForm {
	if _, ok := wire[metadataKey]; ok {
		return formCanonical
	}
	if _, ok := wire["version"]; ok {
		return formLegacy
	}
	return formUnknown
}

// Decode - parse either storage format into a canonical snapshot
func Decode(data []byte) (*Snapshot, error) {

	wire := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &wire); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}

	switch sniffForm(wire) {
	case formCanonical:
		return decodeCanonical(wire)
	case formLegacy:
		return migrateLegacy(data)
	default:
		return nil, fault.InvalidSnapshotFormat
	}
}

func decodeCanonical(wire map[string]json.RawMessage) (*Snapshot, error) {

	s := NewSnapshot("")

	get := func(key string, v interface{}) error {
		raw, ok := wire[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(raw, v)
	}

	if err := get(metadataKey, &s.Metadata); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}
	if err := get(nametagKey, &s.Nametag); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}
	if err := get(tombstonesKey, &s.Tombstones); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}
	if err := get(sentKey, &s.Sent); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}
	if err := get(invalidKey, &s.Invalid); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}
	if err := get(outboxKey, &s.Outbox); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}

	for key, raw := range wire {
		var tok tokenrecord.Token
		switch {
		case strings.HasPrefix(key, activePrefix):
			if err := json.Unmarshal(raw, &tok); nil != err {
				return nil, fault.CannotDecodeSnapshot
			}
			s.Active[tok.Id()] = tok

		case strings.HasPrefix(key, archivedPrefix):
			if err := json.Unmarshal(raw, &tok); nil != err {
				return nil, fault.CannotDecodeSnapshot
			}
			s.Archived[tok.Id()] = tok

		case strings.HasPrefix(key, forkedPrefix):
			if err := json.Unmarshal(raw, &tok); nil != err {
				return nil, fault.CannotDecodeSnapshot
			}
			s.Forked[ForkKey{TokenId: tok.Id(), StateHash: tok.StateHash().String()}] = tok
		}
	}

	return s, nil
}

// migrateLegacy - the single legacy migrator
//
// legacy snapshots stored flat token arrays and bare digests; all the
// state hash strings gain their canonical algorithm prefix here
func migrateLegacy(data []byte) (*Snapshot, error) {

	old := legacySnapshot{}
	if err := json.Unmarshal(data, &old); nil != err {
		return nil, fault.CannotDecodeSnapshot
	}

	s := NewSnapshot(old.Address)
	s.Metadata.Version = old.Version
	s.Metadata.Format = CurrentFormat

	for _, tok := range old.Tokens {
		s.Active[tok.Id()] = tok
	}

	for _, e := range old.Spent {
		normalised, err := statehash.Normalise(e.StateHash)
		if nil != err {
			return nil, fault.CannotDecodeSnapshot
		}
		e.StateHash = normalised
		s.Sent = append(s.Sent, e)
	}

	for _, t := range old.Tombstones {
		normalised, err := statehash.Normalise(t.StateHash)
		if nil != err {
			return nil, fault.CannotDecodeSnapshot
		}
		t.StateHash = normalised
		s.Tombstones = append(s.Tombstones, t)
	}

	return s, nil
}

// ContentEquals - semantic equality ignoring version and link
//
// the publish decision in the sync engine writes a new snapshot only
// if the content actually changed
func ContentEquals(a *Snapshot, b *Snapshot) bool {
	if nil == a || nil == b {
		return a == b
	}

	ca := a.Clone()
	cb := b.Clone()
	ca.Metadata.Version = 0
	cb.Metadata.Version = 0
	ca.Metadata.PreviousLink = ""
	cb.Metadata.PreviousLink = ""

	ea, err := ca.Encode()
	if nil != err {
		return false
	}
	eb, err := cb.Encode()
	if nil != err {
		return false
	}
	return bytes.Equal(ea, eb)
}
