// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tokenrecord

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// CoinKind - name of a fungible coin kind carried by a token
type CoinKind string

// Amount - quantity of a single coin kind
// JSON encodes as a string to survive hosts with 53 bit integers
type Amount uint64

// Coin - one kind/amount pair of a token's coin composition
type Coin struct {
	Kind   CoinKind `json:"kind"`          // utf-8
	Amount Amount   `json:"amount,string"` // number as string, smallest unit
}

// HexBytes - byte slice that JSON encodes as hex
type HexBytes []byte

// MarshalText - convert to hex for JSON
func (h HexBytes) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(buffer, h)
	return buffer, nil
}

// UnmarshalText - convert hex to bytes for JSON
func (h *HexBytes) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	*h = buffer[:byteCount]
	return nil
}

// EventData - payload common to genesis and transfer events
type EventData struct {
	Recipient string   `json:"recipient"`        // predicate reference, printable
	Coins     []Coin   `json:"coins"`            // coin composition
	Salt      HexBytes `json:"salt"`             // hex
	Reason    string   `json:"reason,omitempty"` // utf-8, optional
}

// Value - total amount of one coin kind in the composition
func (d EventData) Value(kind CoinKind) Amount {
	total := Amount(0)
	for _, c := range d.Coins {
		if kind == c.Kind {
			total += c.Amount
		}
	}
	return total
}

// packForHashing - deterministic byte encoding of the payload
//
// length prefixed fields, coins sorted by kind then amount, so the
// derived token id never depends on map or slice ordering supplied by
// a caller
func (d EventData) packForHashing() []byte {
	coins := make([]Coin, len(d.Coins))
	copy(coins, d.Coins)
	sort.Slice(coins, func(i, j int) bool {
		if coins[i].Kind != coins[j].Kind {
			return coins[i].Kind < coins[j].Kind
		}
		return coins[i].Amount < coins[j].Amount
	})

	buffer := packString(nil, d.Recipient)
	for _, c := range coins {
		buffer = packString(buffer, string(c.Kind))
		buffer = binary.BigEndian.AppendUint64(buffer, uint64(c.Amount))
	}
	buffer = packString(buffer, string(d.Salt))
	buffer = packString(buffer, d.Reason)
	return buffer
}

func packString(buffer []byte, s string) []byte {
	buffer = binary.BigEndian.AppendUint64(buffer, uint64(len(s)))
	return append(buffer, s...)
}
