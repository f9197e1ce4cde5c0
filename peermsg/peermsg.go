// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peermsg - contract for the peer messaging transport
//
// Tokens in transit travel as peer messages addressed by public key;
// a routing binding maps a human name to the key.  The transport
// implementation is supplied by the host.
package peermsg

import (
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// MessageId - transport assigned id of a sent message
type MessageId string

// Envelope - wire shape of a token travelling between peers
type Envelope struct {
	Token tokenrecord.Token           `json:"token"`
	Proof *tokenrecord.InclusionProof `json:"proof,omitempty"`
}

// Transport - the peer messaging contract
type Transport interface {

	// Send - deliver a payload to a peer, by public key
	Send(publicKey tokenrecord.HexBytes, payload []byte) (MessageId, error)

	// QueryBindingByName - look up the key bound to a name, nil if none
	QueryBindingByName(name string) (tokenrecord.HexBytes, error)

	// PublishBinding - bind a name to a key, false if taken by another
	PublishBinding(name string, publicKey tokenrecord.HexBytes) (bool, error)
}
