// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/peermsg"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// Peers - peer messaging over two database pools
//
// bindings maps a name to its public key, inbox holds one mailbox of
// undelivered payloads per public key
type Peers struct {
	mu sync.Mutex // serialises read-modify-write of a mailbox

	log      *logger.L
	bindings storage.Handle
	inbox    storage.Handle
	nextId   int
}

// NewPeers - create a transport over existing pools
func NewPeers(bindings storage.Handle, inbox storage.Handle) *Peers {
	return &Peers{
		log:      logger.New("gateway-peers"),
		bindings: bindings,
		inbox:    inbox,
	}
}

// Send - append a payload to the recipient's mailbox
func (p *Peers) Send(publicKey tokenrecord.HexBytes, payload []byte) (peermsg.MessageId, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mailbox := []tokenrecord.HexBytes{}
	key := []byte(hex.EncodeToString(publicKey))
	if stored := p.inbox.Get(key); nil != stored {
		if err := json.Unmarshal(stored, &mailbox); nil != err {
			return "", err
		}
	}
	mailbox = append(mailbox, tokenrecord.HexBytes(payload))

	data, err := json.Marshal(mailbox)
	if nil != err {
		return "", err
	}
	p.inbox.Put(key, data)

	p.nextId += 1
	id := peermsg.MessageId("m" + strconv.Itoa(p.nextId))
	p.log.Debugf("send: %s to %x (%d queued)", id, publicKey, len(mailbox))
	return id, nil
}

// Drain - remove and return every payload queued for a key
func (p *Peers) Drain(publicKey tokenrecord.HexBytes) ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := []byte(hex.EncodeToString(publicKey))
	stored := p.inbox.Get(key)
	if nil == stored {
		return nil, nil
	}

	mailbox := []tokenrecord.HexBytes{}
	if err := json.Unmarshal(stored, &mailbox); nil != err {
		return nil, err
	}
	p.inbox.Delete(key)

	payloads := make([][]byte, len(mailbox))
	for i, payload := range mailbox {
		payloads[i] = payload
	}
	return payloads, nil
}

// QueryBindingByName - key bound to a name, nil if unbound
func (p *Peers) QueryBindingByName(name string) (tokenrecord.HexBytes, error) {
	stored := p.bindings.Get([]byte(name))
	if nil == stored {
		return nil, nil
	}
	publicKey, err := hex.DecodeString(string(stored))
	if nil != err {
		return nil, err
	}
	return tokenrecord.HexBytes(publicKey), nil
}

// PublishBinding - bind a name to a key, false if taken by another
func (p *Peers) PublishBinding(name string, publicKey tokenrecord.HexBytes) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := p.bindings.Get([]byte(name))
	encoded := []byte(hex.EncodeToString(publicKey))
	if nil != stored && !bytes.Equal(stored, encoded) {
		return false, nil
	}
	p.bindings.Put([]byte(name), encoded)
	return true, nil
}
