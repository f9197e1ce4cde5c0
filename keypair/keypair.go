// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keypair - the wallet owner's signing key
//
// one ed25519 key per wallet, stored hex encoded in a mode 0600 file
// under the data directory; satisfies the aggregator signer contract
package keypair

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// key sizes
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
)

// Keypair - an owner signing key
type Keypair struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// Generate - create a new random keypair
func Generate() (*Keypair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if nil != err {
		return nil, err
	}
	return &Keypair{
		publicKey:  publicKey,
		privateKey: privateKey,
	}, nil
}

// SaveToFile - write the private key hex encoded
//
// refuses to overwrite an existing key file
func (k *Keypair) SaveToFile(fileName string) error {
	if _, err := os.Stat(fileName); nil == err {
		return fault.KeyFileAlreadyExists
	}
	data := hex.EncodeToString(k.privateKey) + "\n"
	return os.WriteFile(fileName, []byte(data), 0600)
}

// LoadFromFile - read a hex encoded private key file
func LoadFromFile(fileName string) (*Keypair, error) {
	data, err := os.ReadFile(fileName)
	if nil != err {
		return nil, err
	}
	privateKeyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if nil != err {
		return nil, err
	}
	if PrivateKeySize != len(privateKeyBytes) {
		return nil, fault.InvalidKeyLength
	}
	privateKey := ed25519.PrivateKey(privateKeyBytes)
	return &Keypair{
		publicKey:  privateKey.Public().(ed25519.PublicKey),
		privateKey: privateKey,
	}, nil
}

// PublicKey - the signing public key
func (k *Keypair) PublicKey() tokenrecord.HexBytes {
	return tokenrecord.HexBytes(k.publicKey)
}

// Sign - sign a message with the private key
func (k *Keypair) Sign(message []byte) (tokenrecord.HexBytes, error) {
	signature := ed25519.Sign(k.privateKey, message)
	return tokenrecord.HexBytes(signature), nil
}

// Verify - check a signature made by this key
func (k *Keypair) Verify(message []byte, signature tokenrecord.HexBytes) bool {
	return ed25519.Verify(k.publicKey, message, signature)
}
