// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// Aggregator - a single host commitment log
//
// anchors every accepted commitment synchronously, so proofs are
// available right after submit; requests holds one record per request
// id, spends maps each consumed (token, state) pair to the request
// that consumed it
type Aggregator struct {
	mu sync.Mutex // serialises submit against the spend index

	log      *logger.L
	requests storage.Handle
	spends   storage.Handle
	bindings storage.Handle
}

// one anchored commitment
type requestRecord struct {
	Kind      inventory.OperationKind `json:"kind"`
	Data      tokenrecord.HexBytes    `json:"data"`
	PublicKey tokenrecord.HexBytes    `json:"publicKey"`
	Signature tokenrecord.HexBytes    `json:"signature"`
	SpendsId  tokenrecord.TokenId     `json:"spendsId"`
	SpendsKey string                  `json:"spendsKey,omitempty"` // empty for mint
}

// the signed portion of a commitment
type commitmentData struct {
	Kind        inventory.OperationKind `json:"kind"`
	SpendsId    tokenrecord.TokenId     `json:"spendsId"`
	SpendsState string                  `json:"spendsState,omitempty"`
	NewTokenId  tokenrecord.TokenId     `json:"newTokenId"`
	Recipient   string                  `json:"recipient,omitempty"`
	Coins       []tokenrecord.Coin      `json:"coins,omitempty"`
	Salt        tokenrecord.HexBytes    `json:"salt,omitempty"`
	PublicKey   tokenrecord.HexBytes    `json:"publicKey"`
	Signature   tokenrecord.HexBytes    `json:"signature,omitempty"`
}

// NewAggregator - create an aggregator over existing pools
func NewAggregator(requests storage.Handle, spends storage.Handle, bindings storage.Handle) *Aggregator {
	return &Aggregator{
		log:      logger.New("gateway-aggregator"),
		requests: requests,
		spends:   spends,
		bindings: bindings,
	}
}

// CreateCommitment - build and sign a commitment for one operation
func (a *Aggregator) CreateCommitment(op aggregator.Operation, signer aggregator.Signer) (aggregator.Commitment, error) {

	data := commitmentData{
		Kind:       op.Kind,
		NewTokenId: op.NewTokenId,
		Recipient:  op.Recipient,
		Coins:      op.Coins,
		Salt:       op.Salt,
		PublicKey:  signer.PublicKey(),
	}

	requestId := ""
	switch op.Kind {
	case inventory.OpMint:
		requestId = aggregator.RequestIdFor(op.NewTokenId, "")
	default:
		data.SpendsId = op.Source.Id()
		data.SpendsState = op.Source.StateHash().String()
		requestId = aggregator.RequestIdFor(data.SpendsId, data.SpendsState)
	}

	message, err := json.Marshal(data)
	if nil != err {
		return aggregator.Commitment{}, err
	}
	signature, err := signer.Sign(message)
	if nil != err {
		return aggregator.Commitment{}, err
	}
	data.Signature = signature

	signed, err := json.Marshal(data)
	if nil != err {
		return aggregator.Commitment{}, err
	}

	return aggregator.Commitment{
		RequestId: requestId,
		Kind:      op.Kind,
		Data:      tokenrecord.HexBytes(signed),
	}, nil
}

// Submit - anchor a commitment, idempotent per request id
func (a *Aggregator) Submit(commitment aggregator.Commitment) (aggregator.SubmitStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	requestKey := []byte(commitment.RequestId)
	if nil != a.requests.Get(requestKey) {
		return aggregator.SubmitRequestIdExists, nil
	}

	data := commitmentData{}
	if err := json.Unmarshal(commitment.Data, &data); nil != err {
		return aggregator.SubmitRejected, err
	}

	record := requestRecord{
		Kind:      data.Kind,
		Data:      commitment.Data,
		PublicKey: data.PublicKey,
		Signature: data.Signature,
		SpendsId:  data.SpendsId,
	}

	// burn and transfer consume a prior state exactly once
	if "" != data.SpendsState {
		record.SpendsKey = spendKey(data.SpendsId, data.SpendsState)
		if existing := a.spends.Get([]byte(record.SpendsKey)); nil != existing {
			a.log.Warnf("submit: %s double spend of %s", commitment.RequestId, record.SpendsKey)
			return aggregator.SubmitRejected, nil
		}
	}

	stored, err := json.Marshal(record)
	if nil != err {
		return aggregator.SubmitRejected, err
	}
	a.requests.Put(requestKey, stored)
	if "" != record.SpendsKey {
		a.spends.Put([]byte(record.SpendsKey), requestKey)
	}

	a.log.Infof("submit: %s anchored (%s)", commitment.RequestId, commitment.Kind)
	return aggregator.SubmitSuccess, nil
}

// GetProof - proof for an anchored request, nil if never submitted
func (a *Aggregator) GetProof(requestId string) (*tokenrecord.InclusionProof, error) {
	stored := a.requests.Get([]byte(requestId))
	if nil == stored {
		return nil, nil
	}
	record := requestRecord{}
	if err := json.Unmarshal(stored, &record); nil != err {
		return nil, err
	}
	return a.proofFor(requestId, &record)
}

// WaitForProof - poll until an inclusion proof arrives or timeout
//
// anchoring is synchronous here so the first poll normally succeeds
func (a *Aggregator) WaitForProof(commitment aggregator.Commitment, timeout time.Duration) (*tokenrecord.InclusionProof, error) {
	deadline := time.Now().Add(timeout)
	for {
		proof, err := a.GetProof(commitment.RequestId)
		if nil != err {
			return nil, err
		}
		if proof.IsInclusion() {
			return proof, nil
		}
		if time.Now().After(deadline) {
			return nil, fault.ProofTimeout
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// VerifyToken - verify a token record against the anchored log
func (a *Aggregator) VerifyToken(token tokenrecord.Token) aggregator.VerifyResult {
	if err := tokenrecord.CheckStructure(token); nil != err {
		return aggregator.VerifyResult{
			OK:     false,
			Reason: err.Error(),
		}
	}
	return aggregator.VerifyResult{OK: true}
}

// IsSpent - authoritative spend check for one (token, state) pair
func (a *Aggregator) IsSpent(tokenId tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error) {
	return nil != a.spends.Get([]byte(spendKey(tokenId, stateHash))), nil
}

// OwnsNametag - re-prove that the signing key still owns a nametag
//
// an unclaimed name counts as owned: the wallet will claim it when
// it reconciles bindings
func (a *Aggregator) OwnsNametag(nametag inventory.Nametag, ownerKey tokenrecord.HexBytes) (bool, error) {
	stored := a.bindings.Get([]byte(nametag.Name))
	if nil == stored {
		return true, nil
	}
	return bytes.Equal(stored, []byte(hex.EncodeToString(ownerKey))), nil
}

// fabricate the anchored proof for one request
func (a *Aggregator) proofFor(requestId string, record *requestRecord) (*tokenrecord.InclusionProof, error) {
	spends := statehash.Hash{}
	if "" != record.SpendsKey {
		data := commitmentData{}
		if err := json.Unmarshal(record.Data, &data); nil != err {
			return nil, err
		}
		parsed, err := statehash.HashFromHexString(data.SpendsState)
		if nil != err {
			return nil, err
		}
		spends = parsed
	}

	leaf := statehash.NewHash([]byte(requestId))
	return &tokenrecord.InclusionProof{
		Authenticator: &tokenrecord.Authenticator{
			PublicKey: record.PublicKey,
			Signature: record.Signature,
			StateHash: spends,
		},
		Path: []statehash.Hash{leaf},
		Root: statehash.NewHash(append([]byte("anchor:v1:"), leaf.Digest[:]...)),
	}, nil
}

// spend index key for one (token, state) pair
func spendKey(id tokenrecord.TokenId, stateHash string) string {
	return id.String() + ":" + stateHash
}
