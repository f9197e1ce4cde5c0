// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split_test

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/split"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

const (
	logDir      = "testing"
	testAddress = "addr-split"
	recipient   = "predicate:them"
)

func TestMain(m *testing.M) {
	_ = os.RemoveAll(logDir)
	_ = os.Mkdir(logDir, 0700)
	_ = logger.Initialise(logger.Configuration{
		Directory: logDir,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	})
	rc := m.Run()
	logger.Finalise()
	_ = os.RemoveAll(logDir)
	os.Exit(rc)
}

// scripted aggregator tracking submissions per request id
type scriptedAggregator struct {
	sync.Mutex
	submissions map[string]int
	rejectBurn  bool
	hangProofs  map[string]bool // request ids whose proof never arrives
}

func newScriptedAggregator() *scriptedAggregator {
	return &scriptedAggregator{
		submissions: make(map[string]int),
		hangProofs:  make(map[string]bool),
	}
}

func (a *scriptedAggregator) CreateCommitment(op aggregator.Operation, signer aggregator.Signer) (aggregator.Commitment, error) {
	data, err := json.Marshal(op.Kind)
	if nil != err {
		return aggregator.Commitment{}, err
	}
	return aggregator.Commitment{Kind: op.Kind, Data: data}, nil
}

func (a *scriptedAggregator) Submit(commitment aggregator.Commitment) (aggregator.SubmitStatus, error) {
	a.Lock()
	defer a.Unlock()
	if a.rejectBurn && inventory.OpBurn == commitment.Kind {
		return aggregator.SubmitRejected, nil
	}
	a.submissions[commitment.RequestId] += 1
	if a.submissions[commitment.RequestId] > 1 {
		return aggregator.SubmitRequestIdExists, nil
	}
	return aggregator.SubmitSuccess, nil
}

func (a *scriptedAggregator) GetProof(requestId string) (*tokenrecord.InclusionProof, error) {
	return a.proofFor(requestId), nil
}

func (a *scriptedAggregator) WaitForProof(commitment aggregator.Commitment, timeout time.Duration) (*tokenrecord.InclusionProof, error) {
	a.Lock()
	hung := a.hangProofs[commitment.RequestId]
	a.Unlock()
	if hung {
		return nil, fault.ProofTimeout
	}
	return a.proofFor(commitment.RequestId), nil
}

func (a *scriptedAggregator) proofFor(requestId string) *tokenrecord.InclusionProof {
	return &tokenrecord.InclusionProof{
		Authenticator: &tokenrecord.Authenticator{
			PublicKey: []byte("pub:" + requestId),
			Signature: []byte("sig:" + requestId),
		},
		Root: statehash.NewHash([]byte("root:" + requestId)),
	}
}

func (a *scriptedAggregator) VerifyToken(token tokenrecord.Token) aggregator.VerifyResult {
	return aggregator.VerifyResult{OK: true}
}

func (a *scriptedAggregator) IsSpent(tokenId tokenrecord.TokenId, stateHash string, ownerKey tokenrecord.HexBytes) (bool, error) {
	return false, nil
}

func (a *scriptedAggregator) OwnsNametag(nametag inventory.Nametag, ownerKey tokenrecord.HexBytes) (bool, error) {
	return true, nil
}

func (a *scriptedAggregator) submissionCount(requestId string) int {
	a.Lock()
	defer a.Unlock()
	return a.submissions[requestId]
}

type nullSigner struct{}

func (nullSigner) PublicKey() tokenrecord.HexBytes { return []byte("signer") }
func (nullSigner) Sign(message []byte) (tokenrecord.HexBytes, error) {
	return []byte("signed"), nil
}

type splitFixture struct {
	executor    *split.Executor
	agg         *scriptedAggregator
	snapshots   *storage.MemoryHandle
	persisted   []tokenrecord.Token
	restored    []tokenrecord.Token
	checkpoints int
}

func newSplitFixture() *splitFixture {
	f := &splitFixture{
		agg:       newScriptedAggregator(),
		snapshots: storage.NewMemoryHandle(),
	}
	f.executor = split.NewExecutor(split.Config{
		Address:        testAddress,
		OwnerPredicate: "predicate:self",
		Signer:         nullSigner{},
		Aggregator:     f.agg,
		Snapshots:      f.snapshots,
		PersistToken: func(tok tokenrecord.Token) error {
			f.persisted = append(f.persisted, tok)
			return nil
		},
		Checkpoint: func() error {
			f.checkpoints += 1
			return nil
		},
		RestoreSource: func(tok tokenrecord.Token) error {
			f.restored = append(f.restored, tok)
			return nil
		},
	})
	return f
}

func sourceToken(amount tokenrecord.Amount) tokenrecord.Token {
	seed := fmt.Sprintf("source-%d", amount)
	return tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:self",
				Coins: []tokenrecord.Coin{
					{Kind: kind, Amount: amount},
				},
				Salt: []byte(seed),
			},
			State: statehash.NewHash([]byte(seed)),
		},
	}
}

func (f *splitFixture) outbox(t *testing.T) []inventory.OutboxEntry {
	t.Helper()
	snap, err := storage.LoadSnapshot(f.snapshots, testAddress)
	require.NoError(t, err)
	require.NotNil(t, snap)
	return snap.Outbox
}

func TestExecuteRunsAllFourPhases(t *testing.T) {
	f := newSplitFixture()

	planned := &split.PlannedSplit{
		Token:     sourceToken(100),
		Needed:    70,
		Remainder: 30,
	}
	outcome, err := f.executor.Execute(planned, kind, recipient)
	require.NoError(t, err)

	require.NotNil(t, outcome.Kept)
	assert.Equal(t, tokenrecord.Amount(30), outcome.Kept.Value(kind))
	assert.True(t, outcome.Kept.IsCommitted())

	require.NotNil(t, outcome.Transferred)
	assert.Equal(t, tokenrecord.Amount(70), outcome.Transferred.Value(kind))
	require.Len(t, outcome.Transferred.Transactions, 1)
	assert.Equal(t, recipient, outcome.Transferred.Transactions[0].Data.Recipient)

	// both children persisted the moment their proofs landed
	assert.Len(t, f.persisted, 2)
	assert.Equal(t, 1, f.checkpoints)

	// every phase check-pointed and finished
	entries := f.outbox(t)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, inventory.OutboxProofReceived, entry.Status)
		assert.Equal(t, outcome.GroupId, entry.GroupId)
	}
}

func TestExecuteBurnFailureRestoresSource(t *testing.T) {
	f := newSplitFixture()
	f.agg.rejectBurn = true

	source := sourceToken(100)
	planned := &split.PlannedSplit{Token: source, Needed: 70, Remainder: 30}

	_, err := f.executor.Execute(planned, kind, recipient)
	require.Error(t, err)

	phaseErr := &split.PhaseError{}
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "burn", phaseErr.Phase)
	assert.Equal(t, aggregator.SubmitRejected, phaseErr.Status)

	// the recovery collaborator got the original token back
	require.Len(t, f.restored, 1)
	assert.Equal(t, source.Id(), f.restored[0].Id())

	// nothing was minted or moved
	assert.Empty(t, f.persisted)
	assert.Zero(t, f.checkpoints)
}

func TestResumeCompletesCrashedSplit(t *testing.T) {
	f := newSplitFixture()
	source := sourceToken(100)
	planned := &split.PlannedSplit{Token: source, Needed: 70, Remainder: 30}

	// the keep child's proof never arrives: the process "crashes"
	// between the two mints
	hungRequest := keepMintRequestId(source)
	f.agg.Lock()
	f.agg.hangProofs[hungRequest] = true
	f.agg.Unlock()

	_, err := f.executor.Execute(planned, kind, recipient)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ProofTimeout)
	assert.Len(t, f.persisted, 1) // only the send child landed

	// restart: the pending group is discoverable from the outbox
	groups, err := f.executor.PendingGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// proof service recovered
	f.agg.Lock()
	delete(f.agg.hangProofs, hungRequest)
	f.agg.Unlock()

	outcome, err := f.executor.Resume(groups[0])
	require.NoError(t, err)

	// the keep child completed, resubmitted under the original id
	require.NotNil(t, outcome.Kept)
	assert.Equal(t, tokenrecord.Amount(30), outcome.Kept.Value(kind))
	assert.Equal(t, 2, f.agg.submissionCount(hungRequest))

	// the transfer never started before the crash: resume rebuilt it
	// from the burn record and finished the hand off
	require.NotNil(t, outcome.Transferred)
	assert.Equal(t, tokenrecord.Amount(70), outcome.Transferred.Value(kind))
	require.Len(t, outcome.Transferred.Transactions, 1)
	assert.Equal(t, recipient, outcome.Transferred.Transactions[0].Data.Recipient)

	entries := f.outbox(t)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, inventory.OutboxProofReceived, entry.Status)
	}
}

func TestResumeRebuildsSplitCrashedAfterBurn(t *testing.T) {
	f := newSplitFixture()
	source := sourceToken(100)
	planned := &split.PlannedSplit{Token: source, Needed: 70, Remainder: 30}

	// the burn proof never arrives: the process "crashes" with only
	// the burn entry on record, before either mint was started
	burnRequest := aggregator.RequestIdFor(source.Id(), source.StateHash().String())
	f.agg.Lock()
	f.agg.hangProofs[burnRequest] = true
	f.agg.Unlock()

	_, err := f.executor.Execute(planned, kind, recipient)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ProofTimeout)
	assert.Empty(t, f.persisted)
	require.Len(t, f.outbox(t), 1)

	// restart: the group is still discoverable
	groups, err := f.executor.PendingGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// proof service recovered
	f.agg.Lock()
	delete(f.agg.hangProofs, burnRequest)
	f.agg.Unlock()

	outcome, err := f.executor.Resume(groups[0])
	require.NoError(t, err)

	// both children rebuilt from the burn record alone
	require.NotNil(t, outcome.Kept)
	assert.Equal(t, tokenrecord.Amount(30), outcome.Kept.Value(kind))
	assert.True(t, outcome.Kept.IsCommitted())
	require.NotNil(t, outcome.Transferred)
	assert.Equal(t, tokenrecord.Amount(70), outcome.Transferred.Value(kind))
	require.Len(t, outcome.Transferred.Transactions, 1)
	assert.Equal(t, recipient, outcome.Transferred.Transactions[0].Data.Recipient)

	// the replayed burn resubmitted under its original id and every
	// phase finished
	assert.Equal(t, 2, f.agg.submissionCount(burnRequest))
	assert.Len(t, f.persisted, 2)
	assert.Equal(t, 1, f.checkpoints)

	entries := f.outbox(t)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, inventory.OutboxProofReceived, entry.Status)
	}

	// the same ids an uninterrupted run would have produced
	clean, err := newSplitFixture().executor.Execute(planned, kind, recipient)
	require.NoError(t, err)
	assert.Equal(t, clean.Kept.Id(), outcome.Kept.Id())
	assert.Equal(t, clean.Transferred.Id(), outcome.Transferred.Id())
	assert.Equal(t, clean.GroupId, outcome.GroupId)
}

func TestChildIdsAreDeterministic(t *testing.T) {
	f := newSplitFixture()
	source := sourceToken(100)
	planned := &split.PlannedSplit{Token: source, Needed: 70, Remainder: 30}

	first, err := f.executor.Execute(planned, kind, recipient)
	require.NoError(t, err)

	g := newSplitFixture()
	second, err := g.executor.Execute(planned, kind, recipient)
	require.NoError(t, err)

	assert.Equal(t, first.Kept.Id(), second.Kept.Id())
	assert.Equal(t, first.Transferred.Id(), second.Transferred.Id())
	assert.Equal(t, first.GroupId, second.GroupId)
}

// the deterministic request id of a source's keep child mint
func keepMintRequestId(source tokenrecord.Token) string {
	derived := tokenrecord.DeriveChildTokenId(source.Id(), 1)
	child := tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: "predicate:self",
				Coins: []tokenrecord.Coin{
					{Kind: kind, Amount: 30},
				},
				Salt:   derived[:],
				Reason: "split",
			},
			State: statehash.NewHash(derived[:]),
		},
	}
	return aggregator.RequestIdFor(child.Id(), "")
}
