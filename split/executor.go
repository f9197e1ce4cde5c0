// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package split

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/statehash"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// how long one phase waits for its inclusion proof
const defaultProofTimeout = 2 * time.Minute

// phase numbers recorded in the outbox
const (
	phaseBurn     = 0
	phaseMintSend = 1
	phaseMintKeep = 2
	phaseTransfer = 3
)

// PhaseError - a split phase failed
//
// carries the phase name and the aggregator status so the operation
// can be retried or escalated with full context
type PhaseError struct {
	Phase  string
	Status aggregator.SubmitStatus
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("split %s phase failed (status %q): %s", e.Phase, e.Status, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Config - wiring for an executor
type Config struct {
	Address        string
	OwnerPredicate string // predicate minted children belong to
	Signer         aggregator.Signer
	Aggregator     aggregator.Client
	Snapshots      storage.Handle
	ProofTimeout   time.Duration

	// PersistToken is called the moment a minted child's proof lands,
	// before the next phase starts, so a crash between phases never
	// loses a committed token
	PersistToken func(tokenrecord.Token) error

	// Checkpoint runs a durable sync before the final transfer; best
	// effort, a failure is logged and the transfer proceeds
	Checkpoint func() error

	// RestoreSource is the recovery collaborator invoked when the
	// burn itself fails and the original token must come back
	RestoreSource func(tokenrecord.Token) error
}

// Executor - runs split plans against the aggregator
type Executor struct {
	log *logger.L
	cfg Config
}

// Outcome - what a finished split produced
type Outcome struct {
	GroupId     string
	Kept        *tokenrecord.Token // remainder child, stays with the sender
	Transferred *tokenrecord.Token // recipient's child after the final phase
}

// NewExecutor - create an executor
func NewExecutor(cfg Config) *Executor {
	if 0 == cfg.ProofTimeout {
		cfg.ProofTimeout = defaultProofTimeout
	}
	return &Executor{
		log: logger.New("split"),
		cfg: cfg,
	}
}

// Execute - run the four phase machine for one planned split
//
// burn the source, mint the send and keep children, checkpoint, then
// transfer the send child to the recipient.  Every phase is written
// to the outbox before submission; any failure after the burn leaves
// the outbox in place for Resume, because burning is irreversible.
func (x *Executor) Execute(planned *PlannedSplit, kind tokenrecord.CoinKind, recipient string) (*Outcome, error) {

	source := planned.Token
	sourceState := source.StateHash().String()
	groupId := aggregator.RequestIdFor(source.Id(), sourceState)[:16]

	x.log.Infof("split %s: %s into %d + %d for %q",
		groupId, source.Id(), planned.Needed, planned.Remainder, recipient)

	// phase 1: burn the source
	//
	// the burn entry records the planned composition as well, so a
	// crash before the first mint entry exists can still rebuild the
	// children from the outbox alone
	err := x.runPhase(groupId, phaseBurn, aggregator.Operation{
		Kind:   inventory.OpBurn,
		Source: source,
	}, outboxShape{
		kind:            inventory.OpBurn,
		requestId:       aggregator.RequestIdFor(source.Id(), sourceState),
		sourceTokenId:   source.Id(),
		sourceStateHash: sourceState,
		recipient:       recipient,
		coinKind:        kind,
		sendAmount:      planned.Needed,
		keepAmount:      planned.Remainder,
	})
	if nil != err {
		// the burn may not have landed: try to bring the source back
		x.log.Errorf("split %s: burn failed: %s", groupId, err)
		if nil != x.cfg.RestoreSource {
			if restoreErr := x.cfg.RestoreSource(source); nil != restoreErr {
				x.log.Criticalf("split %s: source restore failed: %s", groupId, restoreErr)
				return nil, &PhaseError{
					Phase:  "burn",
					Status: submitStatus(err),
					Err:    fmt.Errorf("%s; restore failed: %s", err, restoreErr),
				}
			}
		}
		return nil, err
	}

	// phases 2a and 2b: mint both children, send child first
	sendChild := childToken(source.Id(), 0, x.cfg.OwnerPredicate, kind, planned.Needed)
	keepChild := childToken(source.Id(), 1, x.cfg.OwnerPredicate, kind, planned.Remainder)

	sendChild, err = x.mintChild(groupId, phaseMintSend, source.Id(), sourceState, sendChild)
	if nil != err {
		return nil, err
	}
	keepChild, err = x.mintChild(groupId, phaseMintKeep, source.Id(), sourceState, keepChild)
	if nil != err {
		return nil, err
	}

	// phase 3: durable sync checkpoint before the irreversible hand off
	if nil != x.cfg.Checkpoint {
		if err := x.cfg.Checkpoint(); nil != err {
			x.log.Warnf("split %s: pre-transfer checkpoint failed: %s", groupId, err)
		}
	}

	// phase 4: transfer the send child to the recipient
	transferred, err := x.transferChild(groupId, sendChild, recipient)
	if nil != err {
		return nil, err
	}

	return &Outcome{
		GroupId:     groupId,
		Kept:        &keepChild,
		Transferred: &transferred,
	}, nil
}

// mintChild - checkpoint, submit and await one child mint
func (x *Executor) mintChild(groupId string, phase int, sourceId tokenrecord.TokenId, sourceState string, child tokenrecord.Token) (tokenrecord.Token, error) {

	genesis := child.Genesis
	err := x.runPhase(groupId, phase, aggregator.Operation{
		Kind:       inventory.OpMint,
		NewTokenId: child.Id(),
		Coins:      genesis.Data.Coins,
		Salt:       genesis.Data.Salt,
		Recipient:  genesis.Data.Recipient,
	}, outboxShape{
		kind:            inventory.OpMint,
		requestId:       aggregator.RequestIdFor(child.Id(), ""),
		sourceTokenId:   sourceId,
		sourceStateHash: sourceState,
		childTokenId:    child.Id(),
		childGenesis:    &genesis,
	})
	if nil != err {
		return child, err
	}

	proof := x.recordedProof(groupId, phase)
	child = child.WithGenesisProof(proof)

	// durable before the next phase starts
	if nil != x.cfg.PersistToken {
		if err := x.cfg.PersistToken(child); nil != err {
			return child, &PhaseError{Phase: phaseName(phase), Status: aggregator.SubmitSuccess, Err: err}
		}
	}
	return child, nil
}

// transferChild - checkpoint, submit and await the final transfer
func (x *Executor) transferChild(groupId string, child tokenrecord.Token, recipient string) (tokenrecord.Token, error) {

	genesisState := child.Genesis.State
	tx := buildTransfer(child, recipient)

	err := x.runPhase(groupId, phaseTransfer, aggregator.Operation{
		Kind:      inventory.OpTransfer,
		Source:    child,
		Recipient: recipient,
		Salt:      tx.Data.Salt,
	}, outboxShape{
		kind:            inventory.OpTransfer,
		requestId:       aggregator.RequestIdFor(child.Id(), genesisState.String()),
		sourceTokenId:   child.Id(),
		sourceStateHash: genesisState.String(),
		recipient:       recipient,
	})
	if nil != err {
		return child, err
	}

	tx.Proof = x.recordedProof(groupId, phaseTransfer)
	return child.WithAppendedTransaction(tx), nil
}

// outboxShape - the durable identity of one phase
type outboxShape struct {
	kind            inventory.OperationKind
	requestId       string
	sourceTokenId   tokenrecord.TokenId
	sourceStateHash string
	childTokenId    tokenrecord.TokenId
	childGenesis    *tokenrecord.GenesisEvent
	recipient       string
	coinKind        tokenrecord.CoinKind
	sendAmount      tokenrecord.Amount
	keepAmount      tokenrecord.Amount
}

// runPhase - the per phase protocol
//
// write the outbox entry, submit the commitment, await the proof and
// record it.  REQUEST_ID_EXISTS is the idempotent resubmit answer and
// treated as success.
func (x *Executor) runPhase(groupId string, phase int, op aggregator.Operation, shape outboxShape) error {

	name := phaseName(phase)

	commitment, err := x.cfg.Aggregator.CreateCommitment(op, x.cfg.Signer)
	if nil != err {
		return &PhaseError{Phase: name, Status: aggregator.SubmitRejected, Err: err}
	}
	// the idempotency key derives from the state the commitment
	// spends so a resumed run resubmits under the same key
	commitment.RequestId = shape.requestId

	serialized, err := json.Marshal(commitment)
	if nil != err {
		return &PhaseError{Phase: name, Status: aggregator.SubmitRejected, Err: err}
	}

	entry := inventory.OutboxEntry{
		GroupId:         groupId,
		Phase:           phase,
		Kind:            shape.kind,
		Status:          inventory.OutboxReadyToSubmit,
		Commitment:      serialized,
		RequestId:       shape.requestId,
		SourceTokenId:   shape.sourceTokenId,
		SourceStateHash: shape.sourceStateHash,
		ChildTokenId:    shape.childTokenId,
		ChildGenesis:    shape.childGenesis,
		Recipient:       shape.recipient,
		CoinKind:        shape.coinKind,
		SendAmount:      shape.sendAmount,
		KeepAmount:      shape.keepAmount,
		CreatedAt:       time.Now().Unix(),
	}

	// durable before anything is sent
	if err := x.writeEntry(entry); nil != err {
		return &PhaseError{Phase: name, Status: aggregator.SubmitRejected, Err: err}
	}

	return x.submitAndAwait(name, entry, commitment)
}

// submitAndAwait - submit one recorded entry and wait for its proof
func (x *Executor) submitAndAwait(name string, entry inventory.OutboxEntry, commitment aggregator.Commitment) error {

	status, err := x.cfg.Aggregator.Submit(commitment)
	if nil != err {
		return &PhaseError{Phase: name, Status: status, Err: err}
	}
	switch status {
	case aggregator.SubmitSuccess:
	case aggregator.SubmitRequestIdExists:
		// already submitted by a run that crashed: carry on
		x.log.Infof("split %s: %s already submitted", entry.GroupId, name)
	default:
		return &PhaseError{Phase: name, Status: status, Err: fault.SubmitRejected}
	}

	entry.Status = inventory.OutboxSubmitted
	if err := x.writeEntry(entry); nil != err {
		return &PhaseError{Phase: name, Status: status, Err: err}
	}

	proof, err := x.cfg.Aggregator.WaitForProof(commitment, x.cfg.ProofTimeout)
	if nil != err {
		return &PhaseError{Phase: name, Status: status, Err: err}
	}
	if !proof.IsInclusion() {
		// an exclusion proof is absence, never confirmation
		return &PhaseError{Phase: name, Status: status, Err: fault.ProofTimeout}
	}

	entry.Status = inventory.OutboxProofReceived
	entry.Proof = proof.Normalised()
	if err := x.writeEntry(entry); nil != err {
		return &PhaseError{Phase: name, Status: status, Err: err}
	}
	return nil
}

// writeEntry - upsert one outbox entry in the durable snapshot
func (x *Executor) writeEntry(entry inventory.OutboxEntry) error {
	snap, err := storage.LoadSnapshot(x.cfg.Snapshots, x.cfg.Address)
	if nil != err {
		return err
	}
	if nil == snap {
		snap = inventory.NewSnapshot(x.cfg.Address)
	}

	replaced := false
	for i, existing := range snap.Outbox {
		if existing.Key() == entry.Key() {
			snap.Outbox[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		snap.Outbox = append(snap.Outbox, entry)
	}
	return storage.SaveSnapshot(x.cfg.Snapshots, x.cfg.Address, snap)
}

// recordedProof - the proof stored for one phase of a group
func (x *Executor) recordedProof(groupId string, phase int) *tokenrecord.InclusionProof {
	snap, err := storage.LoadSnapshot(x.cfg.Snapshots, x.cfg.Address)
	if nil != err || nil == snap {
		return nil
	}
	for _, entry := range snap.Outbox {
		if entry.GroupId == groupId && entry.Phase == phase {
			return entry.Proof
		}
	}
	return nil
}

// childToken - deterministic child of a split
//
// the salt derives from the parent id and the child index, so a
// resumed run rebuilds bit-identical children with the same ids
func childToken(parentId tokenrecord.TokenId, index uint64, owner string, kind tokenrecord.CoinKind, amount tokenrecord.Amount) tokenrecord.Token {
	derived := tokenrecord.DeriveChildTokenId(parentId, index)
	return tokenrecord.Token{
		Genesis: tokenrecord.GenesisEvent{
			Data: tokenrecord.EventData{
				Recipient: owner,
				Coins: []tokenrecord.Coin{
					{Kind: kind, Amount: amount},
				},
				Salt:   derived[:],
				Reason: "split",
			},
			State: statehash.NewHash(derived[:]),
		},
	}
}

// buildTransfer - deterministic transfer of a child to a recipient
func buildTransfer(child tokenrecord.Token, recipient string) tokenrecord.TransferTransaction {
	salt := child.Genesis.Data.Salt
	return tokenrecord.TransferTransaction{
		Data: tokenrecord.EventData{
			Recipient: recipient,
			Coins:     child.Genesis.Data.Coins,
			Salt:      salt,
			Reason:    "split transfer",
		},
		Previous: child.Genesis.State,
		Result:   statehash.NewHash([]byte("transfer:" + child.Id().String() + ":" + recipient)),
	}
}

// phaseName - human readable phase for errors and logs
func phaseName(phase int) string {
	switch phase {
	case phaseBurn:
		return "burn"
	case phaseMintSend, phaseMintKeep:
		return "mint"
	case phaseTransfer:
		return "transfer"
	}
	return "unknown"
}

// submitStatus - extract the aggregator status from a phase error
func submitStatus(err error) aggregator.SubmitStatus {
	if phaseErr, ok := err.(*PhaseError); ok {
		return phaseErr.Status
	}
	return aggregator.SubmitRejected
}
