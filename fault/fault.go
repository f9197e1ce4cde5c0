// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type TemporaryError GenericError

// common errors - keep in alphabetic order
var (
	AlreadyInitialised   = ExistsError("already initialised")
	KeyFileAlreadyExists = ExistsError("key file already exists")
	OutboxEntryExists    = ExistsError("outbox entry already exists")
	TransferInProgress   = ExistsError("transfer already in progress")

	IncompleteOutboxGroup   = InvalidError("outbox group burn record lacks the planned composition")
	InvalidAmount           = InvalidError("invalid amount")
	InvalidCoinKind         = InvalidError("invalid coin kind")
	InvalidCount            = InvalidError("invalid count")
	InvalidDataHash         = InvalidError("invalid data hash")
	InvalidKeyLength        = InvalidError("invalid key length")
	InvalidNametag          = InvalidError("invalid nametag")
	InvalidOutboxPhase      = InvalidError("invalid outbox phase")
	InvalidProofChain       = InvalidError("proof chain linkage is broken")
	InvalidSnapshotFormat   = InvalidError("invalid snapshot format")
	InvalidStructPointer    = InvalidError("invalid struct pointer")
	InvalidTokenId          = InvalidError("invalid token id")
	InvalidVersionRegressed = InvalidError("remote version regressed below high-water mark")
	WrongNetworkForProof    = InvalidError("proof root does not match expected trust base")

	LockNotHeld           = NotFoundError("advisory lock is not held")
	MissingAuthenticator  = NotFoundError("proof has no authenticator")
	NotFoundContent       = NotFoundError("content is not present")
	NotFoundName          = NotFoundError("name does not resolve")
	NotFoundOutboxGroup   = NotFoundError("outbox split group is not present")
	NotFoundSnapshot      = NotFoundError("snapshot is not present")
	NotFoundToken         = NotFoundError("token is not present")
	NotInitialised        = NotFoundError("not initialised")

	BurnNotRecoverable    = ProcessError("burn failed and restore also failed")
	CannotDecodeMessage   = ProcessError("cannot decode peer message")
	CannotDecodeSnapshot  = ProcessError("cannot decode snapshot")
	InsufficientValue     = ProcessError("tokens total less than target amount")
	ProofTimeout          = ProcessError("timed out waiting for inclusion proof")
	PublishFailed         = ProcessError("content uploaded but name publish failed")
	RateLimiting          = ProcessError("rate limiting")
	RecoveryCycleDetected = ProcessError("snapshot history contains a cycle")
	SubmitRejected        = ProcessError("aggregator rejected the commitment")
	UploadFailed          = ProcessError("content upload failed")

	CircuitOpen      = TemporaryError("transport circuit is open")
	DeliveryAborted  = TemporaryError("delivery retries exhausted")
	LockTimeout      = TemporaryError("advisory lock acquisition timed out")
	SyncInProgress   = TemporaryError("synchronisation already in progress")
	TransportFailure = TemporaryError("transport request failed")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string    { return string(e) }
func (e InvalidError) Error() string   { return string(e) }
func (e NotFoundError) Error() string  { return string(e) }
func (e ProcessError) Error() string   { return string(e) }
func (e TemporaryError) Error() string { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool    { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool   { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool  { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool   { _, ok := e.(ProcessError); return ok }
func IsErrTemporary(e error) bool { _, ok := e.(TemporaryError); return ok }
