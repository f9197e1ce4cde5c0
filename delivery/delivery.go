// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package delivery - rate limited outbound token delivery
//
// Completed transfers travel to their recipient as peer messages.  A
// bounded worker pool drains the queue; a failed send computes its
// next attempt from a fixed backoff schedule and gives up into a
// terminal failed state after the retry budget, staying queued so the
// failure remains visible.  A delivered item is finalised into the
// sync engine as a completed transfer record.
package delivery

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/peermsg"
	"github.com/bitmark-inc/walletd/syncer"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// defaults
const (
	defaultWorkerCount = 4
	defaultMaxAttempts = 6
	defaultSendRate    = rate.Limit(5) // sends per second
	defaultSendBurst   = 5
	pollInterval       = 250 * time.Millisecond
)

// attempt n waits schedule[min(n-1, len-1)] before retrying
var defaultBackoffSchedule = []time.Duration{
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
}

// Status - lifecycle of one queued delivery
type Status string

// delivery states
const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED" // terminal, retry budget spent
)

// Item - one token on its way to a recipient
type Item struct {
	Id        string
	Token     tokenrecord.Token
	StateHash string // state the completed transfer spent
	Recipient string // peer name, resolved to a key per attempt
	Proof     *tokenrecord.InclusionProof
	Status    Status
	Attempts  int
	LastError string
	NotBefore time.Time

	inFlight bool // claimed by a worker
}

// Config - wiring for the queue
type Config struct {
	Peers       peermsg.Transport
	Engine      *syncer.Engine
	WorkerCount int
	MaxAttempts int
	SendRate    rate.Limit
	SendBurst   int
	Backoff     []time.Duration
}

// Queue - the outbound delivery queue
type Queue struct {
	mu sync.Mutex

	log     *logger.L
	cfg     Config
	limiter *rate.Limiter
	items   []*Item
	nextId  int
}

// NewQueue - create a queue
func NewQueue(cfg Config) *Queue {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if 0 == cfg.SendRate {
		cfg.SendRate = defaultSendRate
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = defaultSendBurst
	}
	if 0 == len(cfg.Backoff) {
		cfg.Backoff = defaultBackoffSchedule
	}
	return &Queue{
		log:     logger.New("delivery"),
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.SendRate, cfg.SendBurst),
	}
}

// Enqueue - add one transfer to the queue
func (q *Queue) Enqueue(token tokenrecord.Token, stateHash string, recipient string, proof *tokenrecord.InclusionProof) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextId += 1
	item := &Item{
		Id:        "d" + strconv.Itoa(q.nextId),
		Token:     token,
		StateHash: stateHash,
		Recipient: recipient,
		Proof:     proof,
		Status:    StatusPending,
	}
	q.items = append(q.items, item)
	q.log.Infof("queued %s for %q", item.Id, recipient)
	return item.Id
}

// Items - snapshot of the queue for status displays
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]Item, len(q.items))
	for i, item := range q.items {
		items[i] = *item
	}
	return items
}

// takeDue - claim one pending item whose backoff has elapsed
func (q *Queue) takeDue(now time.Time) *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if StatusPending == item.Status && !item.inFlight && !item.NotBefore.After(now) {
			item.inFlight = true
			return item
		}
	}
	return nil
}

// attempt - one delivery try for one item
func (q *Queue) attempt(item *Item) {

	err := q.deliver(item)

	q.mu.Lock()
	item.inFlight = false
	item.Attempts += 1
	if nil == err {
		item.Status = StatusDelivered
		item.LastError = ""
		q.mu.Unlock()
		q.log.Infof("delivered %s after %d attempts", item.Id, item.Attempts)
		q.finalise(item)
		return
	}

	item.LastError = err.Error()
	if item.Attempts >= q.cfg.MaxAttempts {
		// stays queued so the failure is visible
		item.Status = StatusFailed
		q.mu.Unlock()
		q.log.Errorf("delivery %s failed permanently: %s", item.Id, err)
		return
	}

	backoff := q.cfg.Backoff[len(q.cfg.Backoff)-1]
	if item.Attempts <= len(q.cfg.Backoff) {
		backoff = q.cfg.Backoff[item.Attempts-1]
	}
	item.NotBefore = time.Now().Add(backoff)
	q.mu.Unlock()
	q.log.Warnf("delivery %s attempt %d failed, retry in %s: %s",
		item.Id, item.Attempts, backoff, err)
}

// deliver - resolve the recipient and send the token
func (q *Queue) deliver(item *Item) error {

	publicKey, err := q.cfg.Peers.QueryBindingByName(item.Recipient)
	if nil != err {
		return err
	}
	if 0 == len(publicKey) {
		return fault.NotFoundName
	}

	payload, err := json.Marshal(peermsg.Envelope{
		Token: item.Token,
		Proof: item.Proof,
	})
	if nil != err {
		return err
	}

	_, err = q.cfg.Peers.Send(publicKey, payload)
	return err
}

// finalise - record the completed transfer in the sync engine
func (q *Queue) finalise(item *Item) {
	if nil == q.cfg.Engine {
		return
	}
	// local-only: the spend is recorded durably now, the next full
	// sync publishes it
	_, err := q.cfg.Engine.Sync(syncer.Params{
		Mode: syncer.ModeLocalOnly,
		CompletedTransfers: []syncer.CompletedTransfer{
			{
				TokenId:   item.Token.Id(),
				StateHash: item.StateHash,
				Proof:     item.Proof,
			},
		},
	})
	if nil != err {
		q.log.Errorf("finalise %s: %s", item.Id, err)
	}
}

