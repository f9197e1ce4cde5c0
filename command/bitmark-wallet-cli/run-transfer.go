// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/walletd/delivery"
	"github.com/bitmark-inc/walletd/split"
	"github.com/bitmark-inc/walletd/syncer"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// how long the one-shot command waits for its deliveries to settle
const deliveryWait = 30 * time.Second

func runTransfer(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	receiver := c.String("receiver")
	if "" == receiver {
		return fmt.Errorf("missing --receiver option")
	}
	amount := tokenrecord.Amount(c.Uint64("amount"))
	if 0 == amount {
		return fmt.Errorf("missing --amount option")
	}
	kind := tokenrecord.CoinKind(c.String("kind"))
	if "" == kind {
		return fmt.Errorf("missing --kind option")
	}

	w, err := openWallet(m)
	if nil != err {
		return err
	}
	defer w.Close()

	snap, err := w.snapshot()
	if nil != err {
		return err
	}

	held := make([]tokenrecord.Token, 0, len(snap.Active))
	for _, tok := range snap.Active {
		if tok.IsCommitted() {
			held = append(held, tok)
		}
	}

	plan, err := split.BuildPlan(held, amount, kind)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "plan: %d whole tokens, split: %v\n",
			len(plan.Direct), nil != plan.Split)
	}

	x := w.executor()
	queue := delivery.NewQueue(delivery.Config{
		Peers:       w.peers,
		Engine:      w.engine,
		WorkerCount: m.config.Delivery.Workers,
		MaxAttempts: m.config.Delivery.MaxAttempts,
		SendRate:    rate.Limit(m.config.Delivery.SendRate),
		SendBurst:   m.config.Delivery.SendBurst,
	})

	// whole tokens spend their current state directly
	for _, tok := range plan.Direct {
		spentState := tok.StateHash().String()
		transferred, err := x.TransferDirect(tok, receiver)
		if nil != err {
			return err
		}
		tx := transferred.Transactions[len(transferred.Transactions)-1]
		queue.Enqueue(transferred, spentState, receiver, tx.Proof)
	}

	// the remainder needs one token split
	groupId := ""
	if nil != plan.Split {
		outcome, err := x.Execute(plan.Split, plan.Kind, receiver)
		if nil != err {
			return err
		}
		groupId = outcome.GroupId
		transferred := *outcome.Transferred
		tx := transferred.Transactions[len(transferred.Transactions)-1]
		queue.Enqueue(transferred, transferred.Genesis.State.String(), receiver, tx.Proof)
	}

	// drain the queue, then publish the spends
	processes := queue.Start()
	deadline := time.Now().Add(deliveryWait)
loop:
	for {
		pending := 0
		for _, item := range queue.Items() {
			if delivery.StatusPending == item.Status {
				pending += 1
			}
		}
		if 0 == pending || time.Now().After(deadline) {
			break loop
		}
		time.Sleep(100 * time.Millisecond)
	}
	processes.Stop()

	result, err := w.engine.Sync(syncer.Params{})
	if nil != err {
		return err
	}

	report := struct {
		Receiver   string               `json:"receiver"`
		Amount     tokenrecord.Amount   `json:"amount"`
		Kind       tokenrecord.CoinKind `json:"kind"`
		GroupId    string               `json:"groupId,omitempty"`
		Deliveries []delivery.Item      `json:"deliveries"`
		Sync       *syncer.Result       `json:"sync"`
	}{
		Receiver:   receiver,
		Amount:     amount,
		Kind:       kind,
		GroupId:    groupId,
		Deliveries: queue.Items(),
		Sync:       result,
	}

	return printJson(m.w, report)
}
