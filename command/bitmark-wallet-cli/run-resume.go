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
	"github.com/bitmark-inc/walletd/syncer"
)

func runResume(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	groupId := c.String("group")
	if "" == groupId {
		return fmt.Errorf("missing --group option")
	}

	w, err := openWallet(m)
	if nil != err {
		return err
	}
	defer w.Close()

	outcome, err := w.executor().Resume(groupId)
	if nil != err {
		return err
	}

	// a resumed transfer still owes its recipient the token envelope
	var items []delivery.Item
	if nil != outcome.Transferred {
		transferred := *outcome.Transferred
		tx := transferred.Transactions[len(transferred.Transactions)-1]

		queue := delivery.NewQueue(delivery.Config{
			Peers:       w.peers,
			Engine:      w.engine,
			WorkerCount: m.config.Delivery.Workers,
			MaxAttempts: m.config.Delivery.MaxAttempts,
			SendRate:    rate.Limit(m.config.Delivery.SendRate),
			SendBurst:   m.config.Delivery.SendBurst,
		})
		queue.Enqueue(transferred, transferred.Genesis.State.String(), tx.Data.Recipient, tx.Proof)

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
		items = queue.Items()
	}

	result, err := w.engine.Sync(syncer.Params{})
	if nil != err {
		return err
	}

	report := struct {
		GroupId    string          `json:"groupId"`
		Deliveries []delivery.Item `json:"deliveries,omitempty"`
		Sync       *syncer.Result  `json:"sync"`
	}{
		GroupId:    outcome.GroupId,
		Deliveries: items,
		Sync:       result,
	}

	return printJson(m.w, report)
}
