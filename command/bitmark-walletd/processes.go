// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/gateway"
	"github.com/bitmark-inc/walletd/receiver"
	"github.com/bitmark-inc/walletd/syncer"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// how often the peer inbox is checked for new payloads
const inboxPollInterval = 2 * time.Second

// syncLoop - unprompted full syncs on a fixed interval
type syncLoop struct {
	log      *logger.L
	interval time.Duration
}

func (s *syncLoop) Run(args interface{}, shutdown <-chan struct{}) {
	s.log = logger.New("sync-loop")

	timer := time.NewTicker(s.interval)
	defer timer.Stop()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-timer.C:
			result, err := syncer.Sync(syncer.Params{})
			if nil != err {
				s.log.Errorf("sync: %s", err)
				continue loop
			}
			s.log.Infof("sync: %s version: %d", result.Status, result.Version)
		}
	}
}

// inboxPoller - drain the peer mailbox into the receiver
type inboxPoller struct {
	log       *logger.L
	peers     *gateway.Peers
	publicKey tokenrecord.HexBytes
}

func (p *inboxPoller) Run(args interface{}, shutdown <-chan struct{}) {
	p.log = logger.New("inbox")

	timer := time.NewTicker(inboxPollInterval)
	defer timer.Stop()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-timer.C:
			payloads, err := p.peers.Drain(p.publicKey)
			if nil != err {
				p.log.Errorf("drain: %s", err)
				continue loop
			}
			for _, payload := range payloads {
				if err := receiver.Global().ReceiveMessage(payload); nil != err {
					p.log.Warnf("undecodable peer message dropped: %s", err)
				}
			}
		}
	}
}
