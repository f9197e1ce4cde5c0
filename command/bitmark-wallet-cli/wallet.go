// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/configuration"
	"github.com/bitmark-inc/walletd/contentstore"
	"github.com/bitmark-inc/walletd/gateway"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/keypair"
	"github.com/bitmark-inc/walletd/split"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/syncer"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// wallet - one opened wallet data directory
//
// the database is held exclusively while open, so the daemon must not
// be running against the same data directory
type wallet struct {
	cfg     *configuration.Configuration
	owner   *keypair.Keypair
	peers   *gateway.Peers
	content *contentstore.Cached
	anchor  *aggregator.Cached
	engine  *syncer.Engine
}

// openWallet - load the owner key, open storage and wire the engine
func openWallet(m *metadata) (*wallet, error) {

	owner, err := keypair.LoadFromFile(m.config.Wallet.OwnerKeyFile)
	if nil != err {
		return nil, err
	}

	if err := logger.Initialise(m.config.Logging); nil != err {
		return nil, err
	}

	if err := storage.Initialise(m.config.Database.Name); nil != err {
		logger.Finalise()
		return nil, err
	}

	peers := gateway.NewPeers(storage.Pool.Bindings, storage.Pool.Inbox)
	content := contentstore.NewCached(gateway.NewStore(storage.Pool.Contents, storage.Pool.Names))
	anchor := aggregator.NewCached(
		gateway.NewAggregator(storage.Pool.Requests, storage.Pool.Spends, storage.Pool.Bindings), 0)

	engine := syncer.New(syncer.Config{
		Address:       m.config.Wallet.Address,
		Name:          m.config.Wallet.Name,
		OwnerKey:      owner.PublicKey(),
		Snapshots:     storage.Pool.Snapshots,
		Marks:         storage.Pool.Marks,
		Locks:         storage.Pool.Locks,
		Content:       content,
		Peers:         peers,
		Aggregator:    anchor,
		LockTimeout:   time.Duration(m.config.Sync.LockTimeout) * time.Second,
		RecoveryLimit: m.config.Sync.RecoveryLimit,
	})

	return &wallet{
		cfg:     m.config,
		owner:   owner,
		peers:   peers,
		content: content,
		anchor:  anchor,
		engine:  engine,
	}, nil
}

// Close - release the database and the logger
func (w *wallet) Close() {
	storage.Finalise()
	logger.Finalise()
}

// snapshot - the current local inventory, empty if never synced
func (w *wallet) snapshot() (*inventory.Snapshot, error) {
	snap, err := storage.LoadSnapshot(storage.Pool.Snapshots, w.cfg.Wallet.Address)
	if nil != err {
		return nil, err
	}
	if nil == snap {
		snap = inventory.NewSnapshot(w.cfg.Wallet.Address)
	}
	return snap, nil
}

// executor - a split executor persisting through the sync engine
func (w *wallet) executor() *split.Executor {
	return split.NewExecutor(split.Config{
		Address:        w.cfg.Wallet.Address,
		OwnerPredicate: w.cfg.Wallet.Address,
		Signer:         w.owner,
		Aggregator:     w.anchor,
		Snapshots:      storage.Pool.Snapshots,
		PersistToken: func(tok tokenrecord.Token) error {
			_, err := w.engine.Sync(syncer.Params{
				Mode:         syncer.ModeLocalOnly,
				OutboxTokens: []tokenrecord.Token{tok},
			})
			return err
		},
		Checkpoint: func() error {
			_, err := w.engine.Sync(syncer.Params{Mode: syncer.ModeLocalOnly})
			return err
		},
		RestoreSource: func(tok tokenrecord.Token) error {
			_, err := w.engine.Sync(syncer.Params{
				Mode:           syncer.ModeLocalOnly,
				IncomingTokens: []tokenrecord.Token{tok},
			})
			return err
		},
	})
}
