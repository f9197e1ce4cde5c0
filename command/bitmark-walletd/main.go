// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/aggregator"
	"github.com/bitmark-inc/walletd/background"
	"github.com/bitmark-inc/walletd/configuration"
	"github.com/bitmark-inc/walletd/contentstore"
	"github.com/bitmark-inc/walletd/delivery"
	"github.com/bitmark-inc/walletd/gateway"
	"github.com/bitmark-inc/walletd/keypair"
	"github.com/bitmark-inc/walletd/receiver"
	"github.com/bitmark-inc/walletd/storage"
	"github.com/bitmark-inc/walletd/syncer"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration and
	// process data needed for initial setup
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := configuration.GetConfiguration(configurationFile, nil)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// the owner key must exist before the daemon can run
	owner, err := keypair.LoadFromFile(theConfiguration.Wallet.OwnerKeyFile)
	if nil != err {
		log.Criticalf("owner key: %q error: %s", theConfiguration.Wallet.OwnerKeyFile, err)
		exitwithstatus.Message("%s: cannot load owner key: %q  error: %s\nrun: %s gen-owner-key %q",
			program, theConfiguration.Wallet.OwnerKeyFile, err, program, theConfiguration.Wallet.OwnerKeyFile)
	}

	// start the data storage
	log.Info("initialise storage")
	err = storage.Initialise(theConfiguration.Database.Name)
	if nil != err {
		log.Criticalf("storage initialise error: %s", err)
		exitwithstatus.Message("storage initialise error: %s", err)
	}
	defer storage.Finalise()

	// bind the transport contracts to the local database
	peers := gateway.NewPeers(storage.Pool.Bindings, storage.Pool.Inbox)
	content := contentstore.NewCached(gateway.NewStore(storage.Pool.Contents, storage.Pool.Names))
	anchor := aggregator.NewCached(
		gateway.NewAggregator(storage.Pool.Requests, storage.Pool.Spends, storage.Pool.Bindings), 0)

	// start the sync engine
	log.Info("initialise syncer")
	err = syncer.Initialise(syncer.Config{
		Address:       theConfiguration.Wallet.Address,
		Name:          theConfiguration.Wallet.Name,
		OwnerKey:      owner.PublicKey(),
		Snapshots:     storage.Pool.Snapshots,
		Marks:         storage.Pool.Marks,
		Locks:         storage.Pool.Locks,
		Content:       content,
		Peers:         peers,
		Aggregator:    anchor,
		LockTimeout:   time.Duration(theConfiguration.Sync.LockTimeout) * time.Second,
		RecoveryLimit: theConfiguration.Sync.RecoveryLimit,
	})
	if nil != err {
		log.Criticalf("syncer initialise error: %s", err)
		exitwithstatus.Message("syncer initialise error: %s", err)
	}
	defer syncer.Finalise()

	// start the incoming batcher
	log.Info("initialise receiver")
	err = receiver.Initialise(receiver.Config{
		Engine:        syncer.Global(),
		IdleWindow:    time.Duration(theConfiguration.Receiver.IdleWindow) * time.Second,
		MaxBatch:      theConfiguration.Receiver.MaxBatch,
		FullSyncDelay: time.Duration(theConfiguration.Receiver.FullSyncDelay) * time.Second,
	})
	if nil != err {
		log.Criticalf("receiver initialise error: %s", err)
		exitwithstatus.Message("receiver initialise error: %s", err)
	}
	defer receiver.Finalise()

	// start the outbound delivery workers
	log.Info("initialise delivery")
	err = delivery.Initialise(delivery.Config{
		Peers:       peers,
		Engine:      syncer.Global(),
		WorkerCount: theConfiguration.Delivery.Workers,
		MaxAttempts: theConfiguration.Delivery.MaxAttempts,
		SendRate:    rate.Limit(theConfiguration.Delivery.SendRate),
		SendBurst:   theConfiguration.Delivery.SendBurst,
	})
	if nil != err {
		log.Criticalf("delivery initialise error: %s", err)
		exitwithstatus.Message("delivery initialise error: %s", err)
	}
	defer delivery.Finalise()

	// the first sync brings the snapshot current before any peers
	// are served
	result, err := syncer.Sync(syncer.Params{})
	if nil != err {
		log.Criticalf("initial sync error: %s", err)
		exitwithstatus.Message("initial sync error: %s", err)
	}
	log.Infof("initial sync: %s version: %d active: %d",
		result.Status, result.Version, result.Counts.Active)

	// daemon side loops: unprompted full syncs and the peer inbox
	processes := background.Start(background.Processes{
		&syncLoop{
			interval: time.Duration(theConfiguration.Sync.Interval) * time.Second,
		},
		&inboxPoller{
			peers:     peers,
			publicKey: owner.PublicKey(),
		},
	}, nil)
	defer processes.Stop()

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
}
