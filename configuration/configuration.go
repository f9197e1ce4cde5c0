// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
)

// basic defaults (directories and files are relative to the "data_directory" from the configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultOwnerKeyFile = "owner.private"

	defaultLevelDBDirectory = "data"
	defaultDatabase         = "wallet"

	defaultLogDirectory = "log"
	defaultLogFile      = "walletd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultSyncInterval  = 10 * 60 // seconds between unprompted full syncs
	defaultLockTimeout   = 30      // seconds an advisory sync lock may be held
	defaultRecoveryLimit = 50      // maximum snapshot history depth on recovery

	defaultDeliveryWorkers  = 4
	defaultDeliveryAttempts = 6
	defaultDeliveryRate     = 5.0 // sends per second
	defaultDeliveryBurst    = 5

	defaultReceiverIdleWindow = 2  // seconds of quiet before a batch flush
	defaultReceiverMaxBatch   = 50 // tokens per forced flush
	defaultReceiverFullDelay  = 10 // seconds from a flush to the follow up full sync
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// DatabaseType - where the wallet database lives
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// WalletType - the identity this daemon synchronises
type WalletType struct {
	Address      string `gluamapper:"address" json:"address"`
	Name         string `gluamapper:"name" json:"name"`
	OwnerKeyFile string `gluamapper:"owner_key_file" json:"owner_key_file"`
}

// SyncType - sync engine tuning, durations in seconds
type SyncType struct {
	Interval      int `gluamapper:"interval" json:"interval"`
	LockTimeout   int `gluamapper:"lock_timeout" json:"lock_timeout"`
	RecoveryLimit int `gluamapper:"recovery_limit" json:"recovery_limit"`
}

// DeliveryType - outbound delivery queue tuning
type DeliveryType struct {
	Workers     int     `gluamapper:"workers" json:"workers"`
	MaxAttempts int     `gluamapper:"max_attempts" json:"max_attempts"`
	SendRate    float64 `gluamapper:"send_rate" json:"send_rate"`
	SendBurst   int     `gluamapper:"send_burst" json:"send_burst"`
}

// ReceiverType - incoming batch tuning, durations in seconds
type ReceiverType struct {
	IdleWindow    int `gluamapper:"idle_window" json:"idle_window"`
	MaxBatch      int `gluamapper:"max_batch" json:"max_batch"`
	FullSyncDelay int `gluamapper:"full_sync_delay" json:"full_sync_delay"`
}

// Configuration - the full walletd configuration
type Configuration struct {
	DataDirectory string `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string `gluamapper:"pidfile" json:"pidfile"`

	Wallet   WalletType   `gluamapper:"wallet" json:"wallet"`
	Database DatabaseType `gluamapper:"database" json:"database"`

	Sync     SyncType     `gluamapper:"sync" json:"sync"`
	Delivery DeliveryType `gluamapper:"delivery" json:"delivery"`
	Receiver ReceiverType `gluamapper:"receiver" json:"receiver"`

	Logging logger.Configuration `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read, decode and verify the configuration
func GetConfiguration(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Wallet: WalletType{
			OwnerKeyFile: defaultOwnerKeyFile,
		},

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultDatabase,
		},

		Sync: SyncType{
			Interval:      defaultSyncInterval,
			LockTimeout:   defaultLockTimeout,
			RecoveryLimit: defaultRecoveryLimit,
		},

		Delivery: DeliveryType{
			Workers:     defaultDeliveryWorkers,
			MaxAttempts: defaultDeliveryAttempts,
			SendRate:    defaultDeliveryRate,
			SendBurst:   defaultDeliveryBurst,
		},

		Receiver: ReceiverType{
			IdleWindow:    defaultReceiverIdleWindow,
			MaxBatch:      defaultReceiverMaxBatch,
			FullSyncDelay: defaultReceiverFullDelay,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	if "" == options.Wallet.Address {
		return nil, fmt.Errorf("wallet.address cannot be blank")
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Wallet.OwnerKeyFile,
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = ensureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = ensureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names i.e. must
	// not contain a path separator, then add the correct directory
	// prefix, file item is first and corresponding directory is
	// second (or nil if no prefix can be added)
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			if nil != f[1] {
				*f[0] = ensureAbsolute(*f[1], *f[0])
			}
		default:
			return nil, fmt.Errorf("files: %q is not a plain name", *f[0])
		}
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		*d = ensureAbsolute(options.DataDirectory, *d)
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	return options, nil
}

// ensure the path is absolute
// if not, prepend the directory to make an absolute path
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
