// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/bitmark-inc/exitwithstatus"

	"github.com/bitmark-inc/walletd/keypair"
)

const ownerPrivateKeyFilename = "owner.private"

// setup command handler
//
// commands that run to create the owner key file; these commands
// cannot access any internal database or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-owner-key", "owner":
		privateKeyFilename := getFilenameWithDirectory(arguments, ownerPrivateKeyFilename)

		owner, err := keypair.Generate()
		if nil != err {
			fmt.Printf("generate owner key: %q error: %s\n", privateKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		if err := owner.SaveToFile(privateKeyFilename); nil != err {
			fmt.Printf("generate owner key: %q error: %s\n", privateKeyFilename, err)
			exitwithstatus.Exit(1)
		}

		fmt.Printf("generated owner key: %q\n", privateKeyFilename)
		fmt.Printf("public key: %s\n", hex.EncodeToString(owner.PublicKey()))

	case "start", "run":
		return false // continue processing

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                 (h)      - display this message\n\n")
		fmt.Printf("  version              (v)      - display version string\n\n")

		fmt.Printf("  gen-owner-key [DIR]  (owner)  - create the signing key in: %q\n", "DIR/"+ownerPrivateKeyFilename)
		fmt.Printf("\n")

		fmt.Printf("  start                (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                  for convenience when passing script arguments\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// get the working directory; if not set in the arguments
// it's set to the current directory
func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}
