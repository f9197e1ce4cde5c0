// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/walletd/configuration"
)

type metadata struct {
	file    string
	config  *configuration.Configuration
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	app := cli.NewApp()
	app.Name = "bitmark-wallet-cli"
	app.Usage = "inspect and operate a local wallet data directory"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "config-file, c",
			Value: "",
			Usage: "*wallet configuration `FILE`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "status",
			Usage:  "display wallet inventory counts and pending work",
			Action: runStatus,
		},
		{
			Name:      "sync",
			Usage:     "run one synchronization and display the result",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Value: "normal",
					Usage: " sync mode `MODE` [normal|local|recovery|nametag]",
				},
				cli.IntFlag{
					Name:  "depth, d",
					Value: 0,
					Usage: " history steps to walk in recovery mode `COUNT`",
				},
			},
			Action: runSync,
		},
		{
			Name:  "list",
			Usage: "list tokens held by the wallet",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "all, a",
					Usage: " include sent, invalid and archived tokens",
				},
			},
			Action: runList,
		},
		{
			Name:  "history",
			Usage: "list the published snapshot chain, newest first",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "depth, d",
					Value: 20,
					Usage: " maximum snapshots to walk `COUNT`",
				},
			},
			Action: runHistory,
		},
		{
			Name:      "transfer",
			Usage:     "transfer an amount of one coin kind to a recipient",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "receiver, r",
					Value: "",
					Usage: "*recipient name to transfer to `NAME`",
				},
				cli.Uint64Flag{
					Name:  "amount, a",
					Value: 0,
					Usage: "*amount to transfer `NUMBER`",
				},
				cli.StringFlag{
					Name:  "kind, k",
					Value: "",
					Usage: "*coin kind `KIND`",
				},
			},
			Action: runTransfer,
		},
		{
			Name:   "pending",
			Usage:  "list split groups interrupted before completion",
			Action: runPending,
		},
		{
			Name:      "resume",
			Usage:     "resume one interrupted split group",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "group, g",
					Value: "",
					Usage: "*group id to resume `GROUP`",
				},
			},
			Action: runResume,
		},
		{
			Name:  "version",
			Usage: "display bitmark-wallet-cli version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s\n", version)
				return nil
			},
		},
	}

	// read the configuration
	app.Before = func(c *cli.Context) error {

		// to suppress reading config file if certain commands
		command := c.Args().Get(0)
		if "version" == command || "help" == command || "h" == command {
			return nil
		}

		file := c.GlobalString("config-file")
		if "" == file {
			return fmt.Errorf("missing --config-file option")
		}

		if c.GlobalBool("verbose") {
			fmt.Fprintf(c.App.ErrWriter, "reading config file: %s\n", file)
		}

		config, err := configuration.GetConfiguration(file, nil)
		if nil != err {
			return err
		}

		c.App.Metadata["config"] = &metadata{
			file:    file,
			config:  config,
			verbose: c.GlobalBool("verbose"),
			e:       c.App.ErrWriter,
			w:       c.App.Writer,
		}

		return nil
	}

	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}
