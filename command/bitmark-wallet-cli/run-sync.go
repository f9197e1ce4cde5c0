// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/walletd/syncer"
)

func runSync(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	mode := syncer.ModeNormal
	switch c.String("mode") {
	case "normal", "":
		mode = syncer.ModeNormal
	case "local":
		mode = syncer.ModeLocalOnly
	case "recovery":
		mode = syncer.ModeRecovery
	case "nametag":
		mode = syncer.ModeNametag
	default:
		return fmt.Errorf("mode: %q can only be normal/local/recovery/nametag", c.String("mode"))
	}

	depth := c.Int("depth")
	if syncer.ModeRecovery == mode && depth <= 0 {
		return fmt.Errorf("recovery mode requires a positive --depth")
	}

	w, err := openWallet(m)
	if nil != err {
		return err
	}
	defer w.Close()

	result, err := w.engine.Sync(syncer.Params{
		Mode:          mode,
		RecoveryDepth: depth,
	})
	if nil != err {
		return err
	}

	return printJson(m.w, result)
}
