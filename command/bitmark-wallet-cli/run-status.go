// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/walletd/inventory"
)

func runStatus(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	w, err := openWallet(m)
	if nil != err {
		return err
	}
	defer w.Close()

	snap, err := w.snapshot()
	if nil != err {
		return err
	}

	pending, err := w.executor().PendingGroups()
	if nil != err {
		return err
	}

	nametag := ""
	if nil != snap.Nametag {
		nametag = snap.Nametag.Name
	}

	status := struct {
		Address       string           `json:"address"`
		Nametag       string           `json:"nametag,omitempty"`
		Version       uint64           `json:"version"`
		Counts        inventory.Counts `json:"counts"`
		PendingGroups []string         `json:"pendingGroups,omitempty"`
	}{
		Address:       snap.Metadata.Address,
		Nametag:       nametag,
		Version:       snap.Metadata.Version,
		Counts:        snap.Counts(),
		PendingGroups: pending,
	}

	return printJson(m.w, status)
}
