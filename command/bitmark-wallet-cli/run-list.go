// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"sort"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/tokenrecord"
)

// tokenListing - one token row in the listing output
type tokenListing struct {
	Id        string             `json:"id"`
	State     string             `json:"state"`
	Committed bool               `json:"committed"`
	Coins     []tokenrecord.Coin `json:"coins"`
	Transfers int                `json:"transfers"`
}

func runList(c *cli.Context) error {

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

	listing := struct {
		Active   []tokenListing           `json:"active"`
		Archived []tokenListing           `json:"archived,omitempty"`
		Sent     []inventory.SentEntry    `json:"sent,omitempty"`
		Invalid  []inventory.InvalidEntry `json:"invalid,omitempty"`
	}{
		Active: listTokens(snap.Active),
	}
	if c.Bool("all") {
		listing.Archived = listTokens(snap.Archived)
		listing.Sent = snap.Sent
		listing.Invalid = snap.Invalid
	}

	return printJson(m.w, listing)
}

// listTokens - rows for one token map, ordered by id
func listTokens(tokens map[tokenrecord.TokenId]tokenrecord.Token) []tokenListing {
	rows := make([]tokenListing, 0, len(tokens))
	for id, tok := range tokens {
		rows = append(rows, tokenListing{
			Id:        id.String(),
			State:     tok.StateHash().String(),
			Committed: tok.IsCommitted(),
			Coins:     tok.Genesis.Data.Coins,
			Transfers: len(tok.Transactions),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Id < rows[j].Id
	})
	return rows
}
