// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/storage"
)

// loadRemote - stage 2
//
// resolve the name, decode the remote snapshot and merge it; spend
// relevant collections only merge when the remote version has not
// regressed below the high-water mark
func (e *Engine) loadRemote(s *runState) {

	resolution, err := e.cfg.Content.Resolve(e.cfg.Name)
	if nil != err {
		if fault.NotFoundName == err {
			// never published: a fresh wallet, local content leads
			if 0 != len(s.local.Active) || nil != s.local.Nametag {
				s.forceWrite = true
			}
			return
		}
		// read failure is absorbed: continue on local data, but a
		// publish against an unread remote could lose data
		e.brk.RecordFailure()
		s.publishBlocked = true
		s.result.issue(fmt.Sprintf("resolve %q: %s", e.cfg.Name, err))
		e.log.Warnf("resolve %q: %s", e.cfg.Name, err)
		return
	}
	e.brk.RecordSuccess()
	s.remoteContent = resolution.Id.String()

	remote, err := inventory.Decode(resolution.Content)
	if nil != err {
		s.publishBlocked = true
		s.result.issue(fmt.Sprintf("remote snapshot undecodable: %s", err))
		e.log.Errorf("remote snapshot undecodable: %s", err)
		return
	}
	s.remote = remote
	s.remoteVersion = remote.Metadata.Version

	// anti-regression: a remote below the mark must not contribute
	// spend data and must not be overwritten
	spendRelevant := true
	if s.remoteVersion < s.highWaterMark {
		spendRelevant = false
		s.publishBlocked = true
		s.result.issue(fmt.Sprintf(
			"remote version %d below high-water mark %d",
			s.remoteVersion, s.highWaterMark))
		e.log.Warnf("anti-regression: remote %d < mark %d", s.remoteVersion, s.highWaterMark)
	} else if s.remoteVersion > s.highWaterMark {
		s.highWaterMark = s.remoteVersion
		storage.SaveHighWaterMark(e.cfg.Marks, e.cfg.Address, s.remoteVersion)
	}

	r := s.local.MergeRemote(remote, spendRelevant)
	s.result.Stats.Imported += r.Imported
	s.result.Stats.TombstonesAdded += r.Tombstones
	if 0 != len(r.NeedUpload) {
		s.forceWrite = true
	}

	// recovery: explicit depth, or an inventory that emptied out even
	// though the published history says tokens existed
	depth := 0
	if ModeRecovery == s.result.Mode {
		depth = s.params.RecoveryDepth
		if depth <= 0 || depth > e.cfg.RecoveryLimit {
			depth = e.cfg.RecoveryLimit
		}
	} else if 0 == len(s.local.Active) && "" != remote.Metadata.PreviousLink {
		depth = e.cfg.RecoveryLimit
	}
	if depth > 0 {
		e.walkHistory(s, remote.Metadata.PreviousLink, depth, spendRelevant)
	}
}

// loadCachedRemote - stage 2 while the transports are avoided
//
// a recently resolved remote may still sit in the resolution cache;
// merging it keeps a degraded run from drifting behind without a
// single transport call.  The remote was not read live, so the
// publish stage stays blocked.
func (e *Engine) loadCachedRemote(s *runState) {

	resolution, ok := e.cfg.Content.ResolveCached(e.cfg.Name)
	if !ok {
		return
	}

	remote, err := inventory.Decode(resolution.Content)
	if nil != err {
		e.log.Errorf("cached snapshot undecodable: %s", err)
		return
	}

	// anti-regression holds for cached data too
	if remote.Metadata.Version < s.highWaterMark {
		e.log.Warnf("anti-regression: cached remote %d < mark %d",
			remote.Metadata.Version, s.highWaterMark)
		return
	}

	s.remote = remote
	s.remoteVersion = remote.Metadata.Version
	s.remoteContent = resolution.Id.String()
	s.publishBlocked = true

	r := s.local.MergeRemote(remote, true)
	s.result.Stats.Imported += r.Imported
	s.result.Stats.TombstonesAdded += r.Tombstones
	if 0 != len(r.NeedUpload) {
		s.forceWrite = true
	}
	e.log.Infof("merged cached remote version %d", s.remoteVersion)
	s.result.issue(fmt.Sprintf("remote merged from cache at version %d", s.remoteVersion))
}

// walkHistory - follow predecessor links merging each snapshot
//
// bounded by depth, link cycles, missing content and network errors;
// a network error during recovery is a consistency hazard and blocks
// the publish stage
func (e *Engine) walkHistory(s *runState, link string, depth int, spendRelevant bool) {

	visited := map[string]struct{}{}
	if "" != s.remoteContent {
		visited[s.remoteContent] = struct{}{}
	}

	for step := 0; step < depth && "" != link; step += 1 {

		if _, seen := visited[link]; seen {
			s.result.issue("snapshot history contains a cycle")
			e.log.Errorf("history cycle at: %s", link)
			return
		}
		visited[link] = struct{}{}

		id, err := cid.Decode(link)
		if nil != err {
			s.result.issue(fmt.Sprintf("bad history link: %s", link))
			return
		}

		content, err := e.cfg.Content.Fetch(id)
		if nil != err {
			if fault.NotFoundContent == err {
				// history bottoms out, nothing left to merge
				return
			}
			e.brk.RecordFailure()
			s.publishBlocked = true
			s.result.issue(fmt.Sprintf("history fetch %s: %s", link, err))
			e.log.Warnf("history fetch %s: %s", link, err)
			return
		}
		e.brk.RecordSuccess()

		historical, err := inventory.Decode(content)
		if nil != err {
			s.result.issue(fmt.Sprintf("history snapshot undecodable: %s", link))
			return
		}

		r := s.local.MergeRemote(historical, spendRelevant)
		s.result.Stats.Recovered += r.Imported
		if 0 != r.Imported {
			s.forceWrite = true
		}

		link = historical.Metadata.PreviousLink
	}
}
