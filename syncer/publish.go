// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncer

import (
	"fmt"

	"github.com/bitmark-inc/walletd/inventory"
	"github.com/bitmark-inc/walletd/storage"
)

// prepare - stage 9
//
// decide whether anything must be written back: only when the merged
// content differs from the remote (version and link ignored) or a
// local lead forces it.  The next version supersedes both sides and
// links back to the content the name currently points at.
func (e *Engine) prepare(s *runState) {

	uploadNeeded := s.forceWrite
	if nil != s.remote && !inventory.ContentEquals(s.local, s.remote) {
		uploadNeeded = true
	}
	if nil == s.remote && s.useTransports {
		// nothing published yet: any content at all goes up
		uploadNeeded = 0 != len(s.local.Active) ||
			0 != len(s.local.Tombstones) ||
			nil != s.local.Nametag
	}
	s.uploadNeeded = uploadNeeded

	if uploadNeeded {
		next := s.local.Metadata.Version
		if s.remoteVersion > next {
			next = s.remoteVersion
		}
		next += 1
		s.local.Metadata.Version = next
		s.local.Metadata.PreviousLink = s.remoteContent
		s.local.Metadata.Format = inventory.CurrentFormat
	}

	e.persistLocal(s)
}

// publish - stage 10
//
// upload first, repoint the name second.  An upload failure aborts
// only the write; an upload that lands without the repoint is a
// partial success and the next run will retry the publish.
func (e *Engine) publish(s *runState) {

	if !s.uploadNeeded {
		return
	}
	if s.publishBlocked {
		// consistency failure earlier in the run
		e.log.Warn("publish blocked, keeping local changes pending")
		s.result.PublishPending = true
		return
	}

	encoded, err := s.local.Encode()
	if nil != err {
		e.log.Errorf("encode snapshot: %s", err)
		s.result.issue(fmt.Sprintf("encode snapshot: %s", err))
		s.result.PublishPending = true
		return
	}

	id, err := e.cfg.Content.Upload(encoded)
	if nil != err {
		e.brk.RecordFailure()
		e.log.Errorf("upload: %s", err)
		s.result.issue(fmt.Sprintf("upload: %s", err))
		s.result.PublishPending = true
		return
	}
	s.result.LastContentId = id.String()

	err = e.cfg.Content.Publish(e.cfg.Name, id)
	if nil != err {
		// content is up but the name still points at the old version
		e.brk.RecordFailure()
		e.log.Errorf("publish %q: %s", e.cfg.Name, err)
		s.result.issue(fmt.Sprintf("publish %q: %s", e.cfg.Name, err))
		s.result.Status = StatusPartialSuccess
		s.result.PublishPending = true
		return
	}

	e.brk.RecordSuccess()
	s.result.Published = true
	storage.SaveHighWaterMark(e.cfg.Marks, e.cfg.Address, s.local.Metadata.Version)
	e.log.Infof("published version %d as %s", s.local.Metadata.Version, s.result.LastContentId)
}
