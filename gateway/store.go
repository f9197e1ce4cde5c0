// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gateway

import (
	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/walletd/contentstore"
	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/storage"
)

// Store - content addressed storage over two database pools
//
// contents holds blob bytes keyed by content id, names holds one
// mutable pointer per wallet name
type Store struct {
	log      *logger.L
	contents storage.Handle
	names    storage.Handle
}

// NewStore - create a store over existing pools
func NewStore(contents storage.Handle, names storage.Handle) *Store {
	return &Store{
		log:      logger.New("gateway-store"),
		contents: contents,
		names:    names,
	}
}

// Upload - store a blob under its derived content id
//
// idempotent: the same bytes always land under the same id
func (s *Store) Upload(content []byte) (cid.Cid, error) {
	id, err := contentstore.ComputeId(content)
	if nil != err {
		return cid.Undef, err
	}
	s.contents.Put([]byte(id.String()), content)
	s.log.Debugf("upload: %s (%d bytes)", id, len(content))
	return id, nil
}

// Fetch - read a blob by content id
func (s *Store) Fetch(id cid.Cid) ([]byte, error) {
	content := s.contents.Get([]byte(id.String()))
	if nil == content {
		return nil, fault.NotFoundContent
	}
	return content, nil
}

// Publish - point a name at a content id
func (s *Store) Publish(name string, id cid.Cid) error {
	s.names.Put([]byte(name), []byte(id.String()))
	s.log.Infof("publish: %q → %s", name, id)
	return nil
}

// Resolve - follow a name to its current content
func (s *Store) Resolve(name string) (contentstore.Resolution, error) {
	pointer := s.names.Get([]byte(name))
	if nil == pointer {
		return contentstore.Resolution{}, fault.NotFoundName
	}
	id, err := cid.Decode(string(pointer))
	if nil != err {
		return contentstore.Resolution{}, err
	}
	content := s.contents.Get(pointer)
	if nil == content {
		return contentstore.Resolution{}, fault.NotFoundContent
	}
	return contentstore.Resolution{
		Id:      id,
		Content: content,
	}, nil
}
