// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keypair_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/walletd/fault"
	"github.com/bitmark-inc/walletd/keypair"
)

func TestSignAndVerify(t *testing.T) {
	k, err := keypair.Generate()
	require.NoError(t, err)
	assert.Len(t, []byte(k.PublicKey()), keypair.PublicKeySize)

	message := []byte("state transition")
	signature, err := k.Sign(message)
	require.NoError(t, err)
	assert.True(t, k.Verify(message, signature))
	assert.False(t, k.Verify([]byte("another message"), signature))
}

func TestSaveAndLoad(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "owner.private")

	k, err := keypair.Generate()
	require.NoError(t, err)
	require.NoError(t, k.SaveToFile(fileName))

	loaded, err := keypair.LoadFromFile(fileName)
	require.NoError(t, err)
	assert.Equal(t, k.PublicKey(), loaded.PublicKey())

	// a second save must not clobber the key
	err = k.SaveToFile(fileName)
	assert.ErrorIs(t, err, fault.KeyFileAlreadyExists)
}

func TestLoadRejectsTruncatedKey(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "owner.private")
	require.NoError(t, os.WriteFile(fileName, []byte("deadbeef\n"), 0600))

	_, err := keypair.LoadFromFile(fileName)
	assert.ErrorIs(t, err, fault.InvalidKeyLength)
}
