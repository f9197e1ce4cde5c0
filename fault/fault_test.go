// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/bitmark-inc/walletd/fault"
)

var (
	ErrExistsOne    = fault.ExistsError("exists one")
	ErrExistsTwo    = fault.ExistsError("exists two")
	ErrInvalidOne   = fault.InvalidError("invalid one")
	ErrInvalidTwo   = fault.InvalidError("invalid two")
	ErrNotFoundOne  = fault.NotFoundError("not found one")
	ErrNotFoundTwo  = fault.NotFoundError("not found two")
	ErrProcessOne   = fault.ProcessError("process one")
	ErrProcessTwo   = fault.ProcessError("process two")
	ErrTemporaryOne = fault.TemporaryError("temporary one")
	ErrTemporaryTwo = fault.TemporaryError("temporary two")
)

// test that the various error classes can be distinguished
func TestErrorClasses(t *testing.T) {
	errorList := []struct {
		err       error
		exists    bool
		invalid   bool
		notFound  bool
		process   bool
		temporary bool
	}{
		{ErrExistsOne, true, false, false, false, false},
		{ErrExistsTwo, true, false, false, false, false},
		{ErrInvalidOne, false, true, false, false, false},
		{ErrInvalidTwo, false, true, false, false, false},
		{ErrNotFoundOne, false, false, true, false, false},
		{ErrNotFoundTwo, false, false, true, false, false},
		{ErrProcessOne, false, false, false, true, false},
		{ErrProcessTwo, false, false, false, true, false},
		{ErrTemporaryOne, false, false, false, false, true},
		{ErrTemporaryTwo, false, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrExists(err) != e.exists {
			t.Errorf("%d: expected 'exists' == %v for err = %v", i, e.exists, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrProcess(err) != e.process {
			t.Errorf("%d: expected 'process' == %v for err = %v", i, e.process, err)
		}
		if fault.IsErrTemporary(err) != e.temporary {
			t.Errorf("%d: expected 'temporary' == %v for err = %v", i, e.temporary, err)
		}
	}
}

// a wallet error carries its message through the error interface
func TestErrorMessage(t *testing.T) {
	if "content is not present" != fault.NotFoundContent.Error() {
		t.Errorf("unexpected message: %q", fault.NotFoundContent.Error())
	}
}
