// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background - run a set of background processes and
// shut them down as a group
package background

// Process - interface for a single background process
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// T - handle for the set of started processes
type T struct {
	shutdown chan struct{}
	finished chan struct{}
	count    int
}

// Start - start up a set of background processes
// all shared data must already be initialised by the caller
func Start(processes Processes, args interface{}) *T {

	register := &T{
		shutdown: make(chan struct{}),
		finished: make(chan struct{}, len(processes)),
		count:    len(processes),
	}

	for _, p := range processes {
		go func(p Process) {
			p.Run(args, register.shutdown)
			register.finished <- struct{}{}
		}(p)
	}
	return register
}

// Stop - stop the set of background processes and wait for them
func (t *T) Stop() {

	if nil == t {
		return
	}

	close(t.shutdown)

	for i := 0; i < t.count; i += 1 {
		<-t.finished
	}
}
