// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package leadership holds the authorization contract for operations
// that only the elected singleton writer of an application may
// perform, most notably writes to application-scoped relation data.
package leadership

import (
	"os"

	"github.com/juju/errors"
)

// ErrNotLeader indicates that an operation gated on leadership was
// attempted by a unit that does not hold leadership. Callers are
// expected to check leadership before invoking gated operations, so
// seeing this error generally indicates a programming error at the
// call site.
var ErrNotLeader = errors.New("not currently leader")

// Token represents a unit's ability to perform leader-only
// operations. A Token is a capability: holding one is not proof of
// leadership, Check must be consulted at the point of use.
type Token interface {
	// Check returns nil if the unit holds leadership at the time
	// of the call, and ErrNotLeader otherwise.
	Check() error
}

// TokenFunc adapts a function to the Token interface.
type TokenFunc func() error

// Check is part of the Token interface.
func (f TokenFunc) Check() error {
	return f()
}

// StaticToken returns a Token whose Check result never changes. It
// exists so that tests and single-unit deployments can express
// leadership without a live election.
func StaticToken(leader bool) Token {
	return TokenFunc(func() error {
		if !leader {
			return ErrNotLeader
		}
		return nil
	})
}

// FileToken returns a Token backed by the presence of a sentinel
// file. The external election mechanism creates the file while this
// unit holds leadership and removes it on revocation, so each Check
// observes the current holder.
func FileToken(path string) Token {
	return TokenFunc(func() error {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return ErrNotLeader
		} else if err != nil {
			return errors.Trace(err)
		}
		return nil
	})
}
