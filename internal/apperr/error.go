// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

// Package apperr defines the closed set of error kinds that cross service
// boundaries in minesync, so callers can branch on failure class instead of
// parsing messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can decide whether to retry, surface
// to the user, or treat as a bug.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindIntegrityMismatch Kind = "integrity_mismatch"
	KindParse             Kind = "parse"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindStorage           Kind = "storage"
	KindPathSafety        Kind = "path_safety"
	KindP2P               Kind = "p2p"
	KindFatal             Kind = "fatal"
)

// Error is the single concrete error type used across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message context to an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
