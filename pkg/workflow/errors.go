// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"fmt"

	"github.com/walteh/fileops/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ ErrorKind lets callers tell failures apart without parsing messages
type ErrorKind string

const (
	// KindValidationRejected means validation returned is_valid = false
	KindValidationRejected ErrorKind = "validation_rejected"
	// KindExecutionFailed means the backend reported the execution as failed
	KindExecutionFailed ErrorKind = "execution_failed"
	// KindTransport means the backend was unreachable or answered garbage
	KindTransport ErrorKind = "transport"
	// KindRejected means the backend refused the request with a non-2xx status
	KindRejected ErrorKind = "rejected"
	// KindPreconditionViolation means a client-side guard refused the action
	KindPreconditionViolation ErrorKind = "precondition_violation"
)

// Retryable reports whether re-issuing the same call may succeed. Outcomes
// the backend decided on (a rejected validation, a failed execution) and
// client-side guards are never retried.
func (k ErrorKind) Retryable() bool {
	return k == KindTransport || k == KindRejected
}

// ❌ Error is the displayable failure stored in a session's error slot
type Error struct {
	Kind    ErrorKind
	Step    Step
	Message string
	// Details holds extra lines such as individual validation errors
	Details []string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a workflow error, or "" for anything else
func KindOf(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ""
}

// ErrBusy is returned when an action is attempted while another call for the
// same session is outstanding. No request is sent.
var ErrBusy = &Error{Kind: KindPreconditionViolation, Message: "another call is still in flight"}

// ErrClosed is returned for intents on a closed session
var ErrClosed = &Error{Kind: KindPreconditionViolation, Message: "session is closed"}

func precondition(step Step, format string, args ...any) *Error {
	return &Error{
		Kind:    KindPreconditionViolation,
		Step:    step,
		Message: fmt.Sprintf(format, args...),
	}
}

// classify turns a client error into a workflow error for step
func classify(step Step, err error) *Error {
	if remote.IsArgument(err) {
		return &Error{Kind: KindPreconditionViolation, Step: step, Message: err.Error(), Err: err}
	}
	if remote.IsTransport(err) {
		msg := err.Error()
		var aerr *remote.APIError
		if errors.As(err, &aerr) {
			msg = aerr.Message
		}
		return &Error{Kind: KindTransport, Step: step, Message: msg, Err: err}
	}
	if aerr, ok := remote.AsAPIError(err); ok {
		return &Error{Kind: KindRejected, Step: step, Message: aerr.Message, Err: err}
	}
	// context deadlines and anything the client could not send
	return &Error{Kind: KindTransport, Step: step, Message: err.Error(), Err: err}
}
