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

package remote

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🚫 APIError is a non-2xx answer from the backend
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server supplied detail, or a generic "HTTP error <code>"
	Message string
	// Malformed is set when the error body could not be decoded as JSON
	Malformed bool
}

func (e *APIError) Error() string {
	return e.Message
}

// GenericMessage is the fallback message for an error body without detail
func GenericMessage(statusCode int) string {
	return fmt.Sprintf("HTTP error %d", statusCode)
}

// 🔌 TransportError means the backend could not be reached or answered with a
// body that could not be understood
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ✋ ArgumentError means the client refused a call before sending anything,
// e.g. an empty operation id
type ArgumentError struct {
	Op  string
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// IsArgument reports whether err is a call the client refused to send
func IsArgument(err error) bool {
	var arg *ArgumentError
	return errors.As(err, &arg)
}

// IsTransport reports whether err was caused by an unreachable backend, a
// malformed response or a malformed error body
func IsTransport(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return true
	}
	var aerr *APIError
	if errors.As(err, &aerr) {
		return aerr.Malformed
	}
	return false
}

// AsAPIError extracts a well formed server rejection from err
func AsAPIError(err error) (*APIError, bool) {
	var aerr *APIError
	if errors.As(err, &aerr) && !aerr.Malformed {
		return aerr, true
	}
	return nil, false
}
