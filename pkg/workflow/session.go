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
	"sync"

	"github.com/google/uuid"
	"github.com/walteh/fileops/pkg/model"
)

// 🪜 Step is where a session is in the workflow
type Step string

const (
	StepConfiguring Step = "configuring"
	StepValidating  Step = "validating"
	StepConfirming  Step = "confirming"
	StepExecuting   Step = "executing"
	StepCompleted   Step = "completed"
)

// 📝 Form is what the user fills in before submitting
type Form struct {
	Kind                model.Kind
	SourcePath          string
	TargetPath          string
	CreateBackup        bool
	ValidateConsistency bool
}

func (f Form) request() model.CreateRequest {
	return model.CreateRequest{
		Kind:                f.Kind,
		SourcePath:          f.SourcePath,
		TargetPath:          f.TargetPath,
		CreateBackup:        f.CreateBackup,
		ValidateConsistency: f.ValidateConsistency,
	}
}

// retryAction is the call Retry re-issues
type retryAction int

const (
	retryNone retryAction = iota
	retryCreate
	retryValidate
	retryExecute
	retryRollback
	retryPoll
)

// 🧭 Session is the in-memory state of one workflow. It is never persisted
// and never shared between operations.
type Session struct {
	id string

	mu          sync.Mutex
	step        Step
	form        Form
	operation   *model.Operation
	validation  *model.ValidationResult
	validatedID string
	loading     bool
	err         *Error
	retry       retryAction
	closed      bool
}

func newSession(form Form) *Session {
	return &Session{
		id:   uuid.NewString(),
		step: StepConfiguring,
		form: form,
	}
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Snapshot is a plain copy of the session for rendering
type Snapshot struct {
	SessionID  string
	Step       Step
	Form       Form
	Operation  *model.Operation
	Validation *model.ValidationResult
	Loading    bool
	Error      *Error
	Closed     bool
	// Retryable is set when Retry would re-issue a call
	Retryable bool
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Step:      s.step,
		Form:      s.form,
		Loading:   s.loading,
		Closed:    s.closed,
	}
	if s.operation != nil {
		op := *s.operation
		snap.Operation = &op
	}
	if s.validation != nil {
		v := *s.validation
		snap.Validation = &v
	}
	if s.err != nil {
		e := *s.err
		snap.Error = &e
	}
	snap.Retryable = s.retry == retryPoll ||
		(s.retry != retryNone && s.err != nil && s.err.Kind.Retryable())
	return snap
}

// CanExecute reports whether the execute affordance should be enabled
func (snap Snapshot) CanExecute() bool {
	return !snap.Closed && !snap.Loading && snap.Step == StepConfirming &&
		snap.Validation != nil && snap.Validation.IsValid && snap.Operation != nil
}

// CanRollback reports whether the rollback affordance should be offered
func (snap Snapshot) CanRollback() bool {
	return !snap.Closed && !snap.Loading && snap.Step == StepCompleted &&
		snap.Operation != nil && snap.Operation.CanRollback()
}

// CanRetry reports whether the error slot holds a retryable failure
func (snap Snapshot) CanRetry() bool {
	return !snap.Closed && !snap.Loading && snap.Retryable
}

// CanSubmit reports whether the form may be submitted
func (snap Snapshot) CanSubmit() bool {
	return !snap.Closed && !snap.Loading && snap.Step == StepConfiguring
}

// CanCancel reports whether the session can go back to configuring
func (snap Snapshot) CanCancel() bool {
	return !snap.Closed && !snap.Loading && (snap.Step == StepValidating || snap.Step == StepConfirming)
}
