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

package status

import (
	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/workflow"
)

// 🎨 RiskStyle is how prominently a risk level is shown
type RiskStyle string

const (
	RiskNeutral RiskStyle = "neutral"
	RiskWarning RiskStyle = "warning"
	RiskDanger  RiskStyle = "danger"
)

// RiskStyleFor maps a validation risk level to a display style
func RiskStyleFor(level model.RiskLevel) RiskStyle {
	switch level {
	case model.RiskHigh:
		return RiskDanger
	case model.RiskMedium:
		return RiskWarning
	default:
		return RiskNeutral
	}
}

// ✅ Actions says which affordances are enabled
type Actions struct {
	Submit   bool
	Execute  bool
	Rollback bool
	Cancel   bool
	Retry    bool
	Reset    bool
	Close    bool
}

// 🖼️ View is everything a surface needs to draw one session
type View struct {
	SessionID  string
	Step       workflow.Step
	StepLabel  string
	Form       workflow.Form
	Operation  *model.Operation
	Validation *model.ValidationResult
	Risk       RiskStyle
	Loading    bool
	Error      *workflow.Error
	Actions    Actions
}

var stepLabels = map[workflow.Step]string{
	workflow.StepConfiguring: "Configure operation",
	workflow.StepValidating:  "Validating",
	workflow.StepConfirming:  "Confirm operation",
	workflow.StepExecuting:   "Executing",
	workflow.StepCompleted:   "Completed",
}

// Render turns a session snapshot into a view. It never talks to the backend.
func Render(snap workflow.Snapshot) View {
	v := View{
		SessionID:  snap.SessionID,
		Step:       snap.Step,
		StepLabel:  stepLabels[snap.Step],
		Form:       snap.Form,
		Operation:  snap.Operation,
		Validation: snap.Validation,
		Risk:       RiskNeutral,
		Loading:    snap.Loading,
		Error:      snap.Error,
		Actions: Actions{
			Submit:   snap.CanSubmit(),
			Execute:  snap.CanExecute(),
			Rollback: snap.CanRollback(),
			Cancel:   snap.CanCancel(),
			Retry:    snap.CanRetry(),
			Reset:    !snap.Closed && !snap.Loading && (snap.Step == workflow.StepExecuting || snap.Step == workflow.StepCompleted),
			Close:    !snap.Closed,
		},
	}
	if v.StepLabel == "" {
		v.StepLabel = string(snap.Step)
	}
	if snap.Validation != nil {
		v.Risk = RiskStyleFor(snap.Validation.RiskLevel)
	}
	// the operation may still be running, nothing to reset yet
	if snap.Step == workflow.StepExecuting && snap.Error == nil && snap.Retryable {
		v.Actions.Reset = false
	}
	return v
}

// NeedsConfirmation reports whether the execute affordance should ask twice
func (v View) NeedsConfirmation() bool {
	if v.Validation == nil {
		return false
	}
	return v.Validation.RequiresConfirmation || v.Risk == RiskDanger
}
