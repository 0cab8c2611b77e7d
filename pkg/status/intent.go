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
	"context"

	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// 👆 Intent is a user action on the surface
type Intent string

const (
	IntentSubmit           Intent = "submit"
	IntentExecuteConfirmed Intent = "executeConfirmed"
	IntentRollback         Intent = "rollback"
	IntentCancel           Intent = "cancel"
	IntentClose            Intent = "close"
	IntentRetry            Intent = "retry"
	IntentReset            Intent = "reset"
)

// 🎮 Driver is the controller surface intents are routed to
type Driver interface {
	Submit(ctx context.Context, s *workflow.Session, form workflow.Form) error
	Execute(ctx context.Context, s *workflow.Session) error
	Rollback(ctx context.Context, s *workflow.Session) error
	Cancel(ctx context.Context, s *workflow.Session) error
	Retry(ctx context.Context, s *workflow.Session) error
	Reset(ctx context.Context, s *workflow.Session) error
	Close(ctx context.Context, s *workflow.Session)
}

var _ Driver = (*workflow.Controller)(nil)

// Dispatch routes an intent to the driver. Form is only read for submit.
func Dispatch(ctx context.Context, d Driver, s *workflow.Session, intent Intent, form workflow.Form) error {
	switch intent {
	case IntentSubmit:
		return d.Submit(ctx, s, form)
	case IntentExecuteConfirmed:
		return d.Execute(ctx, s)
	case IntentRollback:
		return d.Rollback(ctx, s)
	case IntentCancel:
		return d.Cancel(ctx, s)
	case IntentRetry:
		return d.Retry(ctx, s)
	case IntentReset:
		return d.Reset(ctx, s)
	case IntentClose:
		d.Close(ctx, s)
		return nil
	default:
		return errors.Errorf("unknown intent %q", intent)
	}
}
