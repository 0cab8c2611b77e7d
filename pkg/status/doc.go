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

/*
Package status is the presentation surface of a workflow session.

🎯 Purpose:
- Renders a session snapshot into a View: step, operation, validation,
  risk style, loading flag, error slot and enabled actions
- Routes user intents (submit, executeConfirmed, rollback, cancel, close)
  onto the controller
- Prints views on a terminal and asks for confirmation

🔄 Flow:
1. The controller notifies with a workflow.Snapshot
2. Render builds a View from it without touching the backend
3. A Printer shows the view; a confirmed execute goes back through Dispatch

🤝 Interfaces:
- Driver: what Dispatch needs from the controller
- Formatter: short human messages for operations, validations and errors

🔍 Example:

	ctrl, _ := workflow.New(client, store, workflow.Options{
		OnChange: func(snap workflow.Snapshot) { printer.Show(status.Render(snap)) },
	})
	s := ctrl.Open(ctx, form)
	if err := status.Dispatch(ctx, ctrl, s, status.IntentSubmit, form); err != nil {
		return err
	}
	view := status.Render(s.Snapshot())
	if ok, _ := printer.Confirm(view); ok {
		return status.Dispatch(ctx, ctrl, s, status.IntentExecuteConfirmed, form)
	}
*/
package status
