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

package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/status"
	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

const pollInterval = time.Second

type runFlags struct {
	yes     bool
	retries int
}

func NewRunCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <rename|move|delete> <source> [target]",
		Short: "Create, validate, confirm and execute an operation in one go",
		Long: `Run walks one operation through the whole workflow.
It will:
1. Create the operation and validate it
2. Show the risk assessment and ask for confirmation
3. Execute it with a backup and print the outcome

Transport failures and server refusals are retried up to --retries times.
--yes skips the question only for operations the backend does not flag as
needing an explicit confirmation.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, source, target, err := formArgs(args)
			if err != nil {
				return err
			}
			form := ro.Form(kind, source, target)
			if err := applyFormFlags(cmd, &form.CreateBackup, &form.ValidateConsistency); err != nil {
				return err
			}

			ro.OnChange = func(snap workflow.Snapshot) {
				ro.Printer.Show(status.Render(snap))
			}
			defer func() { ro.OnChange = nil }()

			s := ro.Controller.Open(ctx, form)
			defer ro.Controller.Close(ctx, s)

			r := &runner{ro: ro, session: s, flags: flags}
			return r.run(ctx, form)
		},
	}

	addFormFlags(cmd)
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "execute without asking, unless the operation needs an explicit confirmation")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "how many times to retry a call that failed in transport or was refused")
	return cmd
}

type runner struct {
	ro      *opts.RootOpts
	session *workflow.Session
	flags   *runFlags
}

func (r *runner) dispatch(ctx context.Context, intent status.Intent, form workflow.Form) error {
	err := status.Dispatch(ctx, r.ro.Controller, r.session, intent, form)
	for attempt := 0; err != nil && attempt < r.flags.retries; attempt++ {
		if !r.session.Snapshot().CanRetry() {
			break
		}
		r.ro.Logger.Warningf("retrying (%d/%d)", attempt+1, r.flags.retries)
		err = status.Dispatch(ctx, r.ro.Controller, r.session, status.IntentRetry, form)
	}
	return err
}

func (r *runner) run(ctx context.Context, form workflow.Form) error {
	if err := r.dispatch(ctx, status.IntentSubmit, form); err != nil {
		return err
	}

	ok, err := r.confirm()
	if err != nil {
		return err
	}
	if !ok {
		r.ro.Logger.Warning("operation not executed")
		return status.Dispatch(ctx, r.ro.Controller, r.session, status.IntentCancel, form)
	}

	return r.execute(ctx)
}

// confirm asks whether to execute. --yes answers for the user unless the
// validation flagged the operation as needing an explicit confirmation.
func (r *runner) confirm() (bool, error) {
	view := status.Render(r.session.Snapshot())
	if r.flags.yes && !view.NeedsConfirmation() {
		return true, nil
	}
	return r.ro.Printer.Confirm(view)
}

// execute runs the confirmed operation and waits until it settles
func (r *runner) execute(ctx context.Context) error {
	if err := r.dispatch(ctx, status.IntentExecuteConfirmed, r.session.Snapshot().Form); err != nil {
		return err
	}

	if err := r.waitForOutcome(ctx); err != nil {
		return err
	}

	snap := r.session.Snapshot()
	if snap.Step != workflow.StepCompleted {
		return errors.Errorf("operation stopped at step %s", snap.Step)
	}
	if snap.CanRollback() {
		r.ro.Logger.Infof("roll back with: fileops rollback %s", snap.Operation.ID)
	}
	return nil
}

// waitForOutcome polls while the backend still reports the operation as
// running
func (r *runner) waitForOutcome(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap := r.session.Snapshot()
		if snap.Step != workflow.StepExecuting || snap.Error != nil || !snap.CanRetry() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Errorf("waiting for operation: %w", ctx.Err())
		case <-ticker.C:
		}
		if err := r.dispatch(ctx, status.IntentRetry, snap.Form); err != nil {
			return err
		}
	}
}
