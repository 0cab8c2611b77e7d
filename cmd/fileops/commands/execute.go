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
	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/status"
	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

func NewExecuteCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "execute <id>",
		Short: "Validate and then execute an existing operation",
		Long: `Execute runs an operation created earlier.
It will:
1. Fetch the operation and check it against the protected paths
2. Validate it again; an invalid operation is never executed
3. Ask for confirmation unless --yes is given and the operation is not high risk
4. Execute it and wait for the outcome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			ro.OnChange = func(snap workflow.Snapshot) {
				ro.Printer.Show(status.Render(snap))
			}
			defer func() { ro.OnChange = nil }()

			s, err := ro.Controller.Adopt(ctx, id)
			if s != nil {
				defer ro.Controller.Close(ctx, s)
			}
			if err != nil {
				return errors.Errorf("preparing operation %s: %w", id, err)
			}
			if snap := s.Snapshot(); !snap.CanExecute() {
				return errors.Errorf("operation %s cannot be executed from step %s", id, snap.Step)
			}

			r := &runner{ro: ro, session: s, flags: flags}
			ok, err := r.confirm()
			if err != nil {
				return err
			}
			if !ok {
				ro.Logger.Warning("execution cancelled")
				return nil
			}
			return r.execute(ctx)
		},
	}

	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "execute without asking, unless the operation needs an explicit confirmation")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "how many times to retry a call that failed in transport or was refused")
	return cmd
}
