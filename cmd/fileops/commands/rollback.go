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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"gitlab.com/tozd/go/errors"
)

func NewRollbackCmd(ro *opts.RootOpts) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rollback <id>",
		Short: "Restore a completed operation from its backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			s, err := ro.Controller.Adopt(ctx, id)
			if s != nil {
				defer ro.Controller.Close(ctx, s)
			}
			if err != nil {
				return errors.Errorf("preparing operation %s: %w", id, err)
			}

			snap := s.Snapshot()
			op := snap.Operation
			if !snap.CanRollback() {
				return errors.Errorf("operation %s cannot be rolled back: status %s, backup %q", id, op.Status, op.BackupPath)
			}

			if !yes {
				ok, err := ro.Printer.Ask(fmt.Sprintf("Restore %s from %s?", op.SourcePath, op.BackupPath))
				if err != nil {
					return err
				}
				if !ok {
					ro.Logger.Warning("rollback cancelled")
					return nil
				}
			}

			if err := ro.Controller.Rollback(ctx, s); err != nil {
				return errors.Errorf("rolling back operation: %w", err)
			}
			if done := s.Snapshot().Operation; done != nil {
				ro.Logger.LogOperation(ctx, *done)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "roll back without asking for confirmation")
	return cmd
}
