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
	"gitlab.com/tozd/go/errors"
)

const defaultCleanupDays = 30

func NewCleanupCmd(ro *opts.RootOpts) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove finished operations older than --days",
		Long: `Cleanup asks the backend to drop old operation records.
It will:
1. Remove operations older than --days on the backend
2. Re-list operations so the local view matches the backend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if days <= 0 {
				return errors.Errorf("--days must be positive, got %d", days)
			}

			res, err := ro.Controller.Cleanup(ctx, days)
			if err != nil {
				return errors.Errorf("cleaning up operations: %w", err)
			}

			ro.Logger.Successf("cleaned up %d operations older than %d days", res.CleanedCount, days)
			ro.Logger.Infof("%d operations remain", ro.Store.Total())
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultCleanupDays, "age in days after which operations are removed")
	return cmd
}
