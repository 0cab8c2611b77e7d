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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/log"
	"github.com/walteh/fileops/pkg/model"
)

func NewWatchCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep listing operations every refresh.interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ro.Refresher.OnRefresh = func(ctx context.Context, ops []model.Operation, total int) {
				ro.Logger.StartBatch(ctx, log.Batch{Title: time.Now().Format(time.TimeOnly), Total: total})
				for _, op := range ops {
					ro.Logger.LogOperation(ctx, op)
				}
				ro.Logger.EndBatch(ctx)
			}

			if err := ro.Refresher.ForceRefresh(ctx); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("initial refresh failed")
			}

			ro.Logger.Infof("refreshing every %s, interrupt to stop", ro.Config.Refresh.Every())
			return ro.Refresher.Run(ctx)
		},
	}

	return cmd
}
