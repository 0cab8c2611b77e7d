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

package opts

import (
	"context"
	"io"

	"github.com/walteh/fileops/pkg/config"
	"github.com/walteh/fileops/pkg/log"
	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/remote"
	"github.com/walteh/fileops/pkg/state"
	"github.com/walteh/fileops/pkg/status"
	"github.com/walteh/fileops/pkg/workflow"
)

// RootOpts is what every command shares. It is filled in before a command
// runs.
type RootOpts struct {
	Config     *config.Config
	Client     remote.Client
	Store      *state.Store
	Controller *workflow.Controller
	Refresher  *state.Refresher
	Logger     *log.Logger
	Printer    *status.Printer
	Out        io.Writer

	// LogFile is closed when the process exits
	LogFile io.Closer

	// OnChange, when set, sees every session change made by Controller
	OnChange func(workflow.Snapshot)

	// Confirm replaces the interactive yes or no prompt when set
	Confirm status.ConfirmFunc
}

// Notify forwards a snapshot to OnChange
func (o *RootOpts) Notify(snap workflow.Snapshot) {
	if o.OnChange != nil {
		o.OnChange(snap)
	}
}

// Form builds an operation form seeded with the configured defaults
func (o *RootOpts) Form(kind model.Kind, source, target string) workflow.Form {
	return workflow.Form{
		Kind:                kind,
		SourcePath:          source,
		TargetPath:          target,
		CreateBackup:        o.Config.CreateBackup(),
		ValidateConsistency: o.Config.ValidateConsistency(),
	}
}

// CallContext bounds a direct backend call by the configured timeout
func (o *RootOpts) CallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := o.Config.Server.Timeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// ListFilter is the filter the background refresh uses
func (o *RootOpts) ListFilter() model.ListFilter {
	return model.ListFilter{Limit: o.Config.Refresh.PageSize}
}
