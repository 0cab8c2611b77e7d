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

package remote

import (
	"context"

	"github.com/walteh/fileops/pkg/model"
)

// Client is the primary interface for talking to the file-operations backend.
// Implementations own no state beyond in-flight request bookkeeping.
type Client interface {
	// CreateOperation allocates a new pending operation on the backend
	CreateOperation(ctx context.Context, req model.CreateRequest) (*model.Operation, error)
	// ValidateOperation asks the backend for a fresh risk and impact assessment
	ValidateOperation(ctx context.Context, id string) (*model.ValidationResult, error)
	// ExecuteOperation runs a validated operation
	ExecuteOperation(ctx context.Context, id string, req model.ExecuteRequest) (*model.Operation, error)
	// RollbackOperation restores a completed operation from its backup
	RollbackOperation(ctx context.Context, id string) (*model.Operation, error)
	// GetOperation fetches the current record for one operation
	GetOperation(ctx context.Context, id string) (*model.Operation, error)
	// ListOperations returns one filtered page of operations
	ListOperations(ctx context.Context, filter model.ListFilter) (*model.ListResult, error)
	// CleanupOldOperations removes operations older than daysOld days
	CleanupOldOperations(ctx context.Context, daysOld int) (*model.CleanupResult, error)
}
