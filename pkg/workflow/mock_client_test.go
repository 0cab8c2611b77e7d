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

package workflow

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/fileops/pkg/model"
)

// 🔧 mockClient is a testify mock of remote.Client
type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateOperation(ctx context.Context, req model.CreateRequest) (*model.Operation, error) {
	args := m.Called(ctx, req)
	op, _ := args.Get(0).(*model.Operation)
	return op, args.Error(1)
}

func (m *mockClient) ValidateOperation(ctx context.Context, id string) (*model.ValidationResult, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*model.ValidationResult)
	return res, args.Error(1)
}

func (m *mockClient) ExecuteOperation(ctx context.Context, id string, req model.ExecuteRequest) (*model.Operation, error) {
	args := m.Called(ctx, id, req)
	op, _ := args.Get(0).(*model.Operation)
	return op, args.Error(1)
}

func (m *mockClient) RollbackOperation(ctx context.Context, id string) (*model.Operation, error) {
	args := m.Called(ctx, id)
	op, _ := args.Get(0).(*model.Operation)
	return op, args.Error(1)
}

func (m *mockClient) GetOperation(ctx context.Context, id string) (*model.Operation, error) {
	args := m.Called(ctx, id)
	op, _ := args.Get(0).(*model.Operation)
	return op, args.Error(1)
}

func (m *mockClient) ListOperations(ctx context.Context, filter model.ListFilter) (*model.ListResult, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).(*model.ListResult)
	return res, args.Error(1)
}

func (m *mockClient) CleanupOldOperations(ctx context.Context, daysOld int) (*model.CleanupResult, error) {
	args := m.Called(ctx, daysOld)
	res, _ := args.Get(0).(*model.CleanupResult)
	return res, args.Error(1)
}
