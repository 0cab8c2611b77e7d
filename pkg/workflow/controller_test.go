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
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/remote"
	"github.com/walteh/fileops/pkg/state"
	"gitlab.com/tozd/go/errors"
)

func setup(t *testing.T, opts Options) (context.Context, *mockClient, *state.Store, *Controller) {
	t.Helper()
	ctx := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger().WithContext(context.Background())
	client := &mockClient{}
	store := state.New()
	c, err := New(client, store, opts)
	require.NoError(t, err, "creating controller should succeed")
	return ctx, client, store, c
}

func renameForm() Form {
	return Form{
		Kind:         model.KindRename,
		SourcePath:   "/lib/A.cbz",
		TargetPath:   "/lib/B.cbz",
		CreateBackup: true,
	}
}

func deleteForm() Form {
	return Form{
		Kind:         model.KindDelete,
		SourcePath:   "/lib/A.cbz",
		CreateBackup: true,
	}
}

func opFor(id string, form Form, status model.Status) *model.Operation {
	return &model.Operation{
		ID:         id,
		Kind:       form.Kind,
		SourcePath: form.SourcePath,
		TargetPath: form.TargetPath,
		Status:     status,
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func completedOp(id string, form Form, backup string) *model.Operation {
	op := opFor(id, form, model.StatusCompleted)
	op.BackupPath = backup
	return op
}

var confirmed = mock.MatchedBy(func(req model.ExecuteRequest) bool {
	return req.Confirmed && req.ConfirmationMessage != ""
})

func transportErr() error {
	return errors.Errorf("executing operation op-1: %w", &remote.TransportError{
		Method: "POST",
		Path:   "/file-operations/op-1/execute",
		Err:    errors.New("dial tcp: connection refused"),
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, state.New(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client is required")

	_, err = New(&mockClient{}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is required")

	_, err = New(&mockClient{}, state.New(), Options{ProtectedPaths: []string{"/lib/[unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid protected path pattern")
}

func TestRenameHappyPathWithRollback(t *testing.T) {
	ctx, client, store, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{
		IsValid:   true,
		RiskLevel: model.RiskLow,
		Warnings:  []string{},
		Errors:    []string{},
	}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(completedOp("op-1", form, "/backups/A.cbz.bak"), nil).Once()

	s := c.Open(ctx, Form{})
	assert.Equal(t, StepConfiguring, s.Snapshot().Step)

	require.NoError(t, c.Submit(ctx, s, form), "Submit should succeed")
	snap := s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step)
	assert.True(t, snap.CanExecute(), "execute should be enabled after a valid validation")
	assert.False(t, snap.Loading)

	require.NoError(t, c.Execute(ctx, s), "Execute should succeed")
	snap = s.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	assert.True(t, snap.CanRollback(), "rollback should be enabled")
	assert.Nil(t, snap.Error)

	stored, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, "/backups/A.cbz.bak", stored.BackupPath)

	rolledBack := completedOp("op-1", form, "/backups/A.cbz.bak")
	rolledBack.Status = model.StatusRolledBack
	client.On("RollbackOperation", mock.Anything, "op-1").Return(rolledBack, nil).Once()

	require.NoError(t, c.Rollback(ctx, s), "Rollback should succeed")
	snap = s.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step, "rollback should stay on the completion screen")
	assert.Equal(t, model.StatusRolledBack, snap.Operation.Status)
	assert.False(t, snap.CanRollback(), "rollback should not be offered twice")

	err := c.Rollback(ctx, s)
	require.Error(t, err, "rolling back a rolled back operation should fail")
	assert.Equal(t, KindPreconditionViolation, KindOf(err))

	stored, _ = store.Get("op-1")
	assert.Equal(t, model.StatusRolledBack, stored.Status)
	client.AssertExpectations(t)
}

func TestHighRiskDeleteWaitsForConfirmation(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := deleteForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{
		IsValid:              true,
		RiskLevel:            model.RiskHigh,
		RequiresConfirmation: true,
	}, nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	snap := s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step, "session should wait for the user")
	require.NotNil(t, snap.Validation)
	assert.Equal(t, model.RiskHigh, snap.Validation.RiskLevel)
	assert.True(t, snap.Validation.RequiresConfirmation)
	assert.Empty(t, snap.Form.TargetPath)
	client.AssertNotCalled(t, "ExecuteOperation", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidationRejectedReturnsToConfiguring(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{
		IsValid: false,
		Errors:  []string{"Target already exists"},
	}, nil).Once()

	s := c.Open(ctx, Form{})
	err := c.Submit(ctx, s, form)
	require.Error(t, err)
	assert.Equal(t, KindValidationRejected, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepConfiguring, snap.Step)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Target already exists", snap.Error.Message, "error should be shown verbatim")
	assert.Equal(t, []string{"Target already exists"}, snap.Error.Details)
	assert.False(t, snap.CanExecute())
	assert.False(t, snap.CanRetry(), "a rejection is not retried, it is resubmitted")

	err = c.Execute(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))
	client.AssertNotCalled(t, "ExecuteOperation", mock.Anything, mock.Anything, mock.Anything)

	// resubmitting creates a fresh operation
	fixed := form
	fixed.TargetPath = "/lib/C.cbz"
	client.On("CreateOperation", mock.Anything, fixed.request()).Return(opFor("op-2", fixed, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-2").Return(&model.ValidationResult{IsValid: true, RiskLevel: model.RiskLow}, nil).Once()

	require.NoError(t, c.Submit(ctx, s, fixed))
	snap = s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step)
	assert.Equal(t, "op-2", snap.Operation.ID)
	assert.Nil(t, snap.Error, "a successful resubmit clears the error slot")
	client.AssertExpectations(t)
}

func TestExecuteTransportFailureIsRetryable(t *testing.T) {
	ctx, client, store, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true, RiskLevel: model.RiskMedium}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(nil, transportErr()).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	err := c.Execute(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step, "session should stay on confirming")
	assert.False(t, snap.Loading, "loading should be cleared after an error")
	require.NotNil(t, snap.Error)
	assert.Equal(t, StepConfirming, snap.Error.Step)
	assert.True(t, snap.CanRetry())

	stored, _ := store.Get("op-1")
	assert.Equal(t, model.StatusPending, stored.Status, "a failed call should not touch the store")

	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(completedOp("op-1", form, "/backups/A.cbz.bak"), nil).Once()
	require.NoError(t, c.Retry(ctx, s), "Retry should succeed")

	assert.Equal(t, StepCompleted, s.Snapshot().Step)
	client.AssertNumberOfCalls(t, "ExecuteOperation", 2)
	client.AssertExpectations(t)
}

func TestExecuteRejectedByServer(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true, RiskLevel: model.RiskHigh}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(nil, errors.Errorf("executing: %w", &remote.APIError{StatusCode: 400, Message: "confirmation required"})).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	err := c.Execute(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindRejected, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step)
	assert.Equal(t, "confirmation required", snap.Error.Message)
	assert.True(t, snap.CanRetry(), "a server refusal leaves the step retryable")
	assert.True(t, snap.CanExecute(), "the user may try executing again")
}

func TestValidateRejectedByServerRetriesSameOperation(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(nil, errors.Errorf("validating: %w", &remote.APIError{StatusCode: 503, Message: "validator busy"})).Once()

	s := c.Open(ctx, Form{})
	err := c.Submit(ctx, s, form)
	require.Error(t, err)
	assert.Equal(t, KindRejected, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepValidating, snap.Step, "session should stay on validating")
	assert.False(t, snap.Loading)
	assert.Equal(t, "validator busy", snap.Error.Message)
	assert.True(t, snap.CanRetry(), "validation can be asked for again")

	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true, RiskLevel: model.RiskLow}, nil).Once()
	require.NoError(t, c.Retry(ctx, s), "Retry should validate again")

	snap = s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step)
	assert.Equal(t, "op-1", snap.Operation.ID, "the same operation should be validated")
	assert.Nil(t, snap.Error)
	client.AssertNumberOfCalls(t, "CreateOperation", 1)
	client.AssertNumberOfCalls(t, "ValidateOperation", 2)
	client.AssertExpectations(t)
}

func TestArgumentErrorsAreNotRetried(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	client.On("CleanupOldOperations", mock.Anything, -1).Return(nil, &remote.ArgumentError{Op: "cleanup operations", Err: errors.New("days old must not be negative: -1")}).Once()

	_, err := c.Cleanup(ctx, -1)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))
	assert.False(t, KindOf(err).Retryable())
	client.AssertNotCalled(t, "ListOperations", mock.Anything, mock.Anything)
}

func TestExecutionFailed(t *testing.T) {
	ctx, client, store, c := setup(t, Options{})
	form := renameForm()

	failed := opFor("op-1", form, model.StatusFailed)
	failed.ErrorMessage = "disk full"

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(failed, nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	err := c.Execute(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindExecutionFailed, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepExecuting, snap.Step)
	assert.Equal(t, "disk full", snap.Error.Message)
	assert.False(t, snap.CanRollback())
	assert.False(t, snap.CanExecute(), "a failed operation is never executed again")

	stored, ok := store.Get("op-1")
	require.True(t, ok, "failed operation should stay queryable")
	assert.Equal(t, model.StatusFailed, stored.Status)

	require.NoError(t, c.Reset(ctx, s))
	snap = s.Snapshot()
	assert.Equal(t, StepConfiguring, snap.Step)
	assert.Equal(t, form, snap.Form, "reset should keep the form")
	assert.Nil(t, snap.Error)
}

func TestValidateTransportFailureRetriesSameOperation(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(nil, transportErr()).Once()

	s := c.Open(ctx, Form{})
	err := c.Submit(ctx, s, form)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))

	snap := s.Snapshot()
	assert.Equal(t, StepValidating, snap.Step)
	assert.True(t, snap.CanRetry())
	assert.True(t, snap.CanCancel())

	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	require.NoError(t, c.Retry(ctx, s))

	assert.Equal(t, StepConfirming, s.Snapshot().Step)
	client.AssertNumberOfCalls(t, "CreateOperation", 1)
	client.AssertExpectations(t)
}

func TestCreateTransportFailureRetriesCreate(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(nil, transportErr()).Once()

	s := c.Open(ctx, Form{})
	err := c.Submit(ctx, s, form)
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, StepConfiguring, snap.Step)
	assert.True(t, snap.CanRetry())

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	require.NoError(t, c.Retry(ctx, s))
	assert.Equal(t, StepConfirming, s.Snapshot().Step)
	client.AssertExpectations(t)
}

func TestFormGuards(t *testing.T) {
	tests := []struct {
		name        string
		form        Form
		errContains string
	}{
		{name: "missing_source", form: Form{Kind: model.KindDelete}, errContains: "source path is required"},
		{name: "move_without_target", form: Form{Kind: model.KindMove, SourcePath: "/lib/A.cbz"}, errContains: "target path is required"},
		{name: "delete_with_target", form: Form{Kind: model.KindDelete, SourcePath: "/lib/A.cbz", TargetPath: "/lib/B.cbz"}, errContains: "must be empty for delete"},
		{name: "protected_source", form: Form{Kind: model.KindDelete, SourcePath: "/lib/protected/A.cbz"}, errContains: "is protected"},
		{name: "protected_target", form: Form{Kind: model.KindMove, SourcePath: "/lib/A.cbz", TargetPath: "/system/A.cbz"}, errContains: "is protected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, client, _, c := setup(t, Options{ProtectedPaths: []string{"/lib/protected/**", "/system/*"}})
			s := c.Open(ctx, Form{})

			err := c.Submit(ctx, s, tt.form)
			require.Error(t, err)
			assert.Equal(t, KindPreconditionViolation, KindOf(err))
			assert.Contains(t, err.Error(), tt.errContains)

			snap := s.Snapshot()
			assert.Equal(t, StepConfiguring, snap.Step)
			require.NotNil(t, snap.Error, "guard failure should fill the error slot")
			client.AssertNotCalled(t, "CreateOperation", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteRequiresValidation(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	s := c.Open(ctx, renameForm())

	err := c.Execute(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))

	err = c.Rollback(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))

	err = c.Retry(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))

	client.AssertNotCalled(t, "ExecuteOperation", mock.Anything, mock.Anything, mock.Anything)
}

func TestRollbackWithoutBackup(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()
	form.CreateBackup = false

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(completedOp("op-1", form, ""), nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))
	require.NoError(t, c.Execute(ctx, s))

	snap := s.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	assert.False(t, snap.CanRollback(), "rollback needs a backup")

	err := c.Rollback(ctx, s)
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))
	client.AssertNotCalled(t, "RollbackOperation", mock.Anything, mock.Anything)
}

func TestSecondExecuteWhileInFlightIsBlocked(t *testing.T) {
	ctx, client, store, c := setup(t, Options{})
	form := renameForm()

	started := make(chan struct{})
	release := make(chan struct{})

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return(completedOp("op-1", form, "/backups/A.cbz.bak"), nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Execute(ctx, s))
	}()

	<-started
	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.Equal(t, StepExecuting, snap.Step)
	assert.False(t, snap.CanExecute(), "execute should be disabled while loading")
	assert.True(t, store.Busy(), "store should see the call in flight")

	assert.ErrorIs(t, c.Execute(ctx, s), ErrBusy)
	assert.ErrorIs(t, c.Retry(ctx, s), ErrBusy)
	assert.ErrorIs(t, c.Cancel(ctx, s), ErrBusy)

	close(release)
	wg.Wait()

	assert.Equal(t, StepCompleted, s.Snapshot().Step)
	assert.False(t, store.Busy())
	client.AssertNumberOfCalls(t, "ExecuteOperation", 1)
}

func TestCloseWhileExecuting(t *testing.T) {
	ctx, client, store, c := setup(t, Options{})
	form := renameForm()

	started := make(chan struct{})
	release := make(chan struct{})

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return(completedOp("op-1", form, "/backups/A.cbz.bak"), nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))

	done := make(chan error, 1)
	go func() { done <- c.Execute(ctx, s) }()

	<-started
	c.Close(ctx, s)
	close(release)
	require.NoError(t, <-done)

	stored, ok := store.Get("op-1")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, stored.Status, "late response should still reach the store")

	snap := s.Snapshot()
	assert.True(t, snap.Closed)
	assert.Equal(t, StepExecuting, snap.Step, "closed session should not be resurrected")
	assert.ErrorIs(t, c.Rollback(ctx, s), ErrClosed)
}

func TestInProgressExecutionIsPolled(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(opFor("op-1", form, model.StatusInProgress), nil).Once()
	client.On("GetOperation", mock.Anything, "op-1").Return(completedOp("op-1", form, "/backups/A.cbz.bak"), nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))
	require.NoError(t, c.Execute(ctx, s))

	snap := s.Snapshot()
	assert.Equal(t, StepExecuting, snap.Step)
	assert.Nil(t, snap.Error)
	assert.True(t, snap.CanRetry(), "a running operation can be polled")

	require.NoError(t, c.Retry(ctx, s))
	assert.Equal(t, StepCompleted, s.Snapshot().Step)
	client.AssertExpectations(t)
}

func TestCancelReturnsToConfiguring(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))
	require.NoError(t, c.Cancel(ctx, s))

	snap := s.Snapshot()
	assert.Equal(t, StepConfiguring, snap.Step)
	assert.Nil(t, snap.Operation)
	assert.Nil(t, snap.Validation)

	err := c.Execute(ctx, s)
	require.Error(t, err, "a cancelled validation must not be executable")
	client.AssertNotCalled(t, "ExecuteOperation", mock.Anything, mock.Anything, mock.Anything)
}

func TestCallsCarryTimeout(t *testing.T) {
	ctx, client, _, c := setup(t, Options{Timeout: time.Minute})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Run(func(args mock.Arguments) {
		_, ok := args.Get(0).(context.Context).Deadline()
		assert.True(t, ok, "create should carry a deadline")
	}).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Run(func(args mock.Arguments) {
		_, ok := args.Get(0).(context.Context).Deadline()
		assert.True(t, ok, "validate should carry a deadline")
	}).Return(&model.ValidationResult{IsValid: true}, nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))
	client.AssertExpectations(t)
}

func TestCleanupRefreshesList(t *testing.T) {
	filter := model.ListFilter{Limit: 50}
	ctx, client, store, c := setup(t, Options{ListFilter: filter})

	store.Put(ctx, *opFor("old-1", renameForm(), model.StatusCompleted))
	store.Put(ctx, *opFor("old-2", renameForm(), model.StatusCompleted))

	var order []string
	client.On("CleanupOldOperations", mock.Anything, 30).Run(func(args mock.Arguments) {
		order = append(order, "cleanup")
	}).Return(&model.CleanupResult{CleanedCount: 3}, nil).Once()
	client.On("ListOperations", mock.Anything, filter).Run(func(args mock.Arguments) {
		order = append(order, "list")
	}).Return(&model.ListResult{
		Operations: []model.Operation{*opFor("kept", renameForm(), model.StatusPending)},
		Total:      1,
	}, nil).Once()

	res, err := c.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CleanedCount)
	assert.Equal(t, []string{"cleanup", "list"}, order, "cleanup should be followed by a fresh list")

	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].ID)
	client.AssertExpectations(t)
}

func TestCleanupFailureSkipsRefresh(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	client.On("CleanupOldOperations", mock.Anything, 7).Return(nil, transportErr()).Once()

	_, err := c.Cleanup(ctx, 7)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	client.AssertNotCalled(t, "ListOperations", mock.Anything, mock.Anything)
}

func TestOnChangeSeesEveryStep(t *testing.T) {
	var mu sync.Mutex
	var steps []Step
	opts := Options{OnChange: func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(steps) == 0 || steps[len(steps)-1] != snap.Step {
			steps = append(steps, snap.Step)
		}
	}}
	ctx, client, _, c := setup(t, opts)
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-1").Return(&model.ValidationResult{IsValid: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-1", confirmed).Return(completedOp("op-1", form, "/b"), nil).Once()

	s := c.Open(ctx, Form{})
	require.NoError(t, c.Submit(ctx, s, form))
	require.NoError(t, c.Execute(ctx, s))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Step{StepConfiguring, StepValidating, StepConfirming, StepExecuting, StepCompleted}, steps)
}

func TestCreateWithoutSession(t *testing.T) {
	ctx, client, store, c := setup(t, Options{ProtectedPaths: []string{"/lib/system/**"}})
	form := renameForm()

	client.On("CreateOperation", mock.Anything, form.request()).Return(opFor("op-1", form, model.StatusPending), nil).Once()

	op, err := c.Create(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "op-1", op.ID)
	active, ok := store.Active()
	require.True(t, ok, "created operation should be active")
	assert.Equal(t, "op-1", active.ID)

	_, err = c.Create(ctx, Form{Kind: model.KindDelete, SourcePath: "/lib/system/core.cbz"})
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))
	assert.Contains(t, err.Error(), "is protected")
	client.AssertNumberOfCalls(t, "CreateOperation", 1)
	assert.False(t, store.Busy(), "no call should be left in flight")
}

func TestAdopt(t *testing.T) {
	form := renameForm()
	failed := opFor("op-1", form, model.StatusFailed)
	failed.ErrorMessage = "disk full"

	tests := []struct {
		name         string
		op           *model.Operation
		wantStep     Step
		wantRetry    bool
		wantRollback bool
		wantErrKind  ErrorKind
	}{
		{name: "running", op: opFor("op-1", form, model.StatusInProgress), wantStep: StepExecuting, wantRetry: true},
		{name: "completed_with_backup", op: completedOp("op-1", form, "/backups/A.cbz.bak"), wantStep: StepCompleted, wantRollback: true},
		{name: "rolled_back", op: func() *model.Operation {
			op := completedOp("op-1", form, "/backups/A.cbz.bak")
			op.Status = model.StatusRolledBack
			return op
		}(), wantStep: StepCompleted},
		{name: "failed", op: failed, wantStep: StepExecuting, wantErrKind: KindExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, client, store, c := setup(t, Options{})
			client.On("GetOperation", mock.Anything, "op-1").Return(tt.op, nil).Once()

			s, err := c.Adopt(ctx, "op-1")
			require.NoError(t, err)

			snap := s.Snapshot()
			assert.Equal(t, tt.wantStep, snap.Step)
			assert.Equal(t, tt.wantRetry, snap.CanRetry())
			assert.Equal(t, tt.wantRollback, snap.CanRollback())
			assert.False(t, snap.CanExecute(), "only a fresh validation enables execute")
			if tt.wantErrKind != "" {
				require.NotNil(t, snap.Error)
				assert.Equal(t, tt.wantErrKind, snap.Error.Kind)
			}

			stored, ok := store.Get("op-1")
			require.True(t, ok, "adopted operation should be stored")
			assert.Equal(t, tt.op.Status, stored.Status)
			client.AssertNotCalled(t, "ValidateOperation", mock.Anything, mock.Anything)
		})
	}
}

func TestAdoptPendingOperationValidatesThenExecutes(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	form := deleteForm()

	client.On("GetOperation", mock.Anything, "op-4").Return(opFor("op-4", form, model.StatusPending), nil).Once()
	client.On("ValidateOperation", mock.Anything, "op-4").Return(&model.ValidationResult{IsValid: true, RiskLevel: model.RiskHigh, RequiresConfirmation: true}, nil).Once()
	client.On("ExecuteOperation", mock.Anything, "op-4", confirmed).Return(completedOp("op-4", form, "/backups/A.cbz.bak"), nil).Once()

	s, err := c.Adopt(ctx, "op-4")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, StepConfirming, snap.Step)
	assert.True(t, snap.CanExecute())

	require.NoError(t, c.Execute(ctx, s))
	snap = s.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	assert.True(t, snap.CanRollback())
	client.AssertExpectations(t)
}

func TestAdoptRefusesProtectedOperation(t *testing.T) {
	ctx, client, store, c := setup(t, Options{ProtectedPaths: []string{"/lib/system/**"}})
	protected := Form{Kind: model.KindDelete, SourcePath: "/lib/system/core.cbz"}

	client.On("GetOperation", mock.Anything, "op-9").Return(opFor("op-9", protected, model.StatusPending), nil).Once()

	s, err := c.Adopt(ctx, "op-9")
	require.Error(t, err)
	assert.Equal(t, KindPreconditionViolation, KindOf(err))
	assert.Contains(t, err.Error(), "is protected")

	require.NotNil(t, s)
	snap := s.Snapshot()
	assert.False(t, snap.CanExecute())
	require.Error(t, c.Execute(ctx, s), "a protected operation is never executed")

	client.AssertNotCalled(t, "ValidateOperation", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "ExecuteOperation", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, store.Busy())
}

func TestAdoptMissingOperation(t *testing.T) {
	ctx, client, _, c := setup(t, Options{})
	client.On("GetOperation", mock.Anything, "nope").Return(nil, errors.Errorf("getting: %w", &remote.APIError{StatusCode: 404, Message: "Operation not found"})).Once()

	s, err := c.Adopt(ctx, "nope")
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Equal(t, KindRejected, KindOf(err))
	assert.Contains(t, err.Error(), "Operation not found")
}
