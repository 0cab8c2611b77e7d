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
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/remote"
	"github.com/walteh/fileops/pkg/state"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Options configures a Controller
type Options struct {
	// Timeout bounds every backend call; zero means no timeout
	Timeout time.Duration
	// ProtectedPaths are globs no operation may touch
	ProtectedPaths []string
	// ListFilter is used when re-listing after a cleanup
	ListFilter model.ListFilter
	// Refresher re-lists after a cleanup; one is created when nil
	Refresher *state.Refresher
	// OnChange is called with a fresh snapshot after every session change
	OnChange func(Snapshot)
}

// 🎮 Controller drives sessions through configure, validate, confirm, execute
// and rollback against the backend, writing every response to the store
type Controller struct {
	client    remote.Client
	store     *state.Store
	refresher *state.Refresher
	opts      Options
}

// New creates a controller
func New(client remote.Client, store *state.Store, opts Options) (*Controller, error) {
	if client == nil {
		return nil, errors.Errorf("client is required")
	}
	if store == nil {
		return nil, errors.Errorf("store is required")
	}
	for _, p := range opts.ProtectedPaths {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid protected path pattern %q", p)
		}
	}
	refresher := opts.Refresher
	if refresher == nil {
		refresher = state.NewRefresher(store, client, opts.ListFilter, 0)
	}
	return &Controller{
		client:    client,
		store:     store,
		refresher: refresher,
		opts:      opts,
	}, nil
}

// Store returns the store the controller writes to
func (c *Controller) Store() *state.Store {
	return c.store
}

// Open starts a new session on the configuring step
func (c *Controller) Open(ctx context.Context, form Form) *Session {
	s := newSession(form)
	zerolog.Ctx(ctx).Debug().Str("session", s.id).Msg("opened workflow session")
	c.notify(s)
	return s
}

// Close ends a session. Calls still in flight complete and update the store,
// but the closed session is never touched again.
func (c *Controller) Close(ctx context.Context, s *Session) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	zerolog.Ctx(ctx).Debug().Str("session", s.id).Msg("closed workflow session")
}

// Submit creates an operation from form and validates it straight away
func (c *Controller) Submit(ctx context.Context, s *Session, form Form) error {
	s.mu.Lock()
	if err := c.guardLocked(s, StepConfiguring); err != nil {
		s.mu.Unlock()
		return err
	}
	s.form = form
	if err := c.checkForm(form); err != nil {
		s.err = err
		s.retry = retryNone
		s.mu.Unlock()
		c.notify(s)
		return err
	}
	s.step = StepValidating
	s.operation = nil
	s.validation = nil
	s.validatedID = ""
	s.err = nil
	s.retry = retryNone
	s.loading = true
	s.mu.Unlock()
	c.notify(s)

	return c.create(ctx, s, form)
}

// Create registers an operation from form without opening a session. The
// guards Submit applies run first and nothing is sent when they fail.
func (c *Controller) Create(ctx context.Context, form Form) (*model.Operation, error) {
	if err := c.checkForm(form); err != nil {
		return nil, err
	}

	done := c.store.Track()
	op, err := c.callCreate(ctx, form.request())
	done()
	if err != nil {
		return nil, classify(StepConfiguring, err)
	}

	c.store.PutActive(ctx, *op)
	zerolog.Ctx(ctx).Info().Str("operation", op.ID).Str("kind", string(op.Kind)).Msg("created operation")
	return op, nil
}

// Adopt opens a session on an operation created earlier. Its paths go
// through the same guards as a new form. Pending and validated operations
// are validated again so they can be executed, running ones land on the
// executing step where Retry polls them, and finished ones on the completed
// step where rollback is offered.
func (c *Controller) Adopt(ctx context.Context, id string) (*Session, error) {
	logger := zerolog.Ctx(ctx).With().Str("operation", id).Logger()

	done := c.store.Track()
	op, err := c.callGet(ctx, id)
	done()
	if err != nil {
		return nil, classify(StepConfiguring, err)
	}
	c.store.PutActive(ctx, *op)

	s := newSession(Form{
		Kind:       op.Kind,
		SourcePath: op.SourcePath,
		TargetPath: op.TargetPath,
	})
	s.operation = op
	logger.Debug().Str("session", s.id).Str("status", string(op.Status)).Msg("adopting operation")

	if werr := c.checkForm(s.form); werr != nil {
		s.err = werr
		c.notify(s)
		return s, werr
	}

	switch op.Status {
	case model.StatusPending, model.StatusValidated:
		s.step = StepValidating
		s.loading = true
		c.notify(s)
		return s, c.validate(ctx, s, op.ID)
	case model.StatusInProgress:
		s.step = StepExecuting
		s.retry = retryPoll
	case model.StatusFailed:
		msg := op.ErrorMessage
		if msg == "" {
			msg = "operation failed"
		}
		s.step = StepExecuting
		s.err = &Error{Kind: KindExecutionFailed, Step: StepExecuting, Message: msg}
	default:
		s.step = StepCompleted
	}
	c.notify(s)
	return s, nil
}

func (c *Controller) create(ctx context.Context, s *Session, form Form) error {
	logger := zerolog.Ctx(ctx).With().Str("session", s.id).Logger()
	logger.Info().Str("kind", string(form.Kind)).Str("source", form.SourcePath).Msg("creating operation")

	done := c.store.Track()
	op, err := c.callCreate(ctx, form.request())
	done()

	if err != nil {
		return c.fail(s, StepConfiguring, retryCreate, classify(StepConfiguring, err))
	}

	c.store.PutActive(ctx, *op)
	if !c.applyIfOpen(s, func() { s.operation = op }) {
		logger.Warn().Str("operation", op.ID).Msg("session closed before create returned")
		return nil
	}

	return c.validate(ctx, s, op.ID)
}

func (c *Controller) validate(ctx context.Context, s *Session, id string) error {
	logger := zerolog.Ctx(ctx).With().Str("session", s.id).Str("operation", id).Logger()
	logger.Debug().Msg("validating operation")

	done := c.store.Track()
	res, err := c.callValidate(ctx, id)
	done()

	if err != nil {
		return c.fail(s, StepValidating, retryValidate, classify(StepValidating, err))
	}

	c.store.PutValidation(id, *res)

	var werr *Error
	applied := c.applyIfOpen(s, func() {
		s.validation = res
		s.loading = false
		s.retry = retryNone
		if res.IsValid {
			s.step = StepConfirming
			s.validatedID = id
			s.err = nil
			return
		}
		// the rejected operation is abandoned; resubmitting creates a new one
		s.step = StepConfiguring
		s.validatedID = ""
		werr = &Error{
			Kind:    KindValidationRejected,
			Step:    StepConfiguring,
			Message: rejectionMessage(res),
			Details: append([]string(nil), res.Errors...),
		}
		s.err = werr
	})
	if !applied {
		logger.Warn().Msg("session closed before validate returned")
		return nil
	}

	if werr != nil {
		logger.Info().Strs("errors", res.Errors).Msg("validation rejected operation")
		return werr
	}
	logger.Info().Str("risk", string(res.RiskLevel)).Bool("requires_confirmation", res.RequiresConfirmation).Msg("operation validated")
	return nil
}

// Execute runs the validated operation. It is a no-op returning ErrBusy while
// another call for the session is in flight.
func (c *Controller) Execute(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if err := c.guardLocked(s, StepConfirming); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.operation == nil || s.validation == nil || !s.validation.IsValid || s.validatedID != s.operation.ID {
		s.mu.Unlock()
		return precondition(StepConfirming, "operation has no successful validation")
	}
	id := s.operation.ID
	risk := s.validation.RiskLevel
	form := s.form
	s.step = StepExecuting
	s.loading = true
	s.err = nil
	s.retry = retryNone
	s.mu.Unlock()
	c.notify(s)

	return c.execute(ctx, s, id, model.ExecuteRequest{
		Confirmed:           true,
		ConfirmationMessage: confirmationMessage(form, risk),
	})
}

func (c *Controller) execute(ctx context.Context, s *Session, id string, req model.ExecuteRequest) error {
	logger := zerolog.Ctx(ctx).With().Str("session", s.id).Str("operation", id).Logger()
	logger.Info().Msg("executing operation")

	done := c.store.Track()
	op, err := c.callExecute(ctx, id, req)
	done()

	if err != nil {
		// the operation did not run as far as we know; stay on confirming
		return c.fail(s, StepConfirming, retryExecute, classify(StepConfirming, err))
	}

	c.store.PutActive(ctx, *op)
	return c.applyExecution(ctx, s, op, "execute")
}

// applyExecution moves the session according to the executed operation
func (c *Controller) applyExecution(ctx context.Context, s *Session, op *model.Operation, source string) error {
	logger := zerolog.Ctx(ctx).With().Str("session", s.id).Str("operation", op.ID).Logger()

	var werr *Error
	applied := c.applyIfOpen(s, func() {
		s.operation = op
		s.loading = false
		s.retry = retryNone
		s.validatedID = ""
		switch op.Status {
		case model.StatusCompleted, model.StatusRolledBack:
			s.step = StepCompleted
			s.err = nil
		case model.StatusFailed:
			s.step = StepExecuting
			msg := op.ErrorMessage
			if msg == "" {
				msg = "operation failed"
			}
			werr = &Error{Kind: KindExecutionFailed, Step: StepExecuting, Message: msg}
			s.err = werr
		default:
			// still running on the backend; Retry polls for the outcome
			s.step = StepExecuting
			s.retry = retryPoll
			s.err = nil
		}
	})
	if !applied {
		logger.Warn().Str("status", string(op.Status)).Msgf("session closed before %s returned", source)
		return nil
	}

	if werr != nil {
		logger.Warn().Str("error", werr.Message).Msg("operation failed")
		return werr
	}
	logger.Info().Str("status", string(op.Status)).Str("backup", op.BackupPath).Msg("operation executed")
	return nil
}

// Rollback restores a completed operation from its backup. The session stays
// on the completed step.
func (c *Controller) Rollback(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if err := c.guardLocked(s, StepCompleted); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.operation == nil || !s.operation.CanRollback() {
		status := model.Status("")
		if s.operation != nil {
			status = s.operation.Status
		}
		s.mu.Unlock()
		return precondition(StepCompleted, "rollback needs a completed operation with a backup (status %q)", status)
	}
	id := s.operation.ID
	s.loading = true
	s.err = nil
	s.retry = retryNone
	s.mu.Unlock()
	c.notify(s)

	return c.rollback(ctx, s, id)
}

func (c *Controller) rollback(ctx context.Context, s *Session, id string) error {
	logger := zerolog.Ctx(ctx).With().Str("session", s.id).Str("operation", id).Logger()
	logger.Info().Msg("rolling back operation")

	done := c.store.Track()
	op, err := c.callRollback(ctx, id)
	done()
	if err != nil {
		return c.fail(s, StepCompleted, retryRollback, classify(StepCompleted, err))
	}

	c.store.PutActive(ctx, *op)
	if op.Status != model.StatusRolledBack {
		return c.fail(s, StepCompleted, retryNone, &Error{
			Kind:    KindRejected,
			Step:    StepCompleted,
			Message: fmt.Sprintf("rollback did not complete, operation is %s", op.Status),
		})
	}
	if !c.applyIfOpen(s, func() {
		s.operation = op
		s.loading = false
		s.err = nil
	}) {
		logger.Warn().Msg("session closed before rollback returned")
		return nil
	}

	logger.Info().Str("status", string(op.Status)).Msg("operation rolled back")
	return nil
}

// Retry re-issues the call whose failure is in the error slot
func (c *Controller) Retry(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	action := s.retry
	if action == retryNone || (action != retryPoll && (s.err == nil || !s.err.Kind.Retryable())) {
		s.mu.Unlock()
		return precondition(s.step, "nothing to retry")
	}
	form := s.form
	if action == retryCreate {
		s.step = StepValidating
		s.loading = true
		s.err = nil
		s.mu.Unlock()
		c.notify(s)
		return c.create(ctx, s, form)
	}
	if s.operation == nil {
		s.mu.Unlock()
		return precondition(s.step, "no operation to retry")
	}
	id := s.operation.ID
	var risk model.RiskLevel
	if s.validation != nil {
		risk = s.validation.RiskLevel
	}
	if action == retryExecute {
		if s.validatedID != id {
			s.mu.Unlock()
			return precondition(s.step, "operation has no successful validation")
		}
		s.step = StepExecuting
	}
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	c.notify(s)

	switch action {
	case retryValidate:
		return c.validate(ctx, s, id)
	case retryExecute:
		return c.execute(ctx, s, id, model.ExecuteRequest{
			Confirmed:           true,
			ConfirmationMessage: confirmationMessage(form, risk),
		})
	case retryRollback:
		return c.rollback(ctx, s, id)
	default:
		return c.poll(ctx, s, id)
	}
}

// poll fetches an operation that was still running when execute returned
func (c *Controller) poll(ctx context.Context, s *Session, id string) error {
	done := c.store.Track()
	op, err := c.callGet(ctx, id)
	done()
	if err != nil {
		return c.fail(s, StepExecuting, retryPoll, classify(StepExecuting, err))
	}
	c.store.PutActive(ctx, *op)
	return c.applyExecution(ctx, s, op, "poll")
}

// Cancel returns a validating or confirming session to configuring. The
// operation created so far is abandoned.
func (c *Controller) Cancel(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	switch s.step {
	case StepConfiguring:
		s.err = nil
	case StepValidating, StepConfirming:
		s.step = StepConfiguring
		s.operation = nil
		s.validation = nil
		s.validatedID = ""
		s.err = nil
		s.retry = retryNone
	default:
		step := s.step
		s.mu.Unlock()
		return precondition(step, "cannot cancel from %s", step)
	}
	s.mu.Unlock()
	c.notify(s)
	return nil
}

// Reset starts a new attempt after a finished or failed execution, keeping
// the form
func (c *Controller) Reset(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.step != StepExecuting && s.step != StepCompleted {
		step := s.step
		s.mu.Unlock()
		return precondition(step, "cannot reset from %s", step)
	}
	s.step = StepConfiguring
	s.operation = nil
	s.validation = nil
	s.validatedID = ""
	s.err = nil
	s.retry = retryNone
	s.mu.Unlock()
	c.notify(s)
	return nil
}

// Cleanup removes old operations on the backend and then re-lists, so the
// store never guesses which entries went away
func (c *Controller) Cleanup(ctx context.Context, daysOld int) (*model.CleanupResult, error) {
	done := c.store.Track()
	cctx, cancel := c.callContext(ctx)
	res, err := c.client.CleanupOldOperations(cctx, daysOld)
	cancel()
	done()
	if err != nil {
		return nil, classify("", err)
	}

	zerolog.Ctx(ctx).Info().Int("cleaned", res.CleanedCount).Int("days_old", daysOld).Msg("cleaned up old operations")

	rctx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.refresher.ForceRefresh(rctx); err != nil {
		return res, classify("", err)
	}
	return res, nil
}

// guardLocked checks the common preconditions of an intent
func (c *Controller) guardLocked(s *Session, want Step) error {
	if s.closed {
		return ErrClosed
	}
	if s.loading {
		return ErrBusy
	}
	if s.step != want {
		return precondition(s.step, "action needs step %s, session is at %s", want, s.step)
	}
	return nil
}

func (c *Controller) checkForm(form Form) *Error {
	req := form.request()
	if err := req.Validate(); err != nil {
		return &Error{Kind: KindPreconditionViolation, Step: StepConfiguring, Message: err.Error(), Err: err}
	}
	for _, p := range []string{form.SourcePath, form.TargetPath} {
		if p == "" {
			continue
		}
		for _, pattern := range c.opts.ProtectedPaths {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return precondition(StepConfiguring, "path %s is protected by %q", p, pattern)
			}
		}
	}
	return nil
}

// fail records werr in the session's error slot and moves it to step
func (c *Controller) fail(s *Session, step Step, retry retryAction, werr *Error) error {
	c.applyIfOpen(s, func() {
		s.step = step
		s.loading = false
		s.err = werr
		s.retry = retry
	})
	return werr
}

// applyIfOpen runs fn under the session lock unless the session is closed,
// then notifies. It reports whether fn ran.
func (c *Controller) applyIfOpen(s *Session, fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn()
	s.mu.Unlock()
	c.notify(s)
	return true
}

func (c *Controller) notify(s *Session) {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(s.Snapshot())
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout > 0 {
		return context.WithTimeout(ctx, c.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) callCreate(ctx context.Context, req model.CreateRequest) (*model.Operation, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.client.CreateOperation(ctx, req)
}

func (c *Controller) callValidate(ctx context.Context, id string) (*model.ValidationResult, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.client.ValidateOperation(ctx, id)
}

func (c *Controller) callExecute(ctx context.Context, id string, req model.ExecuteRequest) (*model.Operation, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.client.ExecuteOperation(ctx, id, req)
}

func (c *Controller) callRollback(ctx context.Context, id string) (*model.Operation, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.client.RollbackOperation(ctx, id)
}

func (c *Controller) callGet(ctx context.Context, id string) (*model.Operation, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.client.GetOperation(ctx, id)
}

func rejectionMessage(res *model.ValidationResult) string {
	if len(res.Errors) > 0 {
		return strings.Join(res.Errors, "; ")
	}
	for _, cf := range res.Conflicts {
		if cf.Message != "" {
			return cf.Message
		}
	}
	return "operation failed validation"
}

func confirmationMessage(form Form, risk model.RiskLevel) string {
	if risk == "" {
		risk = model.RiskLow
	}
	return fmt.Sprintf("user confirmed %s risk %s of %s", risk, form.Kind, form.SourcePath)
}
