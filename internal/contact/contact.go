// Package contact submits contact-form messages through the provisioned
// actor and classifies failures into user-facing outcomes.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/foliodev/folio/internal/actor"
	"github.com/foliodev/folio/internal/model"
)

// Code classifies a failed submission.
type Code string

const (
	CodeNetworkError     Code = "NETWORK_ERROR"
	CodeSubmissionFailed Code = "SUBMISSION_FAILED"
	CodeActorNotReady    Code = "ACTOR_NOT_READY"
)

// User-facing copy for a successful submission.
const (
	SuccessTitle  = "Message sent successfully!"
	SuccessDetail = "Thank you for reaching out. I'll get back to you soon."
)

// Message returns the user-facing text for c.
func (c Code) Message() string {
	switch c {
	case CodeNetworkError:
		return "Could not reach the server. Please check your connection and try again."
	case CodeActorNotReady:
		return "The contact service is still starting up. Please try again in a moment."
	default:
		return "Failed to send message. Please try again or contact me directly via email."
	}
}

// SubmitError is a classified submission failure.
type SubmitError struct {
	Code Code
	Err  error
}

func (e *SubmitError) Error() string {
	if e.Err == nil {
		return "contact: " + string(e.Code)
	}
	return fmt.Sprintf("contact: %s: %v", e.Code, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// CodeOf returns the classification of err, or "" when err is not a
// SubmitError.
func CodeOf(err error) Code {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "contact: invalid form (" + strings.Join(parts, "; ") + ")"
}

// ActorSource hands out the current actor, waiting for it if needed.
type ActorSource interface {
	Actor(ctx context.Context) (actor.Actor, error)
}

// DefaultReadyTimeout bounds how long Submit waits for an actor.
const DefaultReadyTimeout = 10 * time.Second

// Submitter sends contact messages.
type Submitter struct {
	actors       ActorSource
	logger       *slog.Logger
	readyTimeout time.Duration
	inflight     atomic.Int32
}

// NewSubmitter returns a Submitter drawing actors from src.
func NewSubmitter(src ActorSource, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{actors: src, logger: logger, readyTimeout: DefaultReadyTimeout}
}

// SetReadyTimeout overrides DefaultReadyTimeout.
func (s *Submitter) SetReadyTimeout(d time.Duration) {
	if d > 0 {
		s.readyTimeout = d
	}
}

// Submitting reports whether a submission is in flight.
func (s *Submitter) Submitting() bool {
	return s.inflight.Load() > 0
}

// Submit validates req and sends it. Invalid input returns a
// *ValidationError without contacting the backend; every other failure is a
// *SubmitError.
func (s *Submitter) Submit(ctx context.Context, req model.NewMessageRequest) error {
	if fields := req.Validate(); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	readyCtx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	a, err := s.actors.Actor(readyCtx)
	cancel()
	if err != nil {
		s.logger.Error("contact submission failed", "code", CodeActorNotReady, "error", err)
		return &SubmitError{Code: CodeActorNotReady, Err: err}
	}
	if a == nil {
		return &SubmitError{Code: CodeActorNotReady, Err: errors.New("backend actor not initialized")}
	}

	if err := a.SubmitMessage(ctx, req.Name, req.Email, req.Message); err != nil {
		code := classify(err)
		s.logger.Error("contact submission failed", "code", code, "error", err)
		return &SubmitError{Code: code, Err: err}
	}
	s.logger.Info("contact message submitted")
	return nil
}

func classify(err error) Code {
	var netErr net.Error
	switch {
	case errors.Is(err, actor.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return CodeNetworkError
	default:
		return CodeSubmissionFailed
	}
}
