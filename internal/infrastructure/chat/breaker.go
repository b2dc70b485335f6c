package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// breakerConnector trips after MaxFailures consecutive channel failures and
// fails fast with ErrExternalChannel until OpenTimeout elapses.
type breakerConnector struct {
	next Connector
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerConnector(next Connector, s BreakerSettings, log *logrus.Logger) Connector {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "chat",
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes say nothing about the channel's health.
			return err == nil ||
				errors.Is(err, apperror.ErrNotFound) ||
				errors.Is(err, ErrNotConnected) ||
				errors.Is(err, ErrNotAppointment)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Chat circuit breaker changed state")
		},
	})
	return &breakerConnector{next: next, cb: cb}
}

func (b *breakerConnector) Connect(ctx context.Context, userID uuid.UUID) (Handle, error) {
	h, err := execute(b.cb, func() (Handle, error) { return b.next.Connect(ctx, userID) })
	if err != nil {
		return nil, err
	}
	return &breakerHandle{next: h, cb: b.cb}, nil
}

func (b *breakerConnector) Session(ctx context.Context, userID uuid.UUID) (Handle, error) {
	h, err := execute(b.cb, func() (Handle, error) { return b.next.Session(ctx, userID) })
	if err != nil {
		return nil, err
	}
	return &breakerHandle{next: h, cb: b.cb}, nil
}

func (b *breakerConnector) Disconnect(ctx context.Context, userID uuid.UUID) error {
	_, err := execute(b.cb, func() (struct{}, error) { return struct{}{}, b.next.Disconnect(ctx, userID) })
	return err
}

type breakerHandle struct {
	next Handle
	cb   *gobreaker.CircuitBreaker[any]
}

func (h *breakerHandle) UserID() uuid.UUID {
	return h.next.UserID()
}

func (h *breakerHandle) Send(ctx context.Context, msg *Message) (*Message, error) {
	return execute(h.cb, func() (*Message, error) { return h.next.Send(ctx, msg) })
}

func (h *breakerHandle) Get(ctx context.Context, messageID string) (*Message, error) {
	return execute(h.cb, func() (*Message, error) { return h.next.Get(ctx, messageID) })
}

func (h *breakerHandle) SetAppointmentStatus(ctx context.Context, messageID, status string) (*Message, error) {
	return execute(h.cb, func() (*Message, error) { return h.next.SetAppointmentStatus(ctx, messageID, status) })
}

func (h *breakerHandle) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return execute(h.cb, func() ([]Message, error) { return h.next.History(ctx, conversationID, limit) })
}

func (h *breakerHandle) Members(ctx context.Context, conversationID string) ([]uuid.UUID, error) {
	return execute(h.cb, func() ([]uuid.UUID, error) { return h.next.Members(ctx, conversationID) })
}

// execute runs fn through the breaker and tags channel failures with
// ErrExternalChannel. Not found and protocol errors pass through unchanged.
func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		if errors.Is(err, apperror.ErrNotFound) ||
			errors.Is(err, apperror.ErrExternalChannel) ||
			errors.Is(err, ErrNotAppointment) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %w", apperror.ErrExternalChannel, err)
	}
	out, _ := res.(T)
	return out, nil
}
