package alert

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of a sync run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Notification is the sync report sent to alert destinations.
type Notification struct {
	Status   Status         `json:"status"`
	Title    string         `json:"title"`
	Error    string         `json:"error,omitempty"`
	Loaded   map[string]int `json:"loaded,omitempty"`
	Totals   map[string]int `json:"totals,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	Finished time.Time      `json:"finished_at"`
}

// Notifier delivers reports to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
