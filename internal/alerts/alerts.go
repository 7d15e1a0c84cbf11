package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Severity levels for alerts
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert represents an alert message
type Alert struct {
	Title     string
	Message   string
	Severity  Severity
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// Alerter defines the interface for sending alerts
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// Manager manages multiple alert channels
type Manager struct {
	alerters []Alerter
}

// NewManager creates a new alert manager
func NewManager(alerters ...Alerter) *Manager {
	return &Manager{
		alerters: alerters,
	}
}

// Send sends an alert to all configured alerters
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	var lastErr error
	for _, alerter := range m.alerters {
		if err := alerter.Send(ctx, alert); err != nil {
			log.Error().
				Err(err).
				Str("title", alert.Title).
				Msg("Failed to send alert")
			lastErr = err
		}
	}

	return lastErr
}

// SendCritical is a convenience method for sending critical alerts
func (m *Manager) SendCritical(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{
		Title:    title,
		Message:  message,
		Severity: SeverityCritical,
		Metadata: metadata,
	})
}

// SendWarning is a convenience method for sending warning alerts
func (m *Manager) SendWarning(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{
		Title:    title,
		Message:  message,
		Severity: SeverityWarning,
		Metadata: metadata,
	})
}

// SendInfo is a convenience method for sending info alerts
func (m *Manager) SendInfo(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{
		Title:    title,
		Message:  message,
		Severity: SeverityInfo,
		Metadata: metadata,
	})
}

// LogAlerter logs alerts using zerolog
type LogAlerter struct{}

// NewLogAlerter creates a new log-based alerter
func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

// Send sends an alert by logging it
func (l *LogAlerter) Send(ctx context.Context, alert Alert) error {
	event := log.Log()

	// Set log level based on severity
	switch alert.Severity {
	case SeverityCritical:
		event = log.Error()
	case SeverityWarning:
		event = log.Warn()
	case SeverityInfo:
		event = log.Info()
	}

	// Add metadata fields
	if alert.Metadata != nil {
		for key, value := range alert.Metadata {
			event = event.Interface(key, value)
		}
	}

	event.
		Str("alert_title", alert.Title).
		Str("alert_severity", string(alert.Severity)).
		Time("alert_time", alert.Timestamp).
		Msg(fmt.Sprintf("ðŸš¨ ALERT: %s", alert.Message))

	return nil
}

// ConsoleAlerter prints alerts to console with prominent formatting
type ConsoleAlerter struct{}

// NewConsoleAlerter creates a new console-based alerter
func NewConsoleAlerter() *ConsoleAlerter {
	return &ConsoleAlerter{}
}

// Send sends an alert by printing to console
func (c *ConsoleAlerter) Send(ctx context.Context, alert Alert) error {
	banner := ""
	switch alert.Severity {
	case SeverityCritical:
		banner = "ðŸš¨ðŸš¨ðŸš¨ CRITICAL ALERT ðŸš¨ðŸš¨ðŸš¨"
	case SeverityWarning:
		banner = "âš ï¸  WARNING ALERT âš ï¸"
	case SeverityInfo:
		banner = "â„¹ï¸  INFO ALERT â„¹ï¸"
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println(banner)
	fmt.Println("========================================")
	fmt.Printf("Title: %s\n", alert.Title)
	fmt.Printf("Message: %s\n", alert.Message)
	fmt.Printf("Severity: %s\n", alert.Severity)
	fmt.Printf("Time: %s\n", alert.Timestamp.Format(time.RFC3339))

	if alert.Metadata != nil && len(alert.Metadata) > 0 {
		fmt.Println("Metadata:")
		for key, value := range alert.Metadata {
			fmt.Printf("  - %s: %v\n", key, value)
		}
	}

	fmt.Println("========================================")
	fmt.Println()

	return nil
}

// Default global alert manager (can be replaced with custom configuration)
var defaultManager *Manager

func init() {
	// Initialize with log and console alerters by default
	defaultManager = NewManager(
		NewLogAlerter(),
		NewConsoleAlerter(),
	)
}

// GetDefaultManager returns the default alert manager
func GetDefaultManager() *Manager {
	return defaultManager
}

// SetDefaultManager sets the default alert manager
func SetDefaultManager(manager *Manager) {
	defaultManager = manager
}

// Helper functions for common alerts

// AlertDualLegFailure sends an alert when a dual-leg trade aborts because
// its first leg failed, so the second leg was never attempted (the
// coordinator calls it when the venue B leg fails).
func AlertDualLegFailure(ctx context.Context, token, direction string, cycleID string, err error) {
	defaultManager.SendCritical(ctx, "Dual-Leg Trade Failed", fmt.Sprintf(
		"First leg failed for %s (%s), second leg not attempted, cycle %s: %v", token, direction, cycleID, err,
	), map[string]interface{}{
		"token":     token,
		"direction": direction,
		"cycle_id":  cycleID,
		"error":     err.Error(),
	})
}

// AlertPartialSuccess sends an alert when one leg of a dual-leg trade
// executed but its counterpart did not, leaving the bot one-sided.
func AlertPartialSuccess(ctx context.Context, token, filledVenue, failedVenue string, cycleID string, err error) {
	defaultManager.SendCritical(ctx, "Partial Trade Execution", fmt.Sprintf(
		"%s filled on %s but %s leg failed, cycle %s: %v", token, filledVenue, failedVenue, cycleID, err,
	), map[string]interface{}{
		"token":        token,
		"filled_venue": filledVenue,
		"failed_venue": failedVenue,
		"cycle_id":     cycleID,
		"error":        err.Error(),
	})
}

// AlertOneSidedBuy sends an alert when only the buy leg of a trade was
// executed because the sell leg was skipped for low inventory; success
// reports whether that buy leg succeeded.
func AlertOneSidedBuy(ctx context.Context, token, venue string, amount float64, success bool) {
	sev := SeverityWarning
	title := "One-Sided Buy Executed"
	if !success {
		sev = SeverityCritical
		title = "One-Sided Buy Failed"
	}
	defaultManager.Send(ctx, Alert{
		Title:    title,
		Severity: sev,
		Message: fmt.Sprintf(
			"One-sided buy for %s on %s, amount %.6f, success=%v", token, venue, amount, success,
		),
		Metadata: map[string]interface{}{
			"token":   token,
			"venue":   venue,
			"amount":  amount,
			"success": success,
		},
	})
}

// AlertInsufficientFunds sends an alert when a venue's inventory drops
// below the configured target, requiring a bridge rebalance.
func AlertInsufficientFunds(ctx context.Context, token, venue string, available, target float64) {
	defaultManager.SendWarning(ctx, "Inventory Below Target", fmt.Sprintf(
		"%s on %s holds %.6f, below target %.6f", token, venue, available, target,
	), map[string]interface{}{
		"token":     token,
		"venue":     venue,
		"available": available,
		"target":    target,
	})
}

// AlertBridgeFailure sends an alert when a bridge rebalance transfer
// fails or times out.
func AlertBridgeFailure(ctx context.Context, token, fromVenue, toVenue string, err error) {
	defaultManager.SendCritical(ctx, "Bridge Transfer Failed", fmt.Sprintf(
		"Bridging %s from %s to %s failed: %v", token, fromVenue, toVenue, err,
	), map[string]interface{}{
		"token":      token,
		"from_venue": fromVenue,
		"to_venue":   toVenue,
		"error":      err.Error(),
	})
}
