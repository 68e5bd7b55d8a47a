package model

import "time"

// Poll message types exchanged between the server bridge or client poller and the UI.
const (
	MsgStartPolling     = "START_POLLING"
	MsgStopPolling      = "STOP_POLLING"
	MsgNewNotifications = "NEW_NOTIFICATIONS"
	MsgForceLogout      = "FORCE_LOGOUT"
)

const (
	MinPollInterval = time.Second
	MaxPollInterval = 5 * time.Minute
)

type PollMessage struct {
	Type          string         `json:"type"`
	IntervalMS    int64          `json:"interval_ms,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// ClampInterval returns def for a non-positive interval and bounds the rest to
// [MinPollInterval, MaxPollInterval].
func ClampInterval(d, def time.Duration) time.Duration {
	if d <= 0 {
		d = def
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}
