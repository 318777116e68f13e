package ui

import "time"

// LayoutCompactWidth is the width below which the header drops secondary fields.
const LayoutCompactWidth = 100

const (
	// LogTailLines is how many lines of the client log the log tab reads.
	LogTailLines = 400

	// ToastTTL is how long a notification stays on the toast line.
	ToastTTL = 6 * time.Second

	// DefaultUIInterval is how often the dashboard re-reads the snapshot.
	DefaultUIInterval = time.Second

	// actionTimeout bounds one dashboard-triggered device call.
	actionTimeout = 10 * time.Second
)

// chromeLines is the header, tab bar, toast and footer rows around the body.
const chromeLines = 6
