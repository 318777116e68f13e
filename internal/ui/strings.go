package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// truncate fits value into limit terminal cells, ending with an ellipsis when
// it had to cut. A non-positive limit leaves value alone.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || ansi.StringWidth(value) <= limit {
		return value
	}
	return ansi.Truncate(value, limit, "…")
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}
