package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestTruncate(t *testing.T) {
	if got := truncate("  Angelus ", 10); got != "Angelus" {
		t.Fatalf("truncate short = %q", got)
	}
	got := truncate("Feast of the Assumption", 10)
	if ansi.StringWidth(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("truncate long = %q (width %d)", got, ansi.StringWidth(got))
	}
	if got := truncate("Vespers", 0); got != "Vespers" {
		t.Fatalf("truncate unlimited = %q", got)
	}
}
