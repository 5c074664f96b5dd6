package tui

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{42, "42"},
		{999.5, "999.50"},
		{1_500, "1500"},
		{12_345, "12.3K"},
		{2_500_000, "2.5M"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTokens(t *testing.T) {
	if got := formatTokens(0); got != "-" {
		t.Errorf("formatTokens(0) = %q, want -", got)
	}
	if got := formatTokens(1_200_000); got != "1.2M" {
		t.Errorf("formatTokens(1.2M) = %q, want 1.2M", got)
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{0.5, "$0.50"},
		{12.345, "$12.35"},
		{1234, "$1234"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Errorf("formatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAgo(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "just now"},
		{time.Second, "just now"},
		{30 * time.Second, "30s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
	}
	for _, tt := range tests {
		if got := formatAgo(tt.in); got != tt.want {
			t.Errorf("formatAgo(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMonth(t *testing.T) {
	if got := formatMonth("2026-03"); got != "March 2026" {
		t.Errorf("formatMonth(2026-03) = %q, want March 2026", got)
	}
	if got := formatMonth("bogus"); got != "bogus" {
		t.Errorf("formatMonth(bogus) = %q, want passthrough", got)
	}
}
