package format

import (
	"math"
	"testing"
)

func TestBytesToSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 Bytes"},
		{name: "below one kilobyte", bytes: 512, want: "512 Bytes"},
		{name: "two kilobytes", bytes: 2048, want: "2.00 KB"},
		{name: "fractional megabytes", bytes: 1536 * 1024, want: "1.50 MB"},
		{name: "gigabytes", bytes: 3 << 30, want: "3.00 GB"},
		{name: "negative", bytes: -2048, want: "-2.00 KB"},
		{name: "negative bytes", bytes: -5, want: "-5 Bytes"},
		{name: "min int64", bytes: math.MinInt64, want: "-8192.00 PB"},
		{name: "max int64", bytes: math.MaxInt64, want: "8192.00 PB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BytesToSize(tt.bytes); got != tt.want {
				t.Errorf("BytesToSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestTimingFormat(t *testing.T) {
	tests := []struct {
		name      string
		ms        int64
		zeroValid bool
		want      string
	}{
		{name: "zero valid", ms: 0, zeroValid: true, want: "0 secs"},
		{name: "zero invalid", ms: 0, zeroValid: false, want: ""},
		{name: "milliseconds", ms: 999, want: "999 ms"},
		{name: "seconds", ms: 4000, want: "4.00 secs"},
		{name: "minutes", ms: 90 * 1000, want: "1.50 mins"},
		{name: "hours", ms: 2 * 60 * 60 * 1000, want: "2.00 hours"},
		{name: "days", ms: 36 * 60 * 60 * 1000, want: "1.50 days"},
		{name: "negative", ms: -5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimingFormat(tt.ms, tt.zeroValid); got != tt.want {
				t.Errorf("TimingFormat(%d, %v) = %q, want %q", tt.ms, tt.zeroValid, got, tt.want)
			}
		})
	}
}
