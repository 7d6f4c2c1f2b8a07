// Package format renders byte sizes and elapsed times for display.
package format

import (
	"fmt"
	"strconv"

	"github.com/docker/go-units"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

const (
	oneSecondMs = 1000
	oneMinuteMs = 60 * oneSecondMs
	oneHourMs   = 60 * oneMinuteMs
	oneDayMs    = 24 * oneHourMs
)

// BytesToSize formats bytes with binary multiples, e.g. "2.00 KB".
func BytesToSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	sign := ""
	n := uint64(bytes)
	if bytes < 0 {
		// Negating in uint64 keeps math.MinInt64 representable.
		sign, n = "-", -n
	}
	if n < 1024 {
		return sign + strconv.FormatUint(n, 10) + " Bytes"
	}
	return sign + units.CustomSize("%.2f %s", float64(n), 1024.0, sizeUnits)
}

// TimingFormat formats a millisecond duration. Zero renders as "0 secs"
// when zeroValid is set and as "" otherwise.
func TimingFormat(ms int64, zeroValid bool) string {
	switch {
	case ms == 0:
		if zeroValid {
			return "0 secs"
		}
		return ""
	case ms < 0:
		return ""
	case ms < oneSecondMs:
		return strconv.FormatInt(ms, 10) + " ms"
	case ms < oneMinuteMs:
		return fmt.Sprintf("%.2f secs", float64(ms)/oneSecondMs)
	case ms < oneHourMs:
		return fmt.Sprintf("%.2f mins", float64(ms)/oneMinuteMs)
	case ms < oneDayMs:
		return fmt.Sprintf("%.2f hours", float64(ms)/oneHourMs)
	}
	return fmt.Sprintf("%.2f days", float64(ms)/oneDayMs)
}
