package domain

import "time"

// Duration returns the elapsed milliseconds between start and end. An
// unset start yields 0, an unset end measures up to now.
func Duration(start, end *int64, now time.Time) int64 {
	if start == nil {
		return 0
	}
	if end == nil {
		return now.UnixMilli() - *start
	}
	return *end - *start
}

// TotalBytes sums two byte counters; absent counters decode as 0.
func TotalBytes(a, b int64) int64 {
	return a + b
}

// TasksNumber falls back to 0 when no task count was recorded.
func TasksNumber(tasksCount *int64) int64 {
	if tasksCount == nil {
		return 0
	}
	return *tasksCount
}
