// Package activity buckets attempt timestamps by calendar day for the
// heatmap and derives the user's streaks.
package activity

import "time"

// WindowDays is the heatmap look-back, inclusive of today.
const WindowDays = 365

// Day is one calendar day in the window.
type Day struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
	Level int    `json:"level"` // 0-4 intensity
}

// Report is the tracker output for one user.
type Report struct {
	Days          []Day `json:"days"`
	CurrentStreak int   `json:"current_streak"`
	LongestStreak int   `json:"longest_streak"`
	TotalAttempts int   `json:"total_attempts"`
}

// Level maps a day's attempt count to its heatmap intensity.
func Level(count int) int {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 1
	case count == 2:
		return 2
	case count <= 4:
		return 3
	default:
		return 4
	}
}

// Track buckets timestamps over [today-365d, today] and computes streaks.
// Timestamps outside the window are ignored. Day boundaries are UTC.
func Track(timestamps []time.Time, today time.Time) Report {
	start := today.UTC().AddDate(0, 0, -WindowDays)
	end := today.UTC()

	counts := map[string]int{}
	for _, t := range timestamps {
		counts[dateOf(t)]++
	}

	var (
		days    []Day
		total   int
		longest int
		run     int
	)
	for d := start; !dateAfter(d, end); d = d.AddDate(0, 0, 1) {
		key := dateOf(d)
		c := counts[key]
		days = append(days, Day{Date: key, Count: c, Level: Level(c)})
		total += c
		if c > 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	// Current streak: consecutive active days ending today. The trailing
	// run from the forward scan is exactly that, and it is zero whenever
	// today itself has no attempts.
	return Report{
		Days:          days,
		CurrentStreak: run,
		LongestStreak: longest,
		TotalAttempts: total,
	}
}

func dateOf(t time.Time) string { return t.UTC().Format("2006-01-02") }

func dateAfter(a, b time.Time) bool { return dateOf(a) > dateOf(b) }
