package session

import "fmt"

// FormatClock renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatElapsed renders "MM:SS / MM:SS".
func FormatElapsed(elapsed, limit int) string {
	return FormatClock(elapsed) + " / " + FormatClock(limit)
}
