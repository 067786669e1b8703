package domain

import "fmt"

// FormatMinutes renders minutes as "2h 30m", "2h" or "45m".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}

	hours := minutes / 60
	rest := minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", rest)
	case rest == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
}
