package rental

import "time"

const day = 24 * time.Hour

// Fee charges every started day, with a one day minimum.
func Fee(dateOut, returned time.Time, dailyRate float64) float64 {
	elapsed := returned.Sub(dateOut)
	days := int64(elapsed / day)
	if elapsed%day != 0 && elapsed > 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return float64(days) * dailyRate
}
