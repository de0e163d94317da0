package totp

import "time"

// SecondsRemaining returns how many seconds are left in the window
// containing t, in the range [1, period]. It is for countdown display only.
func SecondsRemaining(t time.Time, period uint) int64 {
	p := int64(period)
	if p == 0 {
		p = int64(DefaultPeriod)
	}

	elapsed := t.Unix() % p
	if elapsed < 0 {
		elapsed += p
	}

	return p - elapsed
}

// StepStart returns the first second of the window containing t
func StepStart(t time.Time, period uint) time.Time {
	remaining := SecondsRemaining(t, period)
	p := int64(period)
	if p == 0 {
		p = int64(DefaultPeriod)
	}

	return time.Unix(t.Unix()-(p-remaining), 0)
}

// StepEnd returns the instant the window containing t ends, i.e. when the
// code for t expires
func StepEnd(t time.Time, period uint) time.Time {
	return time.Unix(t.Unix()+SecondsRemaining(t, period), 0)
}
