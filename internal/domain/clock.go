package domain

import "time"

// now — источник текущего времени для агрегатов; в тестах подменяется.
var now = func() time.Time { return time.Now().UTC() }

// dateOf отбрасывает время суток: календарная дата берётся в зоне t
// и хранится как полночь UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func today() time.Time { return dateOf(now()) }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
