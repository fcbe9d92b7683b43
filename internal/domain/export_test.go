package domain

import "time"

// SetClock подменяет источник времени и возвращает функцию восстановления.
func SetClock(clock func() time.Time) (restore func()) {
	prev := now
	now = clock
	return func() { now = prev }
}
