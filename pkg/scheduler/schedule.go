package scheduler

import (
	"fmt"
	"time"
)

// Schedule computes the next run after a given time.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type interval struct {
	every time.Duration
}

func (s interval) Next(from time.Time) time.Time { return from.Add(s.every) }
func (s interval) String() string                { return fmt.Sprintf("every %v", s.every) }

type daily struct {
	hour, minute int
}

func (s daily) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s daily) String() string { return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute) }

type hourly struct {
	minute int
}

func (s hourly) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourly) String() string { return fmt.Sprintf("hourly at :%02d", s.minute) }

// Every runs at a fixed interval. Panics if d is not positive.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		panic("scheduler: interval must be positive")
	}
	return interval{every: d}
}

// DailyAt runs once a day at hour:minute in the location of the clock.
// Panics on an out of range time.
func DailyAt(hour, minute int) Schedule {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic(fmt.Sprintf("scheduler: invalid time of day %02d:%02d", hour, minute))
	}
	return daily{hour: hour, minute: minute}
}

// HourlyAt runs every hour at minute. Panics on an out of range minute.
func HourlyAt(minute int) Schedule {
	if minute < 0 || minute > 59 {
		panic(fmt.Sprintf("scheduler: invalid minute %d", minute))
	}
	return hourly{minute: minute}
}
