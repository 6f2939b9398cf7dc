package models

import "time"

// ScheduleTemplate is a named, reusable smart-schedule definition: a set of
// times of day, the weekdays they apply to, and a random offset window that
// spreads pages sharing the template apart.
type ScheduleTemplate struct {
	ID                  int64     `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Times               []string  `db:"times" json:"times"`
	Days                []string  `db:"days" json:"days"`
	RandomOffsetMinutes int       `db:"random_offset" json:"random_offset"`
	IsDefault           bool      `db:"is_default" json:"is_default"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

var AllWeekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
