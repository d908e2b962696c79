// Package calendar maps program day numbers onto the fixed 90-day schedule.
//
// Day 1 is always a Monday. Weekends carry a longer study block than weekdays.
package calendar

import (
	"fmt"
	"time"
)

const (
	// TotalDays is the length of the program.
	TotalDays = 90
	// DaysPerWeek is the number of program days in a week.
	DaysPerWeek = 7
	// TotalWeeks is the number of (possibly partial) weeks in the program.
	TotalWeeks = (TotalDays + DaysPerWeek - 1) / DaysPerWeek
	// WeekdayHours is the study allocation for Monday through Friday.
	WeekdayHours = 1
	// WeekendHours is the study allocation for Saturday and Sunday.
	WeekendHours = 3
)

// InvalidDayError is returned when a day number falls outside [1, TotalDays].
type InvalidDayError struct {
	Day int
}

func (e *InvalidDayError) Error() string {
	return fmt.Sprintf("day %d is outside the program range 1-%d", e.Day, TotalDays)
}

// InvalidWeekError is returned when a week number falls outside [1, TotalWeeks].
type InvalidWeekError struct {
	Week int
}

func (e *InvalidWeekError) Error() string {
	return fmt.Sprintf("week %d is outside the program range 1-%d", e.Week, TotalWeeks)
}

// DayDescriptor bundles the calendar attributes of a single program day.
type DayDescriptor struct {
	Day                 int    `json:"day"`
	IsWeekend           bool   `json:"is_weekend"`
	TimeAllocationHours int    `json:"time_allocation_hours"`
	WeekdayName         string `json:"weekday_name"`
	WeekNumber          int    `json:"week_number"`
}

// ValidateDay reports whether day is part of the program.
func ValidateDay(day int) error {
	if day < 1 || day > TotalDays {
		return &InvalidDayError{Day: day}
	}
	return nil
}

// Weekday returns the weekday of day, counting day 1 as Monday.
func Weekday(day int) (time.Weekday, error) {
	if err := ValidateDay(day); err != nil {
		return 0, err
	}
	// time.Weekday is Sunday=0, so offset 1..7 lands Monday=1 .. Sunday=0.
	offset := ((day - 1) % DaysPerWeek) + 1
	return time.Weekday(offset % DaysPerWeek), nil
}

// DayOfWeekName returns "Monday" through "Sunday".
func DayOfWeekName(day int) (string, error) {
	wd, err := Weekday(day)
	if err != nil {
		return "", err
	}
	return wd.String(), nil
}

// IsWeekend reports whether day falls on a Saturday or Sunday.
func IsWeekend(day int) (bool, error) {
	wd, err := Weekday(day)
	if err != nil {
		return false, err
	}
	return wd == time.Saturday || wd == time.Sunday, nil
}

// TimeAllocation returns the study hours allotted to day.
func TimeAllocation(day int) (int, error) {
	weekend, err := IsWeekend(day)
	if err != nil {
		return 0, err
	}
	if weekend {
		return WeekendHours, nil
	}
	return WeekdayHours, nil
}

// WeekNumber returns ceil(day / 7).
func WeekNumber(day int) (int, error) {
	if err := ValidateDay(day); err != nil {
		return 0, err
	}
	return (day + DaysPerWeek - 1) / DaysPerWeek, nil
}

// Describe returns every calendar attribute of day.
func Describe(day int) (DayDescriptor, error) {
	wd, err := Weekday(day)
	if err != nil {
		return DayDescriptor{}, err
	}
	weekend := wd == time.Saturday || wd == time.Sunday
	hours := WeekdayHours
	if weekend {
		hours = WeekendHours
	}
	return DayDescriptor{
		Day:                 day,
		IsWeekend:           weekend,
		TimeAllocationHours: hours,
		WeekdayName:         wd.String(),
		WeekNumber:          (day + DaysPerWeek - 1) / DaysPerWeek,
	}, nil
}

// WeekDays lists the program days in week, clipped at TotalDays.
func WeekDays(week int) ([]int, error) {
	if week < 1 || week > TotalWeeks {
		return nil, &InvalidWeekError{Week: week}
	}
	start := (week-1)*DaysPerWeek + 1
	days := make([]int, 0, DaysPerWeek)
	for d := start; d < start+DaysPerWeek && d <= TotalDays; d++ {
		days = append(days, d)
	}
	return days, nil
}

// CurrentWeekDays lists the program days sharing a week with day.
func CurrentWeekDays(day int) ([]int, error) {
	week, err := WeekNumber(day)
	if err != nil {
		return nil, err
	}
	return WeekDays(week)
}

// Program returns descriptors for every day of the program in order.
func Program() []DayDescriptor {
	out := make([]DayDescriptor, 0, TotalDays)
	for day := 1; day <= TotalDays; day++ {
		desc, _ := Describe(day)
		out = append(out, desc)
	}
	return out
}
