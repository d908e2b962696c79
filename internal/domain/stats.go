package domain

import (
	"math"
	"sort"

	"example.com/coursetrack/internal/calendar"
)

// DaySet is a set of program day numbers.
type DaySet map[int]struct{}

// Contains reports whether day is in the set.
func (s DaySet) Contains(day int) bool {
	_, ok := s[day]
	return ok
}

// Len returns the number of days in the set.
func (s DaySet) Len() int { return len(s) }

// Sorted returns the days in ascending order.
func (s DaySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for day := range s {
		out = append(out, day)
	}
	sort.Ints(out)
	return out
}

// UserStats is the aggregate snapshot derived from a user's progress records.
type UserStats struct {
	TotalDaysCompleted    int
	TotalHoursLearned     float64
	CurrentStreak         int
	LongestStreak         int
	AverageQuizScore      float64
	CompletionPercent     float64
	PlannedHoursCompleted int
}

// WeekProgress summarises completion within one program week.
type WeekProgress struct {
	Week           int
	Days           []int
	CompletedDays  []int
	PlannedHours   int
	CompletedHours int
}

// latestByDay keeps one record per in-range day, preferring the most recently updated.
func latestByDay(records []ProgressRecord) map[int]ProgressRecord {
	byDay := make(map[int]ProgressRecord, len(records))
	for _, rec := range records {
		if calendar.ValidateDay(rec.Day) != nil {
			continue
		}
		if prev, ok := byDay[rec.Day]; ok && prev.UpdatedAt.After(rec.UpdatedAt) {
			continue
		}
		byDay[rec.Day] = rec
	}
	return byDay
}

// CompletedDaySet returns the days whose record is marked completed.
func CompletedDaySet(records []ProgressRecord) DaySet {
	set := make(DaySet)
	for day, rec := range latestByDay(records) {
		if rec.Completed {
			set[day] = struct{}{}
		}
	}
	return set
}

// ComputeStats derives every aggregate from records in one pass over the program.
//
// CurrentStreak is anchored at the last program day: it counts completed days
// walking back from day 90 and stops at the first gap. It is not relative to
// the calendar date.
func ComputeStats(records []ProgressRecord) UserStats {
	byDay := latestByDay(records)

	var (
		stats        UserStats
		minutes      int
		scoreSum     int
		scoreCount   int
		run          int
		completedSet = make(DaySet)
	)

	for day := 1; day <= calendar.TotalDays; day++ {
		rec, ok := byDay[day]
		if !ok || !rec.Completed {
			run = 0
			continue
		}
		completedSet[day] = struct{}{}
		run++
		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
		if rec.TimeSpentMinutes != nil {
			minutes += *rec.TimeSpentMinutes
		}
		if rec.QuizScore != nil {
			scoreSum += *rec.QuizScore
			scoreCount++
		}
		if hours, err := calendar.TimeAllocation(day); err == nil {
			stats.PlannedHoursCompleted += hours
		}
	}

	for day := calendar.TotalDays; day >= 1 && completedSet.Contains(day); day-- {
		stats.CurrentStreak++
	}

	stats.TotalDaysCompleted = completedSet.Len()
	stats.TotalHoursLearned = roundTenth(float64(minutes) / 60)
	if scoreCount > 0 {
		stats.AverageQuizScore = roundTenth(float64(scoreSum) / float64(scoreCount))
	}
	stats.CompletionPercent = roundTenth(float64(stats.TotalDaysCompleted) / calendar.TotalDays * 100)
	return stats
}

// WeeklyBreakdown groups completion by program week.
func WeeklyBreakdown(records []ProgressRecord) []WeekProgress {
	completed := CompletedDaySet(records)
	weeks := make([]WeekProgress, 0, calendar.TotalWeeks)
	for week := 1; week <= calendar.TotalWeeks; week++ {
		days, _ := calendar.WeekDays(week)
		wp := WeekProgress{Week: week, Days: days, CompletedDays: []int{}}
		for _, day := range days {
			hours, _ := calendar.TimeAllocation(day)
			wp.PlannedHours += hours
			if completed.Contains(day) {
				wp.CompletedDays = append(wp.CompletedDays, day)
				wp.CompletedHours += hours
			}
		}
		weeks = append(weeks, wp)
	}
	return weeks
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
