package todo

import (
	"fmt"
	"math"
	"strings"
)

// Summary aggregates a record list. Count maps only hold values that occur.
type Summary struct {
	Total          int              `json:"total"`
	StatusCounts   map[Status]int   `json:"status_counts"`
	PriorityCounts map[Priority]int `json:"priority_counts"`
	CompletionRate float64          `json:"completion_rate"`
}

func Summarize(rs []Record) Summary {
	s := Summary{
		Total:          len(rs),
		StatusCounts:   map[Status]int{},
		PriorityCounts: map[Priority]int{},
	}
	for _, r := range rs {
		s.StatusCounts[r.Status]++
		s.PriorityCounts[r.Priority]++
	}
	s.CompletionRate = CompletionRate(s.StatusCounts[StatusCompleted], s.Total)
	return s
}

// CompletionRate is completed/total as a percentage rounded to one decimal.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0.0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// Describe renders the counts as "Status: 2 pending, 1 completed; Priority: 3 high".
func (s Summary) Describe() string {
	var parts []string
	var st []string
	for _, v := range Statuses {
		if n := s.StatusCounts[v]; n > 0 {
			st = append(st, fmt.Sprintf("%d %s", n, v))
		}
	}
	if len(st) > 0 {
		parts = append(parts, "Status: "+strings.Join(st, ", "))
	}
	var pr []string
	for _, v := range Priorities {
		if n := s.PriorityCounts[v]; n > 0 {
			pr = append(pr, fmt.Sprintf("%d %s", n, v))
		}
	}
	if len(pr) > 0 {
		parts = append(parts, "Priority: "+strings.Join(pr, ", "))
	}
	return strings.Join(parts, "; ")
}
