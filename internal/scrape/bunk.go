package scrape

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webstream-tools/pwi-gateway/internal/store"
)

// classDaysPerSem is the fixed count of teaching days per weekday in one
// semester, per the academic calendar.
var classDaysPerSem = map[string]int{
	"Monday":    15,
	"Tuesday":   16,
	"Wednesday": 16,
	"Thursday":  16,
	"Friday":    16,
}

// BunkProjection is the permissible-absence projection: projected semester
// class count per course, and 20% of it (floored) as the allowance.
type BunkProjection struct {
	PerSem   map[string]int `json:"perSem"`
	PerSem20 map[string]int `json:"perSem20"`
}

// deriveBunk computes the projection from the previously scraped timetable.
// It never navigates; a missing timetable is a precondition failure.
func deriveBunk(e *Engine, ctx context.Context, identifier string) (any, error) {
	cached, err := store.ReadCategory(ctx, e.store, identifier, "timetable")
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, fmt.Errorf("timetable has not been scraped yet")
	}

	var timetable map[string][]string
	if err := json.Unmarshal(cached.Data, &timetable); err != nil {
		return nil, fmt.Errorf("stored timetable is malformed: %w", err)
	}
	return projectBunk(timetable), nil
}

func projectBunk(timetable map[string][]string) BunkProjection {
	perDay := make(map[string]map[string]int)
	for day, slots := range timetable {
		counts := make(map[string]int)
		for _, course := range slots {
			if course == "" || course == "-" {
				continue
			}
			counts[course]++
		}
		perDay[day] = counts
	}

	perSem := make(map[string]int)
	for day, counts := range perDay {
		mult := classDaysPerSem[day]
		for course, n := range counts {
			perSem[course] += n * mult
		}
	}

	perSem20 := make(map[string]int, len(perSem))
	for course, total := range perSem {
		perSem20[course] = int(0.20 * float64(total))
	}
	return BunkProjection{PerSem: perSem, PerSem20: perSem20}
}
