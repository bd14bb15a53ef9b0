package scrape

import (
	"fmt"
	"strconv"
)

// margin is how many hours a student can still miss (positive attendance
// headroom) or must attend (negative headroom) against the portal's 75%
// floor.
type margin struct {
	Hours   int
	Message string
}

// withMargin annotates each attendance record with its margin numbers.
func withMargin(res *tableResult) error {
	for _, record := range res.Records {
		tot, err1 := strconv.Atoi(record["totalHours"])
		att, err2 := strconv.Atoi(record["presentHours"])
		if err1 != nil || err2 != nil || tot == 0 {
			continue
		}
		m := calculateMargin(att, tot)
		record["marginHours"] = strconv.Itoa(m.Hours)
		record["marginMessage"] = m.Message
	}
	return nil
}

func calculateMargin(att, tot int) margin {
	initial := float64(att) / float64(tot) * 100

	switch {
	case initial >= 76:
		n := 0
		for {
			pct := float64(att) / float64(tot+n) * 100
			if pct <= 76 {
				return margin{
					Hours: n - 1,
					Message: fmt.Sprintf(
						"You can miss %d more hours and stay at %d / %d = %.2f%%",
						n-1, att, tot+(n-1),
						float64(att)/float64(tot+(n-1))*100,
					),
				}
			}
			n++
		}
	case initial >= 75:
		return margin{
			Hours:   0,
			Message: fmt.Sprintf("Attendance is at %.2f%%; no headroom above the 75%% floor.", initial),
		}
	default:
		n := 0
		for {
			pct := float64(att+n) / float64(tot+n) * 100
			if pct >= 75 {
				return margin{
					Hours:   n,
					Message: fmt.Sprintf("You need to attend %d more hours to reach %d / %d = %.2f%%", n, att+n, tot+n, pct),
				}
			}
			n++
		}
	}
}
