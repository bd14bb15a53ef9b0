package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/webstream-tools/pwi-gateway/internal/browser"
)

const (
	profilePath      = "/resource/frmStudentProfile.jsp"
	profilePicSel    = "#imgStudentPhoto"
	gradeSummaryPath = "/exam/frmGradeSummary.jsp"
)

// categories is the full catalog of scrape categories. Each entry is policy
// data; the procedural scraping lives once in the engine.
func categories() []Category {
	return []Category{
		{
			Name:    "profile",
			Path:    profilePath,
			Extract: extractProfile,
		},
		{
			Name:    "profilePic",
			Path:    profilePath,
			Capture: captureProfilePic,
		},
		{
			Name: "attendance",
			Path: "/academy/frmStudentAttendance.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblAttendance",
				HeaderRows: 1,
				Fields:     []string{"code", "description", "totalHours", "presentHours", "percentage"},
			}, withMargin),
		},
		{
			Name: "sastraDue",
			Path: "/accounts/frmStudentDue.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblDue",
				TotalLabel: "Total",
				Fields:     []string{"description", "amount"},
			}, nil),
		},
		{
			Name: "hostelDue",
			Path: "/accounts/frmHostelDue.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblHostelDue",
				TotalLabel: "Total",
				Fields:     []string{"description", "amount"},
			}, nil),
		},
		{
			Name: "feeCollections",
			Path: "/accounts/frmFeeCollection.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblFeeCollection",
				HeaderRows: 1,
				TotalLabel: "Total",
				Fields:     []string{"receiptNo", "date", "description", "amount"},
			}, nil),
		},
		{
			Name: "examSchedule",
			Path: "/exam/frmExamSchedule.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblExamSchedule",
				HeaderRows: 1,
				Fields:     []string{"date", "session", "subjectCode", "subjectName"},
			}, nil),
		},
		{
			Name: "subjectWiseAttendance",
			Path: "/academy/frmSubjectWiseAttendance.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblSubjectAttendance",
				HeaderRows: 1,
				Fields:     []string{"subjectCode", "subjectName", "totalHours", "presentHours", "percentage"},
			}, nil),
		},
		{
			Name: "hourWiseAttendance",
			Path: "/academy/frmHourWiseAttendance.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblHourAttendance",
				HeaderRows: 2, // the portal stacks a date band above the column header
				Fields:     []string{"date", "hour", "subjectCode", "status"},
			}, nil),
			Mirror: "OD",
		},
		{
			Name: "semGrades",
			Path: "/exam/frmSemGrades.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblGrades",
				HeaderRows: 1,
				Fields:     []string{"semester", "subjectCode", "subjectName", "credits", "grade"},
			}, nil),
		},
		{
			Name: "internalMarks",
			Path: "/exam/frmInternalMarks.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblInternalMarks",
				HeaderRows: 1,
				Fields:     []string{"subjectCode", "subjectName", "obtained", "maximum"},
			}, nil),
		},
		{
			Name: "ciaWiseInternalMarks",
			Path: "/exam/frmCIAMarks.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblCIAMarks",
				HeaderRows: 2, // CIA columns carry a grouped two-row header
				Fields:     []string{"subjectCode", "subjectName", "cia1", "cia2", "cia3"},
			}, nil),
		},
		{
			Name:    "studentStatus",
			Path:    profilePath,
			Extract: labelExtractor("#tblStudentProfile", "Student Status", "status"),
		},
		{
			Name:    "sgpa",
			Path:    gradeSummaryPath,
			Extract: labelExtractor("#tblGradeSummary", "SGPA", "sgpa"),
		},
		{
			Name:    "cgpa",
			Path:    gradeSummaryPath,
			Extract: labelExtractor("#tblGradeSummary", "CGPA", "cgpa"),
		},
		{
			Name:    "dob",
			Path:    profilePath,
			Extract: labelExtractor("#tblStudentProfile", "Date of Birth", "dob"),
		},
		{
			Name: "facultyList",
			Path: "/academy/frmFacultyList.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblFaculty",
				HeaderRows: 1,
				Fields:     []string{"subjectCode", "subjectName", "facultyName"},
			}, nil),
		},
		{
			Name:    "currentSemCredits",
			Path:    gradeSummaryPath,
			Extract: labelExtractor("#tblGradeSummary", "Registered Credits", "credits"),
		},
		{
			Name:    "timetable",
			Path:    "/academy/frmTimeTable.jsp",
			Extract: extractTimetable,
		},
		{
			Name: "courseMap",
			Path: "/academy/frmCourseMap.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblCourseMap",
				HeaderRows: 1,
				Fields:     []string{"subjectCode", "subjectName", "category", "credits"},
			}, nil),
		},
		{
			Name: "leaveHistory",
			Path: "/resource/frmLeaveHistory.jsp",
			Extract: tableExtractor(tablePolicy{
				Selector:   "#tblLeaveHistory",
				HeaderRows: 1,
				Fields:     []string{"from", "to", "reason", "status"},
			}, nil),
		},
		{
			Name:   "bunk",
			Derive: deriveBunk,
		},
	}
}

// tableExtractor builds a doc extractor from a table policy, with an optional
// post-processing step over the extracted result.
func tableExtractor(p tablePolicy, post func(*tableResult) error) func(*goquery.Document) (any, error) {
	return func(doc *goquery.Document) (any, error) {
		rows, total, err := extractTable(doc, p)
		if err != nil {
			return nil, err
		}
		res := newTableResult(rows, total)
		if post != nil {
			if err := post(&res); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
}

// labelExtractor pulls one labeled value out of a label/value table.
func labelExtractor(tableSelector, label, field string) func(*goquery.Document) (any, error) {
	return func(doc *goquery.Document) (any, error) {
		value, err := labelValue(doc, tableSelector, label)
		if err != nil {
			return nil, err
		}
		return map[string]string{field: value}, nil
	}
}

// extractProfile reads the whole label/value profile table into one flat map.
func extractProfile(doc *goquery.Document) (any, error) {
	rows, _, err := extractTable(doc, tablePolicy{
		Selector: "#tblStudentProfile",
		Fields:   []string{"label", "value"},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile table is empty")
	}
	profile := make(map[string]string, len(rows))
	for _, row := range rows {
		if row["label"] != "" {
			profile[row["label"]] = row["value"]
		}
	}
	return profile, nil
}

// extractTimetable reads the weekly grid: first cell is the day, the rest are
// the hour slots in order. Empty slots ("-") are kept so hour indexes stay
// aligned.
func extractTimetable(doc *goquery.Document) (any, error) {
	// extractTable maps by fixed field names; the timetable's column count
	// varies by semester, so this one reads the raw cells itself.
	table := doc.Find("#tblTimeTable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table #tblTimeTable not found")
	}
	days := make(map[string][]string)
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		day := trimmed(cells.Eq(0))
		var slots []string
		for j := 1; j < cells.Length(); j++ {
			slots = append(slots, trimmed(cells.Eq(j)))
		}
		days[day] = slots
	})
	if len(days) == 0 {
		return nil, fmt.Errorf("timetable grid is empty")
	}
	return days, nil
}

func trimmed(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// captureProfilePic screenshots the portrait element and republishes it via
// the image-hosting collaborator.
func captureProfilePic(e *Engine, ctx context.Context, page browser.Page) (any, error) {
	if err := page.Goto(e.portal.PageURL(profilePath)); err != nil {
		return nil, err
	}
	img, err := page.ElementScreenshot(profilePicSel)
	if err != nil {
		return nil, err
	}
	url, err := e.images.Upload(ctx, img)
	if err != nil {
		return nil, err
	}
	return map[string]string{"url": url}, nil
}
