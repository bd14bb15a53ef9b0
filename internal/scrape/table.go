package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoRecordsMessage is the sentinel returned when a category's table exists
// but holds no data rows.
const NoRecordsMessage = "No records found"

// tablePolicy describes how to read one portal table: where it is, which rows
// are chrome rather than data, and what the columns are called. The portal's
// markup names nothing, so positions are all there is.
type tablePolicy struct {
	Selector   string
	HeaderRows int
	FooterRows int
	// TotalLabel, when set, matches a trailing summary row by exact text in
	// its first cell. Matching by text rather than index survives tables
	// that omit the row when empty.
	TotalLabel string
	Fields     []string
}

// extractTable reads a table into ordered flat records plus an optional
// summary row.
func extractTable(doc *goquery.Document, p tablePolicy) (rows []map[string]string, total map[string]string, err error) {
	table := doc.Find(p.Selector).First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("table %s not found", p.Selector)
	}

	var cells [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		// header rows use th and produce no cells
		if len(row) > 0 {
			cells = append(cells, row)
		}
	})

	if len(cells) > p.HeaderRows {
		cells = cells[p.HeaderRows:]
	} else {
		cells = nil
	}
	if p.FooterRows > 0 && len(cells) >= p.FooterRows {
		cells = cells[:len(cells)-p.FooterRows]
	}

	if p.TotalLabel != "" && len(cells) > 0 {
		last := cells[len(cells)-1]
		if last[0] == p.TotalLabel {
			total = mapRow(last, p.Fields)
			cells = cells[:len(cells)-1]
		}
	}

	for _, row := range cells {
		if len(row) == 1 && row[0] == NoRecordsMessage {
			continue
		}
		rows = append(rows, mapRow(row, p.Fields))
	}
	return rows, total, nil
}

func mapRow(cells, fields []string) map[string]string {
	record := make(map[string]string, len(fields))
	for i, name := range fields {
		if i < len(cells) {
			record[name] = cells[i]
		}
	}
	return record
}

// labelValue finds the row whose first cell equals label and returns the
// second cell. Profile-style pages are label/value tables.
func labelValue(doc *goquery.Document, tableSelector, label string) (string, error) {
	var value string
	found := false
	doc.Find(tableSelector).First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if found {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		if strings.TrimSpace(cells.Eq(0).Text()) == label {
			value = strings.TrimSpace(cells.Eq(1).Text())
			found = true
		}
	})
	if !found {
		return "", fmt.Errorf("label %q not found in %s", label, tableSelector)
	}
	return value, nil
}

// tableResult is the uniform JSON shape of a list-type category.
type tableResult struct {
	Records []map[string]string `json:"records"`
	Total   map[string]string   `json:"total,omitempty"`
	Message string              `json:"message,omitempty"`
}

func newTableResult(rows []map[string]string, total map[string]string) tableResult {
	res := tableResult{Records: rows, Total: total}
	if len(rows) == 0 {
		res.Records = []map[string]string{}
		res.Message = NoRecordsMessage
	}
	return res
}
