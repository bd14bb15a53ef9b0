package scrape

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestExtractTableSkipsHeaderRows(t *testing.T) {
	d := doc(t, `<table id="tblDue">
		<tr><td>Description</td><td>Amount</td></tr>
		<tr><td>Tuition Fee</td><td>50000</td></tr>
		<tr><td>Exam Fee</td><td>1500</td></tr>
	</table>`)

	rows, total, err := extractTable(d, tablePolicy{
		Selector:   "#tblDue",
		HeaderRows: 1,
		Fields:     []string{"description", "amount"},
	})
	require.NoError(t, err)
	require.Nil(t, total)
	require.Len(t, rows, 2)
	require.Equal(t, "Tuition Fee", rows[0]["description"])
	require.Equal(t, "1500", rows[1]["amount"])
}

func TestExtractTableMatchesTotalRowByLabel(t *testing.T) {
	d := doc(t, `<table id="tblDue">
		<tr><td>Tuition Fee</td><td>50000</td></tr>
		<tr><td>Total</td><td>50000</td></tr>
	</table>`)

	rows, total, err := extractTable(d, tablePolicy{
		Selector:   "#tblDue",
		TotalLabel: "Total",
		Fields:     []string{"description", "amount"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, total)
	require.Equal(t, "50000", total["amount"])
}

func TestExtractTableTotalRowAbsent(t *testing.T) {
	// the portal omits the summary row when there is nothing to sum
	d := doc(t, `<table id="tblDue">
		<tr><td>Tuition Fee</td><td>50000</td></tr>
	</table>`)

	rows, total, err := extractTable(d, tablePolicy{
		Selector:   "#tblDue",
		TotalLabel: "Total",
		Fields:     []string{"description", "amount"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, total)
}

func TestExtractTableMissing(t *testing.T) {
	d := doc(t, `<html><body><p>Session timed out</p></body></html>`)

	_, _, err := extractTable(d, tablePolicy{Selector: "#tblDue"})
	require.Error(t, err)
}

func TestExtractTableFooterRows(t *testing.T) {
	d := doc(t, `<table id="tblFee">
		<tr><td>R1</td><td>01-06-2026</td><td>Tuition</td><td>50000</td></tr>
		<tr><td colspan="4">Generated by PWI</td></tr>
	</table>`)

	rows, _, err := extractTable(d, tablePolicy{
		Selector:   "#tblFee",
		FooterRows: 1,
		Fields:     []string{"receiptNo", "date", "description", "amount"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "R1", rows[0]["receiptNo"])
}

func TestNewTableResultSentinel(t *testing.T) {
	res := newTableResult(nil, nil)
	require.Equal(t, NoRecordsMessage, res.Message)
	require.NotNil(t, res.Records)
	require.Empty(t, res.Records)
}

func TestLabelValue(t *testing.T) {
	d := doc(t, `<table id="tblStudentProfile">
		<tr><td>Name</td><td>A Student</td></tr>
		<tr><td>Date of Birth</td><td>14-08-2005</td></tr>
	</table>`)

	got, err := labelValue(d, "#tblStudentProfile", "Date of Birth")
	require.NoError(t, err)
	require.Equal(t, "14-08-2005", got)

	_, err = labelValue(d, "#tblStudentProfile", "Blood Group")
	require.Error(t, err)
}
