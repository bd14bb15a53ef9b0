package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/webstream-tools/pwi-gateway/internal/browser"
)

const (
	grievancePath = "/resource/frmStudentGrievance.jsp"
	leavePath     = "/resource/frmStudentLeave.jsp"

	grievanceCategorySelector = "#cmbGrievanceType"
	grievanceTextSelector     = "#txtGrievance"
	grievanceSubmitSelector   = "#btnSubmit"

	leaveFromSelector   = "#txtFromDate"
	leaveToSelector     = "#txtToDate"
	leaveReasonSelector = "#txtReason"
	leaveSubmitSelector = "#btnApply"

	confirmationSelector = "#lblMessage"
)

// SubmitGrievance files a grievance through the portal form and returns the
// portal's confirmation text.
func (p *Portal) SubmitGrievance(page browser.Page, category, text string) (string, error) {
	if err := page.Goto(p.PageURL(grievancePath)); err != nil {
		return "", fmt.Errorf("failed to open grievance form: %w", err)
	}
	if err := page.Fill(grievanceCategorySelector, category); err != nil {
		return "", fmt.Errorf("failed to fill grievance category: %w", err)
	}
	if err := page.Fill(grievanceTextSelector, text); err != nil {
		return "", fmt.Errorf("failed to fill grievance text: %w", err)
	}
	if err := page.ClickAndWait(grievanceSubmitSelector); err != nil {
		return "", fmt.Errorf("failed to submit grievance: %w", err)
	}
	return p.confirmation(page)
}

// SubmitLeave files a leave application through the portal form.
func (p *Portal) SubmitLeave(page browser.Page, from, to, reason string) (string, error) {
	if err := page.Goto(p.PageURL(leavePath)); err != nil {
		return "", fmt.Errorf("failed to open leave form: %w", err)
	}
	if err := page.Fill(leaveFromSelector, from); err != nil {
		return "", fmt.Errorf("failed to fill leave start date: %w", err)
	}
	if err := page.Fill(leaveToSelector, to); err != nil {
		return "", fmt.Errorf("failed to fill leave end date: %w", err)
	}
	if err := page.Fill(leaveReasonSelector, reason); err != nil {
		return "", fmt.Errorf("failed to fill leave reason: %w", err)
	}
	if err := page.ClickAndWait(leaveSubmitSelector); err != nil {
		return "", fmt.Errorf("failed to submit leave application: %w", err)
	}
	return p.confirmation(page)
}

func (p *Portal) confirmation(page browser.Page) (string, error) {
	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse confirmation page: %w", err)
	}
	msg := strings.TrimSpace(doc.Find(confirmationSelector).Text())
	if msg == "" {
		msg = "submitted"
	}
	return msg, nil
}
