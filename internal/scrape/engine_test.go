package scrape

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webstream-tools/pwi-gateway/internal/browser/browsertest"
	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/session"
	"github.com/webstream-tools/pwi-gateway/internal/store"
)

const testBase = "https://portal.test"

type fakeResolver struct {
	sess *session.Session
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakeUploader struct {
	url string
}

func (f *fakeUploader) Upload(ctx context.Context, image []byte) (string, error) {
	return f.url, nil
}

func setupEngine(t *testing.T) (*Engine, *browsertest.FakePool, *store.Memory) {
	t.Helper()

	pool := &browsertest.FakePool{
		PageHTML: map[string]string{
			testBase + "/academy/frmStudentAttendance.jsp": `<table id="tblAttendance">
				<tr><td>Code</td><td>Description</td><td>Max</td><td>Present</td><td>%</td></tr>
				<tr><td>CSE101</td><td>Data Structures</td><td>40</td><td>36</td><td>90.00</td></tr>
			</table>`,
			testBase + "/academy/frmHourWiseAttendance.jsp": `<table id="tblHourAttendance">
				<tr><td colspan="4">June 2026</td></tr>
				<tr><td>Date</td><td>Hour</td><td>Code</td><td>Status</td></tr>
				<tr><td>01-06-2026</td><td>1</td><td>CSE101</td><td>P</td></tr>
			</table>`,
			testBase + "/resource/frmStudentProfile.jsp": `<table id="tblStudentProfile">
				<tr><td>Name</td><td>A Student</td></tr>
				<tr><td>Date of Birth</td><td>14-08-2005</td></tr>
				<tr><td>Student Status</td><td>Active</td></tr>
			</table><img id="imgStudentPhoto" src="photo.jpg">`,
			testBase + "/academy/frmTimeTable.jsp": `<table id="tblTimeTable">
				<tr><td>Monday</td><td>CSE101</td><td>-</td></tr>
				<tr><td>Wednesday</td><td>CSE101</td><td>MAT201</td></tr>
			</table>`,
		},
		AfterSubmitHTML: `<span id="lblMessage">Submitted successfully</span>`,
	}

	bctx, err := pool.NewContext()
	require.NoError(t, err)

	mem := store.NewMemory()
	resolver := &fakeResolver{sess: &session.Session{
		Token:      "tok",
		Identifier: "126001001",
		Context:    bctx,
	}}

	engine := NewEngine(resolver, mem, portal.New(testBase), &fakeUploader{url: "https://img.test/p.png"})
	return engine, pool, mem
}

func TestRunScrapesAndCaches(t *testing.T) {
	engine, pool, _ := setupEngine(t)
	ctx := context.Background()

	first, err := engine.Run(ctx, "tok", "attendance", false)
	require.NoError(t, err)
	navsAfterFirst := pool.Navigations()
	require.Equal(t, 1, navsAfterFirst)

	var res tableResult
	require.NoError(t, json.Unmarshal(first.Data, &res))
	require.Len(t, res.Records, 1)
	require.Equal(t, "CSE101", res.Records[0]["code"])
	require.NotEmpty(t, res.Records[0]["marginHours"])

	// second call is served from cache, byte-identical and without navigating
	second, err := engine.Run(ctx, "tok", "attendance", false)
	require.NoError(t, err)
	require.Equal(t, first.Data, second.Data)
	require.Equal(t, first.LastUpdated, second.LastUpdated)
	require.Equal(t, navsAfterFirst, pool.Navigations())
}

func TestRunForceRefreshBypassesCache(t *testing.T) {
	engine, pool, _ := setupEngine(t)
	ctx := context.Background()

	first, err := engine.Run(ctx, "tok", "attendance", false)
	require.NoError(t, err)

	refreshed, err := engine.Run(ctx, "tok", "attendance", true)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Navigations())
	require.False(t, refreshed.LastUpdated.Before(first.LastUpdated))
}

func TestRunClosesPage(t *testing.T) {
	engine, pool, _ := setupEngine(t)

	_, err := engine.Run(context.Background(), "tok", "attendance", false)
	require.NoError(t, err)

	bctx := pool.Contexts[0]
	require.Len(t, bctx.Pages, 1)
	require.True(t, bctx.Pages[0].Closed)
	require.False(t, bctx.Closed, "scrapes must not close the session context")
}

func TestRunMirrorsHourWiseAttendance(t *testing.T) {
	engine, _, mem := setupEngine(t)
	ctx := context.Background()

	value, err := engine.Run(ctx, "tok", "hourWiseAttendance", false)
	require.NoError(t, err)

	mirrored, ok, err := mem.Get(ctx, store.CollOD, "126001001")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, string(value.Data), string(mirrored))
}

func TestRunScrapeFailureIsTypedAndNonFatal(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	// the grade summary page is not in the fixture set, so the table is missing
	_, err := engine.Run(ctx, "tok", "sgpa", false)
	var catErr *CategoryError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, "sgpa", catErr.Category)

	// the session keeps working afterwards
	_, err = engine.Run(ctx, "tok", "attendance", false)
	require.NoError(t, err)
}

func TestRunUnknownCategory(t *testing.T) {
	engine, _, _ := setupEngine(t)

	_, err := engine.Run(context.Background(), "tok", "gpa", false)
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestRunDerivesBunkFromTimetable(t *testing.T) {
	engine, pool, _ := setupEngine(t)
	ctx := context.Background()

	_, err := engine.Run(ctx, "tok", "timetable", false)
	require.NoError(t, err)
	navs := pool.Navigations()

	value, err := engine.Run(ctx, "tok", "bunk", false)
	require.NoError(t, err)
	require.Equal(t, navs, pool.Navigations(), "bunk derives without navigating")

	var proj BunkProjection
	require.NoError(t, json.Unmarshal(value.Data, &proj))
	require.Equal(t, 31, proj.PerSem["CSE101"])
	require.Equal(t, 6, proj.PerSem20["CSE101"])
	require.Equal(t, 16, proj.PerSem["MAT201"])
	require.Equal(t, 3, proj.PerSem20["MAT201"])
}

func TestRunBunkWithoutTimetable(t *testing.T) {
	engine, _, _ := setupEngine(t)

	_, err := engine.Run(context.Background(), "tok", "bunk", false)
	var catErr *CategoryError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, "bunk", catErr.Category)
}

func TestProfilePicUploadsScreenshot(t *testing.T) {
	engine, _, _ := setupEngine(t)

	value, err := engine.Run(context.Background(), "tok", "profilePic", false)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(value.Data, &got))
	require.Equal(t, "https://img.test/p.png", got["url"])
}

func TestSubmitGrievanceAppendsHistory(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	first, err := engine.SubmitGrievance(ctx, "tok", "Hostel", "No hot water")
	require.NoError(t, err)

	var history []map[string]string
	require.NoError(t, json.Unmarshal(first.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, "Submitted successfully", history[0]["status"])

	second, err := engine.SubmitGrievance(ctx, "tok", "Mess", "Menu repeats")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(second.Data, &history))
	require.Len(t, history, 2)
	require.Equal(t, "No hot water", history[0]["text"])
	require.Equal(t, "Menu repeats", history[1]["text"])
}

func TestSubmitLeaveAppendsHistory(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	value, err := engine.SubmitLeave(ctx, "tok", "01-07-2026", "03-07-2026", "Family function")
	require.NoError(t, err)

	var history []map[string]string
	require.NoError(t, json.Unmarshal(value.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, "01-07-2026", history[0]["from"])
}

func TestRunResolverFailure(t *testing.T) {
	mem := store.NewMemory()
	engine := NewEngine(&fakeResolver{err: session.ErrNoSession}, mem, portal.New(testBase), nil)

	_, err := engine.Run(context.Background(), "tok", "attendance", false)
	require.ErrorIs(t, err, session.ErrNoSession)
}
