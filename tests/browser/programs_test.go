package browser_test

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

var programPath = regexp.MustCompile(`/programs/[0-9a-f-]{36}$`)

// TestProgramLifecycle defines a program, records an entry and checks it is charted.
func TestProgramLifecycle(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	app.login(t, page, adminUsername, adminPassword)

	app.goTo(t, page, "/programs/new")
	fill(t, page, "input[name=name]", "Scholarships")
	fill(t, page, "textarea[name=description]", "Awards paid to **families**")
	fill(t, page, "input[name=field_name]", "amount")
	fill(t, page, "input[name=field_label]", "Amount")
	if _, err := page.Locator("select[name=field_type]").First().SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice("number"),
	}); err != nil {
		t.Fatalf("failed to pick field type: %v", err)
	}
	click(t, page, "input[name=field_required]")
	click(t, page, `form[action="/programs"] button[type=submit]`)

	if err := page.WaitForURL(programPath, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("create did not redirect to the program: %v", err)
	}
	if n := count(t, page, "article.description strong"); n != 1 {
		t.Errorf("description rendered %d <strong> elements, want 1", n)
	}
	programURL := page.URL()

	// The entry form preloads today's date.
	today := time.Now().Format("2006-01-02")
	got, err := page.Locator("input[name=date_column]").InputValue()
	if err != nil {
		t.Fatalf("failed to read date input: %v", err)
	}
	if got != today {
		t.Errorf("date_column = %q, want %q", got, today)
	}

	fill(t, page, "input[name=amount]", "125.5")
	click(t, page, `form[action$="/data"] button[type=submit]`)
	if err := page.Locator("p.flash").WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("entry was not confirmed: %v", err)
	}
	if _, err := page.Goto(programURL + "/data"); err != nil {
		t.Fatalf("failed to open data: %v", err)
	}
	if text := bodyText(t, page); !strings.Contains(text, "125.5") {
		t.Errorf("data page does not list the entry:\n%s", text)
	}

	if _, err := page.Goto(programURL + "/report"); err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	if n := count(t, page, "figure.chart svg"); n != 1 {
		t.Errorf("report shows %d charts, want 1", n)
	}
	if text := bodyText(t, page); !strings.Contains(text, "125.5") {
		t.Errorf("report total missing:\n%s", text)
	}

	app.goTo(t, page, "/dashboard")
	if text := bodyText(t, page); !strings.Contains(text, "Scholarships") {
		t.Errorf("dashboard does not list the program:\n%s", text)
	}
	if n := count(t, page, "figure.chart svg"); n != 1 {
		t.Errorf("dashboard shows %d charts, want 1", n)
	}
}

// TestEntryValidationKeepsInput checks a rejected entry re-renders the form with its values.
func TestEntryValidationKeepsInput(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	app.login(t, page, adminUsername, adminPassword)

	app.goTo(t, page, "/programs/new")
	fill(t, page, "input[name=name]", "Visits")
	fill(t, page, "input[name=field_name]", "hours")
	if _, err := page.Locator("select[name=field_type]").First().SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice("number"),
	}); err != nil {
		t.Fatalf("failed to pick field type: %v", err)
	}
	click(t, page, `form[action="/programs"] button[type=submit]`)
	if err := page.WaitForURL(programPath, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("create did not redirect: %v", err)
	}

	// Bypass the browser's own date check so the server sees the bad value.
	if _, err := page.Locator("input[name=date_column]").Evaluate(`el => { el.type = "text"; el.value = "tomorrow" }`, nil); err != nil {
		t.Fatalf("failed to edit date input: %v", err)
	}
	fill(t, page, "input[name=hours]", "3")
	click(t, page, `form[action$="/data"] button[type=submit]`)

	if err := page.Locator("p.error").WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("no error shown: %v", err)
	}
	got, err := page.Locator("input[name=hours]").InputValue()
	if err != nil {
		t.Fatalf("failed to read hours input: %v", err)
	}
	if got != "3" {
		t.Errorf("hours = %q after re-render, want 3", got)
	}
}

// TestStaffCannotManagePrograms checks admin-only controls are hidden from staff.
func TestStaffCannotManagePrograms(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	app.login(t, page, staffUsername, staffPassword)

	if n := count(t, page, `a[href="/programs/new"]`); n != 0 {
		t.Errorf("staff sees %d links to new program, want 0", n)
	}
	resp := app.goTo(t, page, "/programs/new")
	if resp.Status() != 403 {
		t.Errorf("GET /programs/new as staff = %d, want 403", resp.Status())
	}
}

// TestLogout checks signing out ends the session.
func TestLogout(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	app.login(t, page, adminUsername, adminPassword)

	click(t, page, "form.logout button[type=submit]")
	if err := page.WaitForURL(app.BaseURL+"/login", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("logout did not redirect to login: %v", err)
	}
	app.goTo(t, page, "/dashboard")
	if !strings.HasSuffix(page.URL(), "/login") {
		t.Errorf("after logout /dashboard landed on %s, want /login", page.URL())
	}
}
