package browser_test

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"

	web "caretrack/internal/adapters/http"
	"caretrack/internal/adapters/email"
	"caretrack/internal/adapters/http/perf"
	"caretrack/internal/adapters/storage"
	accountStore "caretrack/internal/adapters/storage/account"
	programStore "caretrack/internal/adapters/storage/program"
	"caretrack/internal/application/orchestrators"
	"caretrack/internal/config"
	"caretrack/internal/domain/account"
)

const (
	adminUsername = "admin"
	adminPassword = "TestPass123!"
	staffUsername = "worker"
	staffPassword = "StaffPass123!"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Stores  *web.Stores
	Sender  *email.NoopSender
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp creates a fully wired app on a temp SQLite file and starts an HTTP server.
// It skips the test when short mode is on or no browser can be launched.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	account.HashCost = 4

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(dbPath, 4)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	accounts := accountStore.NewSQLiteStore(db)
	stores := &web.Stores{
		AccountStore: accounts,
		ProgramStore: programStore.NewSQLiteStore(db),
		DB:           db,
	}

	ctx := context.Background()
	deps := orchestrators.CreateAccountDeps{AccountStore: accounts}
	for _, in := range []orchestrators.CreateAccountInput{
		{Username: adminUsername, Password: adminPassword, Role: account.RoleAdmin},
		{Username: staffUsername, Password: staffPassword, Role: account.RoleStaff},
	} {
		if _, err := orchestrators.ExecuteCreateAccount(ctx, in, deps); err != nil {
			t.Fatalf("failed to create %s: %v", in.Username, err)
		}
	}

	cfg := config.Defaults()
	cfg.Server.RateLimit = 10000
	cfg.Auth.CSRFKeyHex = strings.Repeat("cd", 32)
	sender := email.NewNoopSender()
	mux, err := web.NewMux(cfg, stores, perf.NewCollector(256), sender)
	if err != nil {
		t.Fatalf("NewMux() error = %v", err)
	}
	srv := httptest.NewServer(mux)

	pw, err := playwright.Run()
	if err != nil {
		srv.Close()
		db.Close()
		t.Skipf("playwright not available: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		srv.Close()
		db.Close()
		t.Skipf("failed to launch browser: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return &testApp{
		BaseURL: srv.URL,
		DB:      db,
		Stores:  stores,
		Sender:  sender,
		PW:      pw,
		Browser: browser,
	}
}

// newPage creates a new browser page (tab) with its own cookie jar.
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	bctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	t.Cleanup(func() { bctx.Close() })
	page, err := bctx.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	return page
}

// login signs in through the login form and waits for the dashboard.
func (a *testApp) login(t *testing.T, page playwright.Page, username, password string) {
	t.Helper()
	a.goTo(t, page, "/login")
	fill(t, page, "input[name=username]", username)
	fill(t, page, "input[name=password]", password)
	click(t, page, "button[type=submit]")
	if err := page.WaitForURL(a.BaseURL+"/dashboard", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to dashboard: %v", err)
	}
}

func (a *testApp) goTo(t *testing.T, page playwright.Page, path string) playwright.Response {
	t.Helper()
	resp, err := page.Goto(a.BaseURL + path)
	if err != nil {
		t.Fatalf("failed to navigate to %s: %v", path, err)
	}
	return resp
}

func fill(t *testing.T, page playwright.Page, selector, value string) {
	t.Helper()
	if err := page.Locator(selector).First().Fill(value); err != nil {
		t.Fatalf("failed to fill %s: %v", selector, err)
	}
}

func click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	if err := page.Locator(selector).First().Click(); err != nil {
		t.Fatalf("failed to click %s: %v", selector, err)
	}
}

func bodyText(t *testing.T, page playwright.Page) string {
	t.Helper()
	text, err := page.Locator("main").TextContent()
	if err != nil {
		t.Fatalf("failed to read page text: %v", err)
	}
	return text
}

func count(t *testing.T, page playwright.Page, selector string) int {
	t.Helper()
	n, err := page.Locator(selector).Count()
	if err != nil {
		t.Fatalf("failed to count %s: %v", selector, err)
	}
	return n
}
