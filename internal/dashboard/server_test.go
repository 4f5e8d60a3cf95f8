package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akimovd/deskbot/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.TaskEvent{}, &models.DeliveryFailure{}, &models.CartridgeChange{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	now := time.Now()
	events := []models.TaskEvent{
		{TaskID: 1, Kind: "created", Actor: "Ivanova A.", Detail: "Projector: no signal", At: now.Add(-2 * time.Hour)},
		{TaskID: 1, Kind: "taken", Actor: "Akimov D.", At: now.Add(-time.Hour)},
		{TaskID: 2, Kind: "created", Actor: "Petrova N.", Detail: "Printer jam", At: now.Add(-30 * time.Minute)},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	failure := models.DeliveryFailure{Platform: "telegram", ChatID: 102, TaskID: 1, Reason: "chat not found"}
	if err := db.Create(&failure).Error; err != nil {
		t.Fatalf("seed failure: %v", err)
	}
	change := models.CartridgeChange{Floor: 2, Room: 36, Device: "HP LaserJet", ChangedOn: "27.08.2026", ChangedBy: "Akimov D."}
	if err := db.Create(&change).Error; err != nil {
		t.Fatalf("seed change: %v", err)
	}
}

func testRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tmpl, err := parseTemplates()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	router.SetHTMLTemplate(tmpl)
	registerRoutes(router, db)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

// --- Start tests ---

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	data, err := templatesFS.ReadFile("templates/layout.html")
	if err != nil {
		t.Fatalf("layout.html not embedded: %v", err)
	}
	if !strings.Contains(string(data), "Deskbot") {
		t.Error("layout.html does not contain 'Deskbot'")
	}
}

// --- Page tests ---

func TestOverviewShowsSummary(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	router := testRouter(t, db)

	w := get(t, router, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"created", "taken", "Unresolved delivery failures: 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}

func TestEventsPageFiltersByKind(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	router := testRouter(t, db)

	w := get(t, router, "/events?kind=taken")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Akimov D.") {
		t.Error("filtered page should show the taken event actor")
	}
	if strings.Contains(body, "Printer jam") {
		t.Error("filtered page should not show created events")
	}
}

func TestFailuresPage(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	router := testRouter(t, db)

	w := get(t, router, "/failures")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "chat not found") {
		t.Error("failures page missing the recorded reason")
	}
}

func TestCartridgesPage(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	router := testRouter(t, db)

	w := get(t, router, "/cartridges")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "HP LaserJet") || !strings.Contains(body, "27.08.2026") {
		t.Error("cartridges page missing the recorded change")
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	router := testRouter(t, testDB(t))
	w := get(t, router, "/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// --- API tests ---

func TestEventsJSON(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	router := testRouter(t, db)

	w := get(t, router, "/api/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var rows []EventRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("events = %d, want 3", len(rows))
	}
	// Newest first.
	if rows[0].Kind != "created" || rows[0].TaskID != 2 {
		t.Errorf("first event = %s #%d, want created #2", rows[0].Kind, rows[0].TaskID)
	}
}

func TestSSEEndpointNilDB(t *testing.T) {
	router := testRouter(t, nil)
	w := get(t, router, "/api/stream")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(w.Body.String(), "connected") {
		t.Error("expected connected event")
	}
}

// --- Query tests ---

func TestListEventsLimit(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	result := ListEvents(db, "")
	if len(result.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(result.Events))
	}
	if len(result.Kinds) != 2 {
		t.Errorf("kinds = %v, want [created taken]", result.Kinds)
	}
}

func TestEventSummaryCounts(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	summary, err := EventSummary(db)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("summary rows = %d, want 2", len(summary))
	}
	if summary[0].Kind != "created" || summary[0].Count != 2 {
		t.Errorf("summary[0] = %+v, want created/2", summary[0])
	}
}

func TestQueriesNilDB(t *testing.T) {
	if got := ListEvents(nil, ""); len(got.Events) != 0 {
		t.Error("ListEvents(nil) should be empty")
	}
	if got := ListFailures(nil); len(got) != 0 {
		t.Error("ListFailures(nil) should be empty")
	}
	if got := FailureCount(nil); got != 0 {
		t.Error("FailureCount(nil) should be 0")
	}
}

func TestTimeAgo(t *testing.T) {
	if got := TimeAgo(time.Time{}); got != "—" {
		t.Errorf("TimeAgo(zero) = %q, want —", got)
	}
	if got := TimeAgo(time.Now().Add(-5 * time.Minute)); got != "5m ago" {
		t.Errorf("TimeAgo = %q, want 5m ago", got)
	}
	if got := TimeAgo(time.Now().Add(-49 * time.Hour)); got != "2d ago" {
		t.Errorf("TimeAgo = %q, want 2d ago", got)
	}
}
