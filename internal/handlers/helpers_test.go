package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/internal/testutil"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/response"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 11, 10, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handlers")
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	clock := scheduling.FixedClock(testNow)
	hub := services.NewEventHub()
	queue := services.NewSyncQueue()
	t.Cleanup(func() { queue.Close() })

	notifications := services.NewNotificationService(db, queue, hub)
	memberships := services.NewMembershipService(db, notifications, queue, "http://campy.test")
	holidays := services.NewHolidayService()

	auth := NewAuthHandler(services.NewAuthService(db, &config.JWTConfig{ExpireHour: 2, RefreshExpireHour: 24}, memberships))
	projects := NewProjectHandler(services.NewProjectService(db))
	members := NewMembershipHandler(memberships)
	activities := NewActivityHandler(services.NewActivityService(db, notifications, clock))
	imports := NewImportHandler(services.NewImportService(db, clock))
	comments := NewCommentHandler(services.NewCommentService(db, notifications))
	gantt := NewGanttHandler(services.NewGanttService(db, clock, holidays, "US", 1200))
	reference := NewReferenceHandler(services.NewReferenceService(db), holidays)
	notificationHandler := NewNotificationHandler(notifications)
	health := NewHealthHandler(db, queue, hub)

	r := gin.New()
	r.GET("/health", health.CheckHealth)
	r.POST("/api/auth/register", auth.Register)
	r.POST("/api/auth/login", auth.Login)
	r.POST("/api/auth/refresh", auth.Refresh)
	r.GET("/api/events", NewSSEHandler(hub, notifications).Stream)

	api := r.Group("/api", middleware.AuthRequired(), middleware.LoadActor(db))
	api.GET("/auth/me", auth.GetCurrentUser)
	api.GET("/projects", projects.List)
	api.POST("/projects", projects.Create)
	api.GET("/projects/:id", projects.GetByID)
	api.DELETE("/projects/:id", projects.Delete)
	api.POST("/projects/:id/members", members.Add)
	api.GET("/projects/:id/activities", activities.List)
	api.POST("/projects/:id/activities", activities.Create)
	api.POST("/projects/:id/import", imports.Import)
	api.GET("/projects/:id/gantt", gantt.Chart)
	api.GET("/import/template", imports.Template)
	api.POST("/activities/:id/comments", comments.Create)
	api.GET("/disciplines", reference.Disciplines)
	api.POST("/disciplines", reference.CreateDiscipline)
	api.GET("/holidays/countries", reference.HolidayCountries)
	api.GET("/notifications", notificationHandler.List)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)

	return &testServer{db: db, router: r}
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Email, 1)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// do sends a request; body may be nil, an io.Reader or a value to encode
// as JSON.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode unwraps the envelope into data when data is non-nil.
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) response.Response {
	t.Helper()
	var env struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data %s: %v", env.Data, err)
		}
	}
	return env.Response
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
