package handler

import (
	"bytes"
	"encoding/json"
	"main/usecase"
	"main/utils"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.InitValidator()
}

// identity stub standing in for the auth middleware
func withIdentity(orgID, userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("organization_id", orgID)
		c.Next()
	}
}

func TestHandlersRejectMissingIdentity(t *testing.T) {
	router := gin.New()
	sessions := NewSessionHandler(&usecase.SessionService{})
	activity := NewActivityHandler(&usecase.ActivityService{})

	// No identity middleware: every handler must 401 before touching the
	// service layer.
	router.POST("/sessions/start", sessions.StartSession)
	router.GET("/sessions/:id", sessions.GetSession)
	router.POST("/sessions/:id/stop", sessions.StopSession)
	router.POST("/sessions/:id/activity", activity.RecordActivity)

	cases := []struct {
		method, path string
	}{
		{"POST", "/sessions/start"},
		{"GET", "/sessions/abc"},
		{"POST", "/sessions/abc/stop"},
		{"POST", "/sessions/abc/activity"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}

func TestRecordActivityRejectsMalformedBody(t *testing.T) {
	router := gin.New()
	router.Use(withIdentity("org1", "u1"))

	activity := NewActivityHandler(&usecase.ActivityService{})
	router.POST("/sessions/:id/activity", activity.RecordActivity)

	bodies := []string{
		``,  // empty
		`{`, // malformed JSON
		`{"type":"napping","timestamp":"2026-03-02T09:00:05Z"}`, // invalid type
		`{"type":"active"}`, // missing timestamp
	}

	for _, body := range bodies {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sessions/abc/activity", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestListSessionsRequiresDate(t *testing.T) {
	router := gin.New()
	router.Use(withIdentity("org1", "u1"))

	sessions := NewSessionHandler(&usecase.SessionService{})
	router.GET("/sessions/", sessions.ListSessions)

	for _, target := range []string{"/sessions/", "/sessions/?date=03-02-2026"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", target, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sessions/", nil)
	router.ServeHTTP(w, req)

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal("response is not the JSON envelope:", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message in the envelope")
	}
}
