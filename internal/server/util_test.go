package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"api", "/api"},
		{"/api", "/api"},
		{"/api/", "/api"},
		{" api ", "/api"},
	}
	for _, c := range cases {
		if got := sanitizeBase(c.in); got != c.want {
			t.Fatalf("sanitizeBase(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestBindObject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		m, ok := bindObject(c)
		if !ok {
			return
		}
		writeJSON(c, 200, map[string]any{"keys": len(m), "id": m["id"]})
	})
	cases := []struct {
		body string
		code int
		want string
	}{
		{"", 200, `{"id":null,"keys":0}`},
		{`{"id": 12345678901234567890}`, 200, `{"id":12345678901234567890,"keys":1}`},
		{`[1,2]`, 400, `{"error":"invalid JSON: body must be an object"}`},
		{`{"id":`, 400, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", "/x", strings.NewReader(tc.body)))
		if rec.Code != tc.code {
			t.Fatalf("body %q: status %d want %d", tc.body, rec.Code, tc.code)
		}
		if tc.want != "" && strings.TrimSpace(rec.Body.String()) != tc.want {
			t.Fatalf("body %q: got %s want %s", tc.body, rec.Body.String(), tc.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { writeJSON(c, 201, map[string]any{"a": 1}) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != 201 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type: %s", ct)
	}
}
