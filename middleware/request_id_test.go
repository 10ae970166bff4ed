package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDGenerated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())

	var captured string
	router.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if captured == "" {
		t.Error("Expected a generated request ID")
	}
	if w.Header().Get("X-Request-ID") != captured {
		t.Error("Expected request ID echoed in response header")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())

	var captured string
	router.GET("/test", func(c *gin.Context) {
		captured = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if captured != "upstream-id" {
		t.Errorf("Expected upstream ID preserved, got '%s'", captured)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if id := GetRequestID(c); id != "" {
		t.Errorf("Expected empty request ID, got '%s'", id)
	}
}
