package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/financial-records/:id", func(c *gin.Context) {
		c.Header("ETag", `"3"`)
		c.Status(http.StatusOK)
	})
	r.OPTIONS("/financial-records/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestListedOriginGetsCredentials(t *testing.T) {
	r := newRouter("https://portal.uphsl.edu.ph/")
	req := httptest.NewRequest(http.MethodGet, "/financial-records/fin-1", nil)
	req.Header.Set("Origin", "https://PORTAL.uphsl.edu.ph")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://PORTAL.uphsl.edu.ph", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "ETag")
}

func TestWildcardOmitsCredentials(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/financial-records/fin-1", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPreflight(t *testing.T) {
	r := newRouter("https://portal.uphsl.edu.ph")

	cases := []struct {
		name   string
		origin string
		status int
	}{
		{"listed", "https://portal.uphsl.edu.ph", http.StatusNoContent},
		{"unlisted", "https://evil.example", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/financial-records/fin-1", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestSameOriginRequestPassesThrough(t *testing.T) {
	r := newRouter("https://portal.uphsl.edu.ph")
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/financial-records/fin-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
