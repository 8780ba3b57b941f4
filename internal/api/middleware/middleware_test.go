package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"沿用外部 ID", "req-123", true},
		{"缺失时生成", "", false},
		{"过长时生成", strings.Repeat("x", requestIDMaxLen+1), false},
		{"含控制字符时生成", "a\nb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got != w.Body.String() {
				t.Errorf("响应头与上下文不一致: %q vs %q", got, w.Body.String())
			}
			if tt.keep && got != tt.header {
				t.Errorf("期望沿用 %q，实际 %q", tt.header, got)
			}
			if !tt.keep && (got == tt.header || len(got) != 36) {
				t.Errorf("期望生成 UUID，实际 %q", got)
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("小请求体期望 200，实际 %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("声明长度超限期望 413，实际 %d", w.Code)
	}

	// 未声明长度的请求体由 MaxBytesReader 截断
	req := httptest.NewRequest("POST", "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("分块请求体超限期望 413，实际 %d", w.Code)
	}
}

type fakeLimiter struct {
	allow int
	calls int
	err   error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.calls <= f.allow, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{allow: 2}
	r := gin.New()
	r.POST("/generate", RateLimit(limiter, 2, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/generate", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Errorf("期望 202, 202, 429，实际 %v", codes)
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		limiter Limiter
		limit   int
	}{
		{"未配置限流器", nil, 1},
		{"限流关闭", &fakeLimiter{}, 0},
		{"限流器出错", &fakeLimiter{err: errors.New("redis down")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/", RateLimit(tt.limiter, tt.limit, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))
			if w.Code != http.StatusOK {
				t.Errorf("期望放行，实际 %d", w.Code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("允许的来源未回显: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("未允许的来源不应返回 CORS 头")
	}
}
