package rest

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
)

// responseRecorder дублирует ответ в буфер, не мешая отдаче клиенту.
// Нужен для кеширования ответа под idempotency-key.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newResponseRecorder(c echo.Context) *responseRecorder {
	rec := &responseRecorder{
		ResponseWriter: c.Response().Writer,
		status:         http.StatusOK,
	}
	c.Response().Writer = rec
	return rec
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) result() (int, []byte) {
	return r.status, append([]byte(nil), r.body.Bytes()...)
}
