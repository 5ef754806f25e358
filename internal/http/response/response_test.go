package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestPartialKeepsHTTP200AndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Partial(c, "notify failed", gin.H{"partner": "VTX-ABC-1234"})

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status_code"] != float64(CodePartial) {
		t.Fatalf("status_code want %d got %v", CodePartial, body["status_code"])
	}
	data, _ := body["data"].(map[string]interface{})
	if data["partner"] != "VTX-ABC-1234" || data["request_id"] != "req-1" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestAppErrorWriteAndUnwrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	cause := errors.New("dial tcp: refused")
	appErr := WrapError(CodeUnavailable, "Connection Failed", cause)
	if !errors.Is(appErr, cause) {
		t.Fatalf("app error should unwrap to cause")
	}
	found, ok := AsAppError(fmt.Errorf("wrapped: %w", appErr))
	if !ok || found != appErr {
		t.Fatalf("expected AsAppError to find wrapped error")
	}

	appErr.Write(c)
	body := decodeBody(t, w)
	if body["status_code"] != float64(CodeUnavailable) || body["msg"] != "Connection Failed" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["data"] != nil {
		t.Fatalf("data should be null without request id, got %v", body["data"])
	}
}

func TestBuildPagination(t *testing.T) {
	got := BuildPagination(2, 20, 41)
	if got.TotalPage != 3 || got.Total != 41 || got.Page != 2 {
		t.Fatalf("unexpected pagination: %+v", got)
	}
	if BuildPagination(1, 0, 10).TotalPage != 0 {
		t.Fatalf("zero page size should yield zero pages")
	}
}
