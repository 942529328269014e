package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-phishing-sim/internal/domain"
	"github.com/tbourn/go-phishing-sim/internal/repo"
	"github.com/tbourn/go-phishing-sim/internal/services"
	"github.com/tbourn/go-phishing-sim/internal/simclient"
)

// ---------- test DB + repo shim ----------

func newAttemptDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:attempt_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shim implementing services.AttemptRepo using the repo package (like router.go)
type testAttemptRepo struct{}

func (testAttemptRepo) CreateAttempt(ctx context.Context, db *gorm.DB, email, content string) (*domain.PhishingAttempt, error) {
	return repo.CreateAttempt(ctx, db, email, content)
}
func (testAttemptRepo) GetAttempt(ctx context.Context, db *gorm.DB, id string) (*domain.PhishingAttempt, error) {
	return repo.GetAttempt(ctx, db, id)
}
func (testAttemptRepo) SetAttemptStatus(ctx context.Context, db *gorm.DB, id string, st domain.Status) (*domain.PhishingAttempt, error) {
	return repo.SetAttemptStatus(ctx, db, id, st)
}
func (testAttemptRepo) ListAttempts(ctx context.Context, db *gorm.DB) ([]domain.PhishingAttempt, error) {
	return repo.ListAttempts(ctx, db)
}
func (testAttemptRepo) CountAttempts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountAttempts(ctx, db)
}
func (testAttemptRepo) ListAttemptsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PhishingAttempt, error) {
	return repo.ListAttemptsPage(ctx, db, offset, limit)
}
func (testAttemptRepo) DeleteAttempt(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteAttempt(ctx, db, id)
}

// ---------- forwarder stub ----------

type stubForwarder struct {
	out *domain.ForwardedAttempt
	err error
	got *domain.SendRequest
}

func (s *stubForwarder) SendPhishingEmail(_ context.Context, req domain.SendRequest) (*domain.ForwardedAttempt, error) {
	s.got = &req
	return s.out, s.err
}

// ---------- router helpers ----------

func newManagementRouter(t *testing.T, fwd Forwarder) (*gin.Engine, *services.AttemptService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := services.NewAttemptService(newAttemptDB(t), testAttemptRepo{})
	h := NewManagement(svc, fwd)

	r := gin.New()
	r.POST("/phishing", h.CreateAttempt)
	r.GET("/phishing", h.ListAttempts)
	r.POST("/phishing/send", h.SendPhishingEmail)
	r.GET("/phishing/click/:id", h.ClickAttempt)
	r.GET("/phishing/:id", h.GetAttempt)
	r.PUT("/phishing/:id", h.UpdateAttempt)
	r.DELETE("/phishing/:id", h.DeleteAttempt)
	return r, svc
}

func doJSON(r http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return e
}

// ---------- tests ----------

func TestManagement_CRUDFlow(t *testing.T) {
	r, _ := newManagementRouter(t, &stubForwarder{})

	// create
	w := doJSON(r, http.MethodPost, "/phishing", domain.SendRequest{RecipientEmail: "alice@example.com", EmailContent: "hi"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var a domain.PhishingAttempt
	_ = json.Unmarshal(w.Body.Bytes(), &a)
	if a.ID == "" || a.Status != domain.StatusSent {
		t.Fatalf("unexpected created attempt: %+v", a)
	}

	// get
	w = doJSON(r, http.MethodGet, "/phishing/"+a.ID, nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"recipientEmail":"alice@example.com"`) {
		t.Fatalf("get status=%d body=%s", w.Code, w.Body.String())
	}

	// update sent -> clicked
	w = doJSON(r, http.MethodPut, "/phishing/"+a.ID, map[string]string{"status": "clicked"}, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"clicked"`) {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}

	// clicked -> sent refused
	w = doJSON(r, http.MethodPut, "/phishing/"+a.ID, map[string]string{"status": "sent"}, nil)
	if w.Code != http.StatusConflict || decodeErr(t, w).Code != ErrCodeInvalidTransition {
		t.Fatalf("backwards update status=%d body=%s", w.Code, w.Body.String())
	}

	// unknown status
	w = doJSON(r, http.MethodPut, "/phishing/"+a.ID, map[string]string{"status": "opened"}, nil)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Fields["status"] == "" {
		t.Fatalf("unknown status status=%d body=%s", w.Code, w.Body.String())
	}

	// delete then 404
	w = doJSON(r, http.MethodDelete, "/phishing/"+a.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", w.Code)
	}
	w = doJSON(r, http.MethodGet, "/phishing/"+a.ID, nil, nil)
	if w.Code != http.StatusNotFound || decodeErr(t, w).Code != ErrCodeNotFound {
		t.Fatalf("get after delete status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodDelete, "/phishing/"+a.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", w.Code)
	}
}

func TestManagement_Create_ValidationAndBadJSON(t *testing.T) {
	r, _ := newManagementRouter(t, &stubForwarder{})

	w := doJSON(r, http.MethodPost, "/phishing", domain.SendRequest{RecipientEmail: "nope"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	e := decodeErr(t, w)
	if e.Code != ErrCodeValidationFailed || e.Fields["recipientEmail"] == "" || e.Fields["emailContent"] == "" {
		t.Fatalf("unexpected envelope: %+v", e)
	}

	w = doJSON(r, http.MethodPost, "/phishing", "{not json", nil)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Code != ErrCodeBadRequest {
		t.Fatalf("bad json status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestManagement_Click(t *testing.T) {
	r, svc := newManagementRouter(t, &stubForwarder{})
	a, err := svc.Create(context.Background(), "bob@example.com", "x")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodGet, "/phishing/click/"+a.ID, nil, nil)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"clicked"`) {
			t.Fatalf("click #%d status=%d body=%s", i+1, w.Code, w.Body.String())
		}
	}
	w := doJSON(r, http.MethodGet, "/phishing/click/missing", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("click missing status=%d", w.Code)
	}
}

func TestManagement_List_PaginationAndETag(t *testing.T) {
	r, svc := newManagementRouter(t, &stubForwarder{})
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), fmt.Sprintf("u%d@example.com", i), "x"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := doJSON(r, http.MethodGet, "/phishing?page=1&page_size=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var resp ListAttemptsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Attempts) != 2 || resp.Pagination.Total != 3 || resp.Pagination.TotalPages != 2 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp.Pagination)
	}

	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"attempts:`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}
	w = doJSON(r, http.MethodGet, "/phishing?page=1&page_size=2", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	// A new attempt invalidates the tag.
	if _, err := svc.Create(context.Background(), "late@example.com", "x"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w = doJSON(r, http.MethodGet, "/phishing?page=1&page_size=2", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after change, got %d", w.Code)
	}
}

func TestManagement_List_Empty(t *testing.T) {
	r, _ := newManagementRouter(t, &stubForwarder{})
	w := doJSON(r, http.MethodGet, "/phishing", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"attempts":[]`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestManagement_Send_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantInMsg  string
	}{
		{
			name:       "unreachable",
			err:        &simclient.UpstreamUnavailableError{Addr: "http://localhost:5999", Err: errors.New("refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeUpstreamUnavailable,
			wantInMsg:  "http://localhost:5999",
		},
		{
			name:       "worker 400 passed through",
			err:        &simclient.UpstreamError{StatusCode: 400, Code: "validation_failed", Message: "invalid request"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeUpstreamRejected,
			wantInMsg:  "invalid request",
		},
		{
			name:       "worker 502",
			err:        &simclient.UpstreamError{StatusCode: 502, Code: "dispatch_failed", Message: "not delivered"},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUpstreamError,
			wantInMsg:  "not delivered",
		},
		{
			name:       "timeout",
			err:        &simclient.UpstreamError{Message: "no response within 10s"},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUpstreamError,
			wantInMsg:  "no response",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
			wantInMsg:  "internal",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newManagementRouter(t, &stubForwarder{err: tc.err})
			w := doJSON(r, http.MethodPost, "/phishing/send", domain.SendRequest{RecipientEmail: "a@example.com", EmailContent: "x"}, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			e := decodeErr(t, w)
			if e.Code != tc.wantCode || !strings.Contains(e.Message, tc.wantInMsg) {
				t.Fatalf("unexpected envelope: %+v", e)
			}
		})
	}
}

func TestManagement_Send_Success(t *testing.T) {
	raw := `{"id":"w-9","recipientEmail":"a@example.com","emailContent":"x","status":"sent","campaign":"q3"}`
	out := &domain.ForwardedAttempt{
		PhishingAttempt: domain.PhishingAttempt{ID: "w-9", RecipientEmail: "a@example.com", EmailContent: "x", Status: domain.StatusSent},
		Raw:             json.RawMessage(raw),
	}
	fwd := &stubForwarder{out: out}
	r, svc := newManagementRouter(t, fwd)

	w := doJSON(r, http.MethodPost, "/phishing/send", domain.SendRequest{RecipientEmail: "a@example.com", EmailContent: "x"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	// The worker's body is relayed as-is, including fields the management
	// API does not model.
	if w.Body.String() != raw {
		t.Fatalf("body not relayed verbatim:\n got %s\nwant %s", w.Body.String(), raw)
	}
	if fwd.got == nil || fwd.got.RecipientEmail != "a@example.com" {
		t.Fatalf("request not forwarded: %+v", fwd.got)
	}
	if n, _ := repo.CountAttempts(context.Background(), svc.DB); n != 0 {
		t.Fatalf("forwarding must not write to the management store, got %d rows", n)
	}
}
