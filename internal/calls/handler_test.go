package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

type handlerService struct {
	turnErr  error
	endErr   error
	lastTurn TurnRequest
}

func (s *handlerService) StartCall(_ context.Context, req StartRequest) (*Response, error) {
	return &Response{CallID: "call_http", Reply: "Thanks for calling Summit Heating and Air!", Mode: engine.ModeFree}, nil
}

func (s *handlerService) ProcessTurn(_ context.Context, req TurnRequest) (*Response, error) {
	s.lastTurn = req
	if s.turnErr != nil {
		return nil, s.turnErr
	}
	return &Response{CallID: req.CallID, Reply: "May I have your first and last name?", Mode: engine.ModeBooking}, nil
}

func (s *handlerService) EndCall(_ context.Context, _ string) error {
	return s.endErr
}

func newTestRouter(svc Service) http.Handler {
	h := NewHandler(svc, nil, logging.Default())
	r := chi.NewRouter()
	r.Route("/v1", h.Routes)
	return r
}

func TestHandlerStart(t *testing.T) {
	router := newTestRouter(&handlerService{})

	body, _ := json.Marshal(StartRequest{CompanyID: "co_test"})
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/start", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "call_http", resp.CallID)
	assert.NotEmpty(t, resp.Reply)
}

func TestHandlerStartRejectsBadJSON(t *testing.T) {
	router := newTestRouter(&handlerService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/calls/start", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTurn(t *testing.T) {
	router := newTestRouter(&handlerService{})

	body, _ := json.Marshal(TurnRequest{CallID: "call_http", Utterance: "hi there"})
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/turn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, engine.ModeBooking, resp.Mode)
}

func TestHandlerTurnReadsIdempotencyHeader(t *testing.T) {
	svc := &handlerService{}
	router := newTestRouter(svc)

	body, _ := json.Marshal(TurnRequest{CallID: "call_http", Utterance: "hi there"})
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/turn", bytes.NewReader(body))
	req.Header.Set("X-Idempotency-Key", "provider_msg_42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "provider_msg_42", svc.lastTurn.IdempotencyKey)
}

func TestHandlerTurnUnknownCallIs404(t *testing.T) {
	router := newTestRouter(&handlerService{turnErr: ErrCallNotFound})

	body, _ := json.Marshal(TurnRequest{CallID: "ghost", Utterance: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/calls/turn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerEnd(t *testing.T) {
	router := newTestRouter(&handlerService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/calls/call_http/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerJobTrackingDisabled(t *testing.T) {
	router := newTestRouter(&handlerService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
