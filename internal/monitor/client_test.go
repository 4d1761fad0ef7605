package monitor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gammalab-data/specfit/internal/httputil"
)

func TestNewClient_DefaultHTTPClient(t *testing.T) {
	c := NewClient(nil, "http://localhost:8089")

	if c.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}
	if c.BaseURL != "http://localhost:8089" {
		t.Errorf("BaseURL mismatch: got %s", c.BaseURL)
	}
}

func TestClient_Health(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"status": "ok"}`)
	c := NewClient(mock, "http://monitor:8089")

	if err := c.Health(); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if req := mock.GetRequest(0); req == nil || req.URL.Path != "/health" {
		t.Errorf("health request path wrong: %+v", req)
	}

	mock.AddResponse(http.StatusInternalServerError, "boom")
	if err := c.Health(); err == nil {
		t.Error("Health should fail on 500")
	} else if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddErrorResponse(errors.New("connection refused"))
	c := NewClient(mock, "http://monitor:8089")

	if err := c.Health(); err == nil {
		t.Error("Health should surface transport errors")
	}
}

func TestClient_FetchSessions(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[
		{"session_id": "s1", "run_number": 10500, "source": "a.txt", "bins": 100},
		{"session_id": "s2", "run_number": 10501, "source": "b.txt", "bins": 200}
	]`)
	c := NewClient(mock, "http://monitor:8089")

	sessions, err := c.FetchSessions(5)
	if err != nil {
		t.Fatalf("FetchSessions returned error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "s1" || sessions[0].RunNumber != 10500 {
		t.Errorf("unexpected first session: %+v", sessions[0])
	}

	req := mock.GetRequest(0)
	if req.URL.Path != "/api/sessions" || req.URL.RawQuery != "limit=5" {
		t.Errorf("sessions request URL wrong: %s", req.URL)
	}
}

func TestClient_FetchFits_EscapesSessionID(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `[{"fit_id": "f1", "shape": "gaussian", "centroid": 661.7}]`)
	c := NewClient(mock, "http://monitor:8089")

	fits, err := c.FetchFits("abc def")
	if err != nil {
		t.Fatalf("FetchFits returned error: %v", err)
	}
	if len(fits) != 1 || fits[0].Centroid != 661.7 {
		t.Errorf("unexpected fits: %+v", fits)
	}

	req := mock.GetRequest(0)
	if req.URL.RawQuery != "session_id=abc+def" {
		t.Errorf("session_id not escaped: %s", req.URL.RawQuery)
	}
}

func TestClient_SetTuningParams(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{}`)
	c := NewClient(mock, "http://monitor:8089")

	if err := c.SetTuningParams(map[string]interface{}{"fit_method": "lbfgs"}); err != nil {
		t.Fatalf("SetTuningParams returned error: %v", err)
	}

	req := mock.GetRequest(0)
	if req.Method != http.MethodPost || req.URL.Path != "/api/tuning" {
		t.Errorf("tuning request wrong: %s %s", req.Method, req.URL.Path)
	}
	if ctype := req.Header.Get("Content-Type"); ctype != "application/json" {
		t.Errorf("tuning content type = %q", ctype)
	}
	body, _ := io.ReadAll(req.Body)
	var sent map[string]interface{}
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("tuning body does not parse: %v", err)
	}
	if sent["fit_method"] != "lbfgs" {
		t.Errorf("tuning body = %s", body)
	}

	mock.AddResponse(http.StatusBadRequest, `{"error": "unknown fit_method"}`)
	if err := c.SetTuningParams(map[string]interface{}{"fit_method": "bogus"}); err == nil {
		t.Error("SetTuningParams should surface a 400")
	}
}

func TestClient_TriggerPersist(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"status": "ok", "session_id": "abc", "fits": 3}`)
	c := NewClient(mock, "http://monitor:8089")

	sessionID, fits, err := c.TriggerPersist()
	if err != nil {
		t.Fatalf("TriggerPersist returned error: %v", err)
	}
	if sessionID != "abc" || fits != 3 {
		t.Errorf("persist result = (%q, %d), want (abc, 3)", sessionID, fits)
	}

	mock.AddResponse(http.StatusNotFound, `{"error": "no spectrum loaded"}`)
	if _, _, err := c.TriggerPersist(); err == nil {
		t.Error("TriggerPersist should surface a 404")
	}
}

func TestClient_ExportSpectrum(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"status": "ok", "path": "exports/cs137.txt"}`)
	c := NewClient(mock, "http://monitor:8089")

	path, err := c.ExportSpectrum("cs 137.txt")
	if err != nil {
		t.Fatalf("ExportSpectrum returned error: %v", err)
	}
	if path != "exports/cs137.txt" {
		t.Errorf("export path = %q", path)
	}

	req := mock.GetRequest(0)
	if req.URL.RawQuery != "filename=cs+137.txt" {
		t.Errorf("filename not escaped: %s", req.URL.RawQuery)
	}
}

// TestClient_AgainstLiveServer drives a real monitor over HTTP end to end.
func TestClient_AgainstLiveServer(t *testing.T) {
	server := NewWebServer(WebServerConfig{Address: ":0", DB: newTestDB(t)})
	s, peaks := testSpectrum(t)
	server.SetSpectrum(s, peaks)

	ts := httptest.NewServer(server.setupRoutes())
	defer ts.Close()

	c := NewClient(httputil.NewStandardClient(ts.Client()), ts.URL)

	if err := c.Health(); err != nil {
		t.Fatalf("Health: %v", err)
	}

	sessionID, fits, err := c.TriggerPersist()
	if err != nil {
		t.Fatalf("TriggerPersist: %v", err)
	}
	if fits != 1 {
		t.Fatalf("persisted %d fits, want 1", fits)
	}

	got, err := c.FetchFits(sessionID)
	if err != nil {
		t.Fatalf("FetchFits: %v", err)
	}
	if len(got) != 1 || got[0].Shape != "gaussian" {
		t.Fatalf("unexpected fits: %+v", got)
	}

	sessions, err := c.FetchSessions(0)
	if err != nil {
		t.Fatalf("FetchSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != sessionID {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	if err := c.SetTuningParams(map[string]interface{}{"fit_method": "gradient"}); err != nil {
		t.Fatalf("SetTuningParams: %v", err)
	}
	tuning, err := c.FetchTuning()
	if err != nil {
		t.Fatalf("FetchTuning: %v", err)
	}
	if tuning["fit_method"] != "gradient" {
		t.Errorf("fit_method = %v after update, want gradient", tuning["fit_method"])
	}
}
