package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shadowvote/votegate/internal/verify"
)

// fakeVerifier returns scripted results per endpoint.
type fakeVerifier struct {
	qr          verify.Result
	fingerprint verify.Result
	face        verify.Result
	sms         verify.Result

	lastQR    string
	lastID    string
	lastImage string
}

func (f *fakeVerifier) QR(ctx context.Context, qrRaw string) verify.Result {
	f.lastQR = qrRaw
	return f.qr
}

func (f *fakeVerifier) Fingerprint(ctx context.Context, rawID string) verify.Result {
	f.lastID = rawID
	return f.fingerprint
}

func (f *fakeVerifier) Face(ctx context.Context, rawID, imagePayload string) verify.Result {
	f.lastID = rawID
	f.lastImage = imagePayload
	return f.face
}

func (f *fakeVerifier) SendConfirmation(ctx context.Context, rawID string) verify.Result {
	f.lastID = rawID
	return f.sms
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
