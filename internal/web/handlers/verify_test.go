package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/verify"
)

func TestQR_Success(t *testing.T) {
	fv := &fakeVerifier{
		qr: verify.Result{
			OK:      true,
			Code:    verify.CodeOK,
			Message: "Voter admitted",
			Voter: &identity.Voter{
				Aadhaar: "111122223333",
				Name:    "Asha Kumar",
				Age:     "34",
				Address: "12 Lake Road",
			},
		},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-qr", map[string]string{
		"qr_data": `{"aadhar": "111122223333"}`,
	})
	recorder := httptest.NewRecorder()
	h.QR(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp verifyResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.OK {
		t.Errorf("expected ok response, got %+v", resp)
	}
	if resp.Voter == nil || resp.Voter.Name != "Asha Kumar" {
		t.Errorf("expected voter details in response, got %+v", resp.Voter)
	}
	if fv.lastQR != `{"aadhar": "111122223333"}` {
		t.Errorf("QR payload not passed through, got %q", fv.lastQR)
	}
}

func TestQR_AlreadyAdmittedIsStill200(t *testing.T) {
	fv := &fakeVerifier{
		qr: verify.Result{Code: verify.CodeAlreadyAdmitted, Message: "This voter has already voted"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-qr", map[string]string{
		"qr_data": `{"aadhar": "111122223333"}`,
	})
	recorder := httptest.NewRecorder()
	h.QR(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp verifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.OK {
		t.Error("expected ok=false for a repeat admission")
	}
	if resp.Message != "This voter has already voted" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestQR_InvalidPayloadIs400(t *testing.T) {
	fv := &fakeVerifier{
		qr: verify.Result{Code: verify.CodeInvalidPayload, Message: "QR content is not valid JSON"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-qr", map[string]string{
		"qr_data": "not json",
	})
	recorder := httptest.NewRecorder()
	h.QR(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestQR_MalformedBody(t *testing.T) {
	h := NewVerifyHandler(&fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-qr", strings.NewReader("{broken"))
	recorder := httptest.NewRecorder()
	h.QR(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestFingerprint_PassesIdentifier(t *testing.T) {
	fv := &fakeVerifier{
		fingerprint: verify.Result{OK: true, Code: verify.CodeOK, Message: "Fingerprint verified"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-fingerprint", map[string]string{
		"aadhar": "1111 2222 3333",
	})
	recorder := httptest.NewRecorder()
	h.Fingerprint(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if fv.lastID != "1111 2222 3333" {
		t.Errorf("identifier not passed through, got %q", fv.lastID)
	}
}

func TestFingerprint_AcceptsAlternateSpelling(t *testing.T) {
	fv := &fakeVerifier{
		fingerprint: verify.Result{OK: true, Code: verify.CodeOK, Message: "Fingerprint verified"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-fingerprint", map[string]string{
		"aadhaar": "444455556666",
	})
	recorder := httptest.NewRecorder()
	h.Fingerprint(recorder, req)

	if fv.lastID != "444455556666" {
		t.Errorf("aadhaar spelling not accepted, got %q", fv.lastID)
	}
}

func TestFingerprint_NoFingerIs200(t *testing.T) {
	fv := &fakeVerifier{
		fingerprint: verify.Result{Code: verify.CodeNoFinger, Message: "No finger detected"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-fingerprint", map[string]string{
		"aadhar": "111122223333",
	})
	recorder := httptest.NewRecorder()
	h.Fingerprint(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp verifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.OK || resp.Message != "No finger detected" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestFace_PassesImage(t *testing.T) {
	fv := &fakeVerifier{
		face: verify.Result{OK: true, Code: verify.CodeOK, Message: "Face verified"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/verify-face", map[string]string{
		"aadhar": "111122223333",
		"image":  "data:image/jpeg;base64,AAAA",
	})
	recorder := httptest.NewRecorder()
	h.Face(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if fv.lastImage != "data:image/jpeg;base64,AAAA" {
		t.Errorf("image payload not passed through, got %q", fv.lastImage)
	}
}

func TestFace_MalformedBody(t *testing.T) {
	h := NewVerifyHandler(&fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-face", strings.NewReader("nope"))
	recorder := httptest.NewRecorder()
	h.Face(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestSendSMS_Success(t *testing.T) {
	fv := &fakeVerifier{
		sms: verify.Result{OK: true, Code: verify.CodeOK, Message: "SMS sent"},
	}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/send-sms", map[string]string{
		"aadhar": "111122223333",
	})
	recorder := httptest.NewRecorder()
	h.SendSMS(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp verifyResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.OK || resp.Message != "SMS sent" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSendSMS_EmptyIdentifier(t *testing.T) {
	fv := &fakeVerifier{}
	h := NewVerifyHandler(fv)

	req := jsonRequest(t, http.MethodPost, "/api/v1/send-sms", map[string]string{
		"aadhar": "   ",
	})
	recorder := httptest.NewRecorder()
	h.SendSMS(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	if fv.lastID != "" {
		t.Errorf("verifier must not be called for an empty identifier, got %q", fv.lastID)
	}
}
