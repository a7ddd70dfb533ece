package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/verify"
)

// Verifier is the verification service the handlers call into.
type Verifier interface {
	QR(ctx context.Context, qrRaw string) verify.Result
	Fingerprint(ctx context.Context, rawID string) verify.Result
	Face(ctx context.Context, rawID, imagePayload string) verify.Result
	SendConfirmation(ctx context.Context, rawID string) verify.Result
}

// VerifyHandler handles the verification endpoints
type VerifyHandler struct {
	verifier Verifier
}

// NewVerifyHandler creates a new verification handler
func NewVerifyHandler(verifier Verifier) *VerifyHandler {
	return &VerifyHandler{verifier: verifier}
}

// voterView is the subset of the voter record echoed to the kiosk.
type voterView struct {
	Aadhaar string `json:"aadhaar"`
	Name    string `json:"name"`
	Age     string `json:"age"`
	Address string `json:"address"`
}

// verifyResponse is the envelope for every verification endpoint. Business
// rejections (already voted, mismatch, no finger) are 200 with ok=false;
// only a malformed request gets a 4xx.
type verifyResponse struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message"`
	Voter   *voterView `json:"voter,omitempty"`
}

func respondResult(w http.ResponseWriter, res verify.Result) {
	status := http.StatusOK
	if res.Code == verify.CodeInvalidPayload {
		status = http.StatusBadRequest
	}

	resp := verifyResponse{OK: res.OK, Message: res.Message}
	if res.Voter != nil {
		resp.Voter = &voterView{
			Aadhaar: res.Voter.Aadhaar,
			Name:    res.Voter.Name,
			Age:     res.Voter.Age,
			Address: res.Voter.Address,
		}
	}
	respondJSON(w, status, resp)
}

// idRequest carries the voter identifier; both legacy spellings are accepted.
type idRequest struct {
	Aadhar  string `json:"aadhar"`
	Aadhaar string `json:"aadhaar"`
}

func (q *idRequest) identifier() string {
	if q.Aadhar != "" {
		return q.Aadhar
	}
	return q.Aadhaar
}

// QR handles a scanned QR admission attempt.
func (h *VerifyHandler) QR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRData string `json:"qr_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	res := h.verifier.QR(r.Context(), req.QRData)
	if res.Code == verify.CodeInvalidPayload {
		log.Printf("verify-qr: rejected payload %q", sanitizeForLog(req.QRData))
	}
	respondResult(w, res)
}

// Fingerprint handles a live fingerprint verification attempt.
func (h *VerifyHandler) Fingerprint(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	respondResult(w, h.verifier.Fingerprint(r.Context(), req.identifier()))
}

// Face handles a camera probe verification attempt.
func (h *VerifyHandler) Face(w http.ResponseWriter, r *http.Request) {
	var req struct {
		idRequest
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	respondResult(w, h.verifier.Face(r.Context(), req.identifier(), req.Image))
}

// SendSMS sends the vote-counted confirmation SMS.
func (h *VerifyHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	// The identifier is validated downstream; normalize here only to keep
	// obviously empty requests out of the logs.
	if identity.Normalize(req.identifier()) == "" {
		respondResult(w, verify.Result{Code: verify.CodeInvalidPayload, Message: "Missing Aadhaar"})
		return
	}

	respondResult(w, h.verifier.SendConfirmation(r.Context(), req.identifier()))
}
