// Package verify composes the resolver, the fingerprint sensor, the face
// comparator and the admission ledger into the decision logic behind the
// three verification endpoints. Every lower-layer failure is converted into
// a tagged Result here; nothing below this package leaks to the web layer.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/shadowvote/votegate/internal/face"
	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/ledger"
	"github.com/shadowvote/votegate/internal/roll"
	"github.com/shadowvote/votegate/internal/sensor"
)

// Code tags the outcome of a verification attempt.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidPayload
	CodeNotFound
	CodeAlreadyAdmitted
	CodeNotEnrolled
	CodeDeviceUnavailable
	CodeNoFinger
	CodeExtractionFailed
	CodeNoMatch
	CodeNoFace
	CodeInternal
)

// Result is the outcome reported to the web layer. Voter is populated on a
// successful QR admission so the response can echo display attributes.
type Result struct {
	OK      bool
	Code    Code
	Message string
	Voter   *identity.Voter
}

// Fingerprinter runs one sensor verification attempt.
type Fingerprinter interface {
	Verify(ctx context.Context, pages []uint16) (sensor.Result, error)
}

// FaceEncoder computes a face template from a probe image.
type FaceEncoder interface {
	Encode(ctx context.Context, imageData []byte) ([]float32, error)
}

// Notifier delivers a confirmation SMS.
type Notifier interface {
	Send(phone, body string) error
}

// Service is the verification orchestrator.
type Service struct {
	resolver      *roll.Resolver
	ledger        ledger.Ledger
	fingerprints  Fingerprinter // nil when no sensor is configured
	faces         FaceEncoder   // nil when no encoder is configured
	faceThreshold float64
	notifier      Notifier // nil when SMS is not configured
}

// NewService wires the orchestrator. fingerprints, faces and notifier may be
// nil; the corresponding paths then reject with a configuration message
// instead of failing at request time.
func NewService(resolver *roll.Resolver, l ledger.Ledger, fingerprints Fingerprinter,
	faces FaceEncoder, faceThreshold float64, notifier Notifier) *Service {
	return &Service{
		resolver:      resolver,
		ledger:        l,
		fingerprints:  fingerprints,
		faces:         faces,
		faceThreshold: faceThreshold,
		notifier:      notifier,
	}
}

func reject(code Code, message string) Result {
	return Result{OK: false, Code: code, Message: message}
}

// internalFailure logs the underlying error under an attempt id and returns
// the generic result; diagnostics stay in the log, not in the response.
func internalFailure(attempt string, err error) Result {
	log.Printf("verify attempt %s: internal error: %v", attempt, err)
	return reject(CodeInternal, "Internal verification error")
}

// qrPayload is the JSON object carried inside the scanned QR code. Both
// legacy spellings of the identifier field are accepted.
type qrPayload struct {
	Aadhar  string `json:"aadhar"`
	Aadhaar string `json:"aadhaar"`
}

func (q *qrPayload) identifier() string {
	if q.Aadhar != "" {
		return q.Aadhar
	}
	return q.Aadhaar
}

// QR verifies a scanned identity token and, on success, marks the voter as
// admitted. This is the only path that consumes an admission; fingerprint
// and face checks are verification-only.
func (s *Service) QR(ctx context.Context, qrRaw string) Result {
	attempt := uuid.NewString()

	if qrRaw == "" {
		return reject(CodeInvalidPayload, "No QR data received")
	}

	var payload qrPayload
	if err := json.Unmarshal([]byte(qrRaw), &payload); err != nil {
		return reject(CodeInvalidPayload, "QR content is not valid JSON")
	}

	canonical := identity.Normalize(payload.identifier())
	if canonical == "" {
		return reject(CodeInvalidPayload, "QR does not contain 'aadhar' field")
	}

	voter, err := s.resolver.Resolve(ctx, canonical)
	if errors.Is(err, roll.ErrNotFound) {
		return reject(CodeNotFound, "User not found in database")
	}
	if err != nil {
		return internalFailure(attempt, err)
	}

	admitted, err := s.ledger.TryAdmit(ctx, voter.Aadhaar)
	if err != nil {
		return internalFailure(attempt, err)
	}
	if !admitted {
		return reject(CodeAlreadyAdmitted, "This voter has already voted")
	}

	log.Printf("verify attempt %s: voter admitted", attempt)
	return Result{OK: true, Code: CodeOK, Message: "Voter admitted", Voter: voter}
}

// Fingerprint verifies a live fingerprint capture against the voter's
// enrolled template pages. The expensive sensor session only starts once
// every precondition holds.
func (s *Service) Fingerprint(ctx context.Context, rawID string) Result {
	attempt := uuid.NewString()

	if identity.Normalize(rawID) == "" {
		return reject(CodeInvalidPayload, "Missing Aadhaar")
	}

	voter, err := s.resolver.Resolve(ctx, rawID)
	if errors.Is(err, roll.ErrNotFound) {
		return reject(CodeNotFound, "User not found")
	}
	if err != nil {
		return internalFailure(attempt, err)
	}

	if !voter.HasFingerprint() {
		return reject(CodeNotEnrolled, "No fingerprint pages stored for this voter")
	}
	if s.fingerprints == nil {
		return reject(CodeDeviceUnavailable, "Fingerprint module not connected")
	}

	res, err := s.fingerprints.Verify(ctx, voter.FingerprintPages)
	switch {
	case errors.Is(err, sensor.ErrDeviceUnavailable):
		return reject(CodeDeviceUnavailable, "Fingerprint module not connected")
	case errors.Is(err, sensor.ErrNoFinger):
		return reject(CodeNoFinger, "No finger detected")
	case errors.Is(err, sensor.ErrExtractionFailed):
		return reject(CodeExtractionFailed, "Fingerprint extraction failed")
	case err != nil:
		return internalFailure(attempt, err)
	}

	if !res.Matched {
		return reject(CodeNoMatch, "Fingerprint mismatch")
	}
	log.Printf("verify attempt %s: fingerprint matched page %d (score %d)", attempt, res.Page, res.Score)
	return Result{OK: true, Code: CodeOK, Message: "Fingerprint verified"}
}

// Face verifies a camera probe image against the voter's enrolled face
// template. No ledger coupling: a face match never consumes an admission.
func (s *Service) Face(ctx context.Context, rawID, imagePayload string) Result {
	attempt := uuid.NewString()

	if identity.Normalize(rawID) == "" || imagePayload == "" {
		return reject(CodeInvalidPayload, "Missing face data")
	}

	voter, err := s.resolver.Resolve(ctx, rawID)
	if errors.Is(err, roll.ErrNotFound) {
		return reject(CodeNotFound, "User not found")
	}
	if err != nil {
		return internalFailure(attempt, err)
	}

	if !voter.HasFace() {
		return reject(CodeNotEnrolled, "No face template enrolled for this voter")
	}

	probe, err := face.DecodeProbe(imagePayload)
	if err != nil {
		return reject(CodeInvalidPayload, "Invalid image data")
	}

	if s.faces == nil {
		return reject(CodeInternal, "Face verification unavailable")
	}

	template, err := s.faces.Encode(ctx, probe)
	if errors.Is(err, face.ErrNoFace) {
		return reject(CodeNoFace, "No face detected")
	}
	if err != nil {
		return internalFailure(attempt, err)
	}

	if !face.Match(voter.FaceTemplate, template, s.faceThreshold) {
		return reject(CodeNoMatch, "Face not matching")
	}
	return Result{OK: true, Code: CodeOK, Message: "Face verified"}
}

// SendConfirmation sends the vote-counted SMS to the voter's enrolled
// phone. Failures are reported to the caller but have no effect on the
// admission that already happened.
func (s *Service) SendConfirmation(ctx context.Context, rawID string) Result {
	attempt := uuid.NewString()

	if identity.Normalize(rawID) == "" {
		return reject(CodeInvalidPayload, "Missing Aadhaar")
	}

	voter, err := s.resolver.Resolve(ctx, rawID)
	if errors.Is(err, roll.ErrNotFound) {
		return reject(CodeNotFound, "User not found")
	}
	if err != nil {
		return internalFailure(attempt, err)
	}

	if voter.Phone == "" {
		return reject(CodeNotEnrolled, "Phone number missing")
	}
	if s.notifier == nil {
		return reject(CodeInternal, "SMS not configured")
	}

	if err := s.notifier.Send(voter.Phone, "Your vote has been counted. Thank you."); err != nil {
		log.Printf("verify attempt %s: SMS delivery failed: %v", attempt, err)
		return reject(CodeInternal, "SMS sending failed")
	}
	return Result{OK: true, Code: CodeOK, Message: "SMS sent"}
}
