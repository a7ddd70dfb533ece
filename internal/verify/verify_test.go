package verify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/shadowvote/votegate/internal/face"
	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/ledger"
	"github.com/shadowvote/votegate/internal/roll"
	"github.com/shadowvote/votegate/internal/sensor"
)

// fakeStore is an in-memory roll keyed by canonical identifier.
type fakeStore struct {
	voters map[string]*identity.Voter
	err    error
}

func (f *fakeStore) Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.voters[canonicalID]
	if !ok {
		return nil, roll.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.voters), nil
}

// fakeFingerprinter records calls and returns a scripted outcome.
type fakeFingerprinter struct {
	mu     sync.Mutex
	calls  int
	result sensor.Result
	err    error
}

func (f *fakeFingerprinter) Verify(ctx context.Context, pages []uint16) (sensor.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeFingerprinter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeFaceEncoder returns a scripted template.
type fakeFaceEncoder struct {
	template []float32
	err      error
}

func (f *fakeFaceEncoder) Encode(ctx context.Context, imageData []byte) ([]float32, error) {
	return f.template, f.err
}

// fakeNotifier records sent messages.
type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(phone, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, phone)
	return nil
}

func testVoters() map[string]*identity.Voter {
	return map[string]*identity.Voter{
		"111122223333": {
			Aadhaar:          "111122223333",
			Name:             "Asha Kumar",
			Age:              "34",
			Address:          "12 Lake Road",
			FingerprintPages: []uint16{1, 2},
			FaceTemplate:     []float32{0.5, 0.5, 0.1},
			Phone:            "9876543210",
		},
		"444455556666": {
			Aadhaar: "444455556666",
			Name:    "Ravi Menon",
			Age:     "61",
			Address: "4 Hill Street",
		},
	}
}

func newTestService(t *testing.T, fp *fakeFingerprinter, fe *fakeFaceEncoder, n *fakeNotifier) (*Service, *ledger.Memory) {
	t.Helper()
	store := &fakeStore{voters: testVoters()}
	mem := ledger.NewMemory()
	var fingerprints Fingerprinter
	if fp != nil {
		fingerprints = fp
	}
	var faces FaceEncoder
	if fe != nil {
		faces = fe
	}
	var notifier Notifier
	if n != nil {
		notifier = n
	}
	return NewService(roll.NewResolver(store), mem, fingerprints, faces, 0.4, notifier), mem
}

func probeImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 20), uint8(y * 20), 80, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestQRAdmission(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	res := svc.QR(ctx, `{"aadhar": "1111 2222 3333"}`)
	if !res.OK {
		t.Fatalf("first admission rejected: %s", res.Message)
	}
	if res.Voter == nil || res.Voter.Name != "Asha Kumar" {
		t.Errorf("expected voter record in result, got %+v", res.Voter)
	}

	res = svc.QR(ctx, `{"aadhar": "111122223333"}`)
	if res.OK || res.Code != CodeAlreadyAdmitted {
		t.Errorf("second admission must be rejected, got %+v", res)
	}
	if res.Message != "This voter has already voted" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestQRAcceptsAlternateSpelling(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)

	res := svc.QR(context.Background(), `{"aadhaar": "444455556666"}`)
	if !res.OK {
		t.Errorf("aadhaar-spelled payload rejected: %s", res.Message)
	}
}

func TestQRInvalidPayloads(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		qr   string
	}{
		{"empty", ""},
		{"not JSON", "plain text"},
		{"missing identifier", `{"name": "nobody"}`},
		{"whitespace identifier", `{"aadhar": "   "}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := svc.QR(ctx, tc.qr)
			if res.OK || res.Code != CodeInvalidPayload {
				t.Errorf("expected invalid payload rejection, got %+v", res)
			}
		})
	}
}

func TestQRUnknownVoter(t *testing.T) {
	svc, mem := newTestService(t, nil, nil, nil)

	res := svc.QR(context.Background(), `{"aadhar": "000000000000"}`)
	if res.OK || res.Code != CodeNotFound {
		t.Errorf("expected not-found rejection, got %+v", res)
	}
	if res.Message != "User not found in database" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if mem.Size() != 0 {
		t.Errorf("failed lookup must not touch the ledger, size = %d", mem.Size())
	}
}

func TestQRConcurrentAdmitExactlyOne(t *testing.T) {
	svc, mem := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	results := make([]Result, attempts)
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.QR(ctx, `{"aadhar": "1111 2222 3333"}`)
		}()
	}
	wg.Wait()

	admitted := 0
	for _, res := range results {
		if res.OK {
			admitted++
		} else if res.Code != CodeAlreadyAdmitted {
			t.Errorf("losing attempt got unexpected code %d: %s", res.Code, res.Message)
		}
	}
	if admitted != 1 {
		t.Errorf("expected exactly one winning admission, got %d", admitted)
	}
	if mem.Size() != 1 {
		t.Errorf("ledger size = %d; want 1", mem.Size())
	}
}

func TestFingerprintMatch(t *testing.T) {
	fp := &fakeFingerprinter{result: sensor.Result{Matched: true, Page: 2, Score: 120}}
	svc, mem := newTestService(t, fp, nil, nil)

	res := svc.Fingerprint(context.Background(), "1111 2222 3333")
	if !res.OK {
		t.Fatalf("expected match, got %+v", res)
	}
	if res.Message != "Fingerprint verified" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if mem.Size() != 0 {
		t.Error("fingerprint verification must not consume an admission")
	}
}

func TestFingerprintMismatch(t *testing.T) {
	fp := &fakeFingerprinter{result: sensor.Result{Matched: false}}
	svc, _ := newTestService(t, fp, nil, nil)

	res := svc.Fingerprint(context.Background(), "111122223333")
	if res.OK || res.Code != CodeNoMatch {
		t.Errorf("expected mismatch rejection, got %+v", res)
	}
	if res.Message != "Fingerprint mismatch" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFingerprintNotEnrolledSkipsSensor(t *testing.T) {
	fp := &fakeFingerprinter{result: sensor.Result{Matched: true}}
	svc, _ := newTestService(t, fp, nil, nil)

	// Voter 4444... has no enrolled pages.
	res := svc.Fingerprint(context.Background(), "444455556666")
	if res.OK || res.Code != CodeNotEnrolled {
		t.Errorf("expected not-enrolled rejection, got %+v", res)
	}
	if fp.callCount() != 0 {
		t.Errorf("sensor must not be opened without enrolled pages, calls = %d", fp.callCount())
	}
}

func TestFingerprintSensorErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    Code
		message string
	}{
		{"device unavailable", sensor.ErrDeviceUnavailable, CodeDeviceUnavailable, "Fingerprint module not connected"},
		{"no finger", sensor.ErrNoFinger, CodeNoFinger, "No finger detected"},
		{"extraction failed", sensor.ErrExtractionFailed, CodeExtractionFailed, "Fingerprint extraction failed"},
		{"unexpected", errors.New("bus error"), CodeInternal, "Internal verification error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fp := &fakeFingerprinter{err: tc.err}
			svc, _ := newTestService(t, fp, nil, nil)

			res := svc.Fingerprint(context.Background(), "111122223333")
			if res.OK || res.Code != tc.code {
				t.Errorf("expected code %d, got %+v", tc.code, res)
			}
			if res.Message != tc.message {
				t.Errorf("message = %q; want %q", res.Message, tc.message)
			}
		})
	}
}

func TestFingerprintNoSensorConfigured(t *testing.T) {
	svc, _ := newTestService(t, nil, nil, nil)

	res := svc.Fingerprint(context.Background(), "111122223333")
	if res.OK || res.Code != CodeDeviceUnavailable {
		t.Errorf("expected device-unavailable rejection, got %+v", res)
	}
}

func TestFaceMatch(t *testing.T) {
	fe := &fakeFaceEncoder{template: []float32{0.5, 0.5, 0.1}}
	svc, mem := newTestService(t, nil, fe, nil)

	res := svc.Face(context.Background(), "111122223333", probeImage(t))
	if !res.OK {
		t.Fatalf("expected match, got %+v", res)
	}
	if res.Message != "Face verified" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if mem.Size() != 0 {
		t.Error("face verification must not consume an admission")
	}
}

func TestFaceMismatch(t *testing.T) {
	fe := &fakeFaceEncoder{template: []float32{-0.5, -0.5, -0.1}}
	svc, _ := newTestService(t, nil, fe, nil)

	res := svc.Face(context.Background(), "111122223333", probeImage(t))
	if res.OK || res.Code != CodeNoMatch {
		t.Errorf("expected mismatch rejection, got %+v", res)
	}
	if res.Message != "Face not matching" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFaceUndecodableImage(t *testing.T) {
	fe := &fakeFaceEncoder{template: []float32{0.5, 0.5, 0.1}}
	svc, _ := newTestService(t, nil, fe, nil)

	res := svc.Face(context.Background(), "111122223333", "!!not an image!!")
	if res.OK || res.Code != CodeInvalidPayload {
		t.Errorf("expected invalid payload rejection, got %+v", res)
	}
	if res.Message != "Invalid image data" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFaceNoFaceDetected(t *testing.T) {
	svc, _ := newTestService(t, nil, &fakeFaceEncoder{err: face.ErrNoFace}, nil)

	res := svc.Face(context.Background(), "111122223333", probeImage(t))
	if res.OK || res.Code != CodeNoFace {
		t.Errorf("expected no-face rejection, got %+v", res)
	}
	if res.Message != "No face detected" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestFaceNotEnrolled(t *testing.T) {
	fe := &fakeFaceEncoder{template: []float32{0.5, 0.5, 0.1}}
	svc, _ := newTestService(t, nil, fe, nil)

	res := svc.Face(context.Background(), "444455556666", probeImage(t))
	if res.OK || res.Code != CodeNotEnrolled {
		t.Errorf("expected not-enrolled rejection, got %+v", res)
	}
}

func TestSendConfirmation(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := newTestService(t, nil, nil, n)

	res := svc.SendConfirmation(context.Background(), "111122223333")
	if !res.OK {
		t.Fatalf("expected SMS sent, got %+v", res)
	}
	if len(n.sent) != 1 || n.sent[0] != "9876543210" {
		t.Errorf("unexpected recipients: %v", n.sent)
	}
}

func TestSendConfirmationNoPhone(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := newTestService(t, nil, nil, n)

	res := svc.SendConfirmation(context.Background(), "444455556666")
	if res.OK || res.Code != CodeNotEnrolled {
		t.Errorf("expected missing-phone rejection, got %+v", res)
	}
	if len(n.sent) != 0 {
		t.Errorf("no SMS must be sent without a phone number, sent %v", n.sent)
	}
}

func TestSendConfirmationDeliveryFailure(t *testing.T) {
	n := &fakeNotifier{err: errors.New("twilio 401")}
	svc, _ := newTestService(t, nil, nil, n)

	res := svc.SendConfirmation(context.Background(), "111122223333")
	if res.OK || res.Code != CodeInternal {
		t.Errorf("expected delivery failure, got %+v", res)
	}
	if res.Message != "SMS sending failed" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}
