package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shadowvote/votegate/internal/identity"
	"github.com/shadowvote/votegate/internal/roll"
)

// fakeStore implements roll.Store for handler tests.
type fakeStore struct {
	count int
	err   error
}

func (f *fakeStore) Lookup(ctx context.Context, canonicalID string) (*identity.Voter, error) {
	return nil, roll.ErrNotFound
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return f.count, f.err
}

func TestStats_Get(t *testing.T) {
	h := NewStatsHandler(&fakeStore{count: 1234})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()
	h.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp StatsResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.EnrolledVoters != 1234 {
		t.Errorf("expected 1234 enrolled voters, got %d", resp.EnrolledVoters)
	}
}

func TestStats_StoreError(t *testing.T) {
	h := NewStatsHandler(&fakeStore{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	recorder := httptest.NewRecorder()
	h.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to count enrolled voters")
}
