package sales

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos_core/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		SalesBaseURL: baseURL,
		APIToken:     "test-token",
		StoreID:      "store-1",
		Timeout:      2 * time.Second,
	}
}

func snapshotFixture() Snapshot {
	return Snapshot{
		Lines: []SnapshotLine{
			{ProductID: "p1", Name: "Soda", Quantity: 2, UnitPriceFinal: 1.50, UnitPriceBase: 1.50},
		},
		Subtotal:   3.00,
		Tax:        0.30,
		Total:      3.30,
		CapturedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHoldPostsSnapshot(t *testing.T) {
	var gotIdempotencyKey string
	var gotBody holdRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/stores/store-1/tickets", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TicketRef{ID: "ticket-42", Note: gotBody.Note})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	ref, err := client.Hold(context.Background(), snapshotFixture(), "lunch")
	require.NoError(t, err)

	assert.Equal(t, "ticket-42", ref.ID)
	assert.NotEmpty(t, gotIdempotencyKey)
	assert.Equal(t, "lunch", gotBody.Note)
	require.Len(t, gotBody.Snapshot.Lines, 1)
	assert.Equal(t, "p1", gotBody.Snapshot.Lines[0].ProductID)
}

func TestResumeDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/stores/store-1/tickets/ticket-42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resumeResponse{Snapshot: snapshotFixture()})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	snapshot, err := client.Resume(context.Background(), "ticket-42")
	require.NoError(t, err)

	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, 3.30, snapshot.Total)
}

func TestResumeUnknownTicket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such ticket", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	_, err := client.Resume(context.Background(), "ticket-404")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCompleteMapsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	_, err := client.Complete(context.Background(), Sale{Snapshot: snapshotFixture()})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMissingTokenRejectedLocally(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.APIToken = ""
	client := NewClient(cfg, zap.NewNop())

	_, err := client.Hold(context.Background(), snapshotFixture(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}
