// internal/screen/screener_test.go
package screen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/dex-sniper/internal/market"
)

func TestIsCandidate(t *testing.T) {
	s := NewScreener(Options{
		Keywords: []string{"pepe", " MOON "},
	}, zaptest.NewLogger(t))

	tests := []struct {
		name string
		opp  market.Opportunity
		want bool
	}{
		{"symbol match", market.Opportunity{Symbol: "PEPE2", Name: "whatever"}, true},
		{"name match case-insensitive", market.Opportunity{Symbol: "XYZ", Name: "To The Moonshot"}, true},
		{"substring in symbol", market.Opportunity{Symbol: "xPEPEx", Name: ""}, true},
		{"no match", market.Opportunity{Symbol: "BTC", Name: "Bitcoin Wrapped"}, false},
		{"empty opportunity", market.Opportunity{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsCandidate(tt.opp))
		})
	}
}

func TestIsCandidateNoKeywords(t *testing.T) {
	s := NewScreener(Options{}, zaptest.NewLogger(t))
	assert.False(t, s.IsCandidate(market.Opportunity{Symbol: "PEPE", Name: "Pepe"}))
}

type scanServers struct {
	rug      *httptest.Server
	honeypot *httptest.Server
}

func newScanServers(t *testing.T, rugBody, honeypotBody string, rugStatus, honeypotStatus int) scanServers {
	t.Helper()
	rug := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(rugStatus)
		_, _ = w.Write([]byte(rugBody))
	}))
	t.Cleanup(rug.Close)

	honeypot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(honeypotStatus)
		_, _ = w.Write([]byte(honeypotBody))
	}))
	t.Cleanup(honeypot.Close)

	return scanServers{rug: rug, honeypot: honeypot}
}

func newTestScreener(t *testing.T, servers scanServers) *Screener {
	t.Helper()
	return NewScreener(Options{
		Keywords:     []string{"test"},
		MaxRiskScore: 1000,
		RugScanURL:   servers.rug.URL,
		HoneypotURL:  servers.honeypot.URL,
	}, zaptest.NewLogger(t))
}

func TestVerifySafetyBothSafe(t *testing.T) {
	servers := newScanServers(t,
		`{"score": 120, "rugged": false}`,
		`{"honeypotResult": {"isHoneypot": false}}`,
		http.StatusOK, http.StatusOK)

	s := newTestScreener(t, servers)
	require.True(t, s.VerifySafety(context.Background(), "mint-1"))
}

func TestVerifySafetyHoneypotFlag(t *testing.T) {
	servers := newScanServers(t,
		`{"score": 120, "rugged": false}`,
		`{"honeypotResult": {"isHoneypot": true}}`,
		http.StatusOK, http.StatusOK)

	s := newTestScreener(t, servers)
	require.False(t, s.VerifySafety(context.Background(), "mint-1"))
}

func TestVerifySafetyRuggedFlag(t *testing.T) {
	servers := newScanServers(t,
		`{"score": 120, "rugged": true}`,
		`{"honeypotResult": {"isHoneypot": false}}`,
		http.StatusOK, http.StatusOK)

	s := newTestScreener(t, servers)
	require.False(t, s.VerifySafety(context.Background(), "mint-1"))
}

func TestVerifySafetyScoreAtThreshold(t *testing.T) {
	servers := newScanServers(t,
		`{"score": 1000, "rugged": false}`,
		`{"honeypotResult": {"isHoneypot": false}}`,
		http.StatusOK, http.StatusOK)

	s := newTestScreener(t, servers)
	require.False(t, s.VerifySafety(context.Background(), "mint-1"))
}

func TestVerifySafetyFailsClosedOnScanError(t *testing.T) {
	servers := newScanServers(t,
		`{"score": 120, "rugged": false}`,
		`{}`,
		http.StatusInternalServerError, http.StatusOK)

	s := newTestScreener(t, servers)
	require.False(t, s.VerifySafety(context.Background(), "mint-1"))
}

func TestVerifySafetyFailsClosedOnMalformedBody(t *testing.T) {
	servers := newScanServers(t,
		`not json at all`,
		`{"honeypotResult": {"isHoneypot": false}}`,
		http.StatusOK, http.StatusOK)

	s := newTestScreener(t, servers)
	require.False(t, s.VerifySafety(context.Background(), "mint-1"))
}
