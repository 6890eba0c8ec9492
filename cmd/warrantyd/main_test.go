package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warranty/internal/config"
	"warranty/internal/contracts"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func startDaemon(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Address:         freeAddress(t),
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging:   config.LoggingConfig{Mode: "dev", Level: "error"},
		Telemetry: config.TelemetryConfig{ServiceName: "warrantyd-test"},
		Claims:    config.ClaimsConfig{RatePerMinute: 6000, Burst: 100},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	base := "http://" + cfg.Server.Address
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	return base
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestDaemon_ConcurrentClaimFlow(t *testing.T) {
	base := startDaemon(t)

	resp := post(t, base+"/contracts", map[string]any{
		"purchase_price": "250",
		"product": map[string]string{
			"name": "oven", "id": "OV-1", "manufacturer": "Bosch", "model_number": "HBL8453UC",
		},
		"terms": map[string]any{
			"purchase_date":               "2024-01-15",
			"coverage_start_date":         "2024-01-15",
			"coverage_end_date":           "2027-01-15",
			"liability_percent_threshold": 40,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view contracts.ContractView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()

	contractURL := fmt.Sprintf("%s/contracts/%s", base, view.ID)
	req, err := http.NewRequest(http.MethodPut, contractURL+"/status", bytes.NewBufferString(`{"status":"ACTIVE"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Limit is 100; claims of 25 fit while 25 < remaining, so three succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := post(t, contractURL+"/claims", map[string]string{"amount": "25", "date_filed": "2025-03-01"})
			resp.Body.Close()
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, codes[http.StatusCreated])
	assert.Equal(t, 7, codes[http.StatusUnprocessableEntity])

	resp, err = http.Get(contractURL)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	assert.Equal(t, "75", view.ClaimTotal.String())
	assert.Equal(t, "25", view.LimitOfLiability.String())
}
