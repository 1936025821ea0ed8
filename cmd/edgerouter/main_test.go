package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihari123/reelpick/internal/logger"
)

func TestPool_RoundRobinsAcrossHealthyBackends(t *testing.T) {
	var hits [2]int
	s0 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[0]++
		w.WriteHeader(http.StatusOK)
	}))
	defer s0.Close()
	s1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[1]++
		w.WriteHeader(http.StatusOK)
	}))
	defer s1.Close()

	b0, err := newBackend(s0.URL)
	require.NoError(t, err)
	b1, err := newBackend(s1.URL)
	require.NoError(t, err)

	p := newPool([]*backend{b0, b1})
	router := httptest.NewServer(p)
	defer router.Close()

	for i := 0; i < 4; i++ {
		resp, err := http.Get(router.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2, hits[0])
	assert.Equal(t, 2, hits[1])
}

func TestPool_SkipsUnhealthyBackend(t *testing.T) {
	var hits int
	s0 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer s0.Close()

	b0, err := newBackend(s0.URL)
	require.NoError(t, err)
	b1, err := newBackend("http://127.0.0.1:1") // never comes up
	require.NoError(t, err)
	b1.healthy = false

	p := newPool([]*backend{b0, b1})
	router := httptest.NewServer(p)
	defer router.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(router.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 3, hits)
}

func TestPool_NoHealthyBackendReturns503(t *testing.T) {
	b0, err := newBackend("http://127.0.0.1:1")
	require.NoError(t, err)
	b0.healthy = false

	p := newPool([]*backend{b0})
	router := httptest.NewServer(p)
	defer router.Close()

	resp, err := http.Get(router.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestBackend_FlipsUnhealthyAfterThresholdFailures(t *testing.T) {
	b, err := newBackend("http://127.0.0.1:1")
	require.NoError(t, err)
	log := logger.New()

	for i := 0; i < unhealthyThreshold-1; i++ {
		b.recordResult(false, log)
		assert.True(t, b.isHealthy())
	}
	b.recordResult(false, log)
	assert.False(t, b.isHealthy())
}

func TestBackend_FlipsHealthyAfterThresholdSuccesses(t *testing.T) {
	b, err := newBackend("http://127.0.0.1:1")
	require.NoError(t, err)
	log := logger.New()
	b.healthy = false
	b.streak = -unhealthyThreshold

	for i := 0; i < healthyThreshold-1; i++ {
		b.recordResult(true, log)
		assert.False(t, b.isHealthy())
	}
	b.recordResult(true, log)
	assert.True(t, b.isHealthy())
}

func TestRunHealthChecks_MarksDownBackendUnhealthy(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer s.Close()

	b, err := newBackend(s.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go runHealthChecks(ctx, []*backend{b}, 10*time.Millisecond, logger.New())

	require.Eventually(t, func() bool {
		return !b.isHealthy()
	}, time.Second, 5*time.Millisecond)
}
