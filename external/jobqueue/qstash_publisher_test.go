package jobqueue

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_SendsQStashHeaders(t *testing.T) {
	var gotPath, gotBody string
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer server.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          server.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://api.example.com/",
		Retries:          2,
		InternalJobToken: "job-secret",
	}, nil)
	require.NoError(t, err)

	err = publisher.Enqueue(context.Background(), "v1/internal/jobs/sync-live", map[string]string{"provider": "faceit"}, 1500*time.Millisecond, " live-sync:faceit:m1 ")
	require.NoError(t, err)

	assert.Equal(t, "/v2/publish/https://api.example.com/v1/internal/jobs/sync-live", gotPath)
	assert.Equal(t, "Bearer qstash-token", gotHeader.Get("Authorization"))
	assert.Equal(t, "POST", gotHeader.Get("Upstash-Method"))
	assert.Equal(t, "2", gotHeader.Get("Upstash-Retries"))
	assert.Equal(t, "2s", gotHeader.Get("Upstash-Delay"))
	assert.Equal(t, "live-sync:faceit:m1", gotHeader.Get("Upstash-Deduplication-Id"))
	assert.Equal(t, "job-secret", gotHeader.Get("Upstash-Forward-X-Internal-Job-Token"))
	assert.JSONEq(t, `{"provider":"faceit"}`, gotBody)
}

func TestEnqueue_NoDelayHeaderForImmediateJobs(t *testing.T) {
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: server.URL, TargetBaseURL: "https://api.example.com"}, nil)
	require.NoError(t, err)
	require.NoError(t, publisher.Enqueue(context.Background(), "/v1/internal/jobs/status-tick", nil, 0, ""))

	assert.Empty(t, gotHeader.Get("Upstash-Delay"))
	assert.Empty(t, gotHeader.Get("Upstash-Deduplication-Id"))
	assert.Empty(t, gotHeader.Get("Upstash-Retries"))
}

func TestEnqueue_RejectedPublishIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: server.URL, Token: "bad", TargetBaseURL: "https://api.example.com"}, nil)
	require.NoError(t, err)

	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/status-tick", nil, 0, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
	assert.False(t, strings.Contains(err.Error(), "Bearer bad"))
}

func TestNewQStashPublisher_ValidatesURLs(t *testing.T) {
	_, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: "ftp://qstash", TargetBaseURL: "https://x"}, nil)
	require.Error(t, err)

	_, err = NewQStashPublisher(QStashPublisherConfig{BaseURL: "https://qstash.upstash.io", TargetBaseURL: ""}, nil)
	require.Error(t, err)
}

func TestBuildCurlPreviewMasksSecrets(t *testing.T) {
	preview := buildCurlPreview("https://q/v2/publish/https://t/x", map[string]string{
		"Upstash-Method":                       "POST",
		"Upstash-Forward-X-Internal-Job-Token": "job-secret",
	}, `{"a":"it's"}`)

	assert.Contains(t, preview, "'Upstash-Forward-X-Internal-Job-Token: ***'")
	assert.NotContains(t, preview, "job-secret")
	assert.Contains(t, preview, `'{"a":"it'"'"'s"}'`)
}

func TestNormalizeDelay(t *testing.T) {
	assert.Equal(t, "0s", normalizeDelay(-time.Second))
	assert.Equal(t, "30s", normalizeDelay(30*time.Second))
	assert.Equal(t, "120s", normalizeDelay(2*time.Minute))
}
