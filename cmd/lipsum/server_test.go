package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doRequest sends a request to the test server and decodes a JSON response
// into out when out is non-nil.
func doRequest(t *testing.T, ts *httptest.Server, method, path, contentType, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body map[string]string
	code := doRequest(t, ts, http.MethodGet, "/api/health", "", "", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestLipsumEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var first, second generateResponse
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=30&seed=42", "", "", &first))
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=30&seed=42", "", "", &second))

	assert.Equal(t, "lorem", first.Corpus)
	assert.Equal(t, uint64(42), first.Seed)
	assert.Equal(t, 30, first.Words)
	assert.True(t, strings.HasPrefix(first.Text, lorem.Prefix), "text %q lacks the lorem ipsum opening", first.Text)
	assert.Len(t, strings.Fields(first.Text), 30)
	assert.Equal(t, first.Text, second.Text, "same seed should give the same text")

	var defaulted generateResponse
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum", "", "", &defaulted))
	assert.Len(t, strings.Fields(defaulted.Text), 25)
	assert.NotZero(t, defaulted.Seed)
}

func TestLipsumEndpoint_BadParameters(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, query := range []string{"words=-1", "words=abc", "words=10001", "seed=x", "seed=-3"} {
		t.Run(query, func(t *testing.T) {
			var body map[string]string
			code := doRequest(t, ts, http.MethodGet, "/api/lipsum?"+query, "", "", &body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCorpusLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var created corpus.Info
	code := doRequest(t, ts, http.MethodPost, "/api/corpora", "application/json", `{"name":"colors","order":2}`, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "colors", created.Name)
	assert.Equal(t, 2, created.Order)

	// An empty corpus cannot generate.
	assert.Equal(t, http.StatusConflict, doRequest(t, ts, http.MethodGet, "/api/corpora/colors/generate?words=3", "", "", nil))

	code = doRequest(t, ts, http.MethodPost, "/api/corpora/colors/texts?title=spectrum",
		"text/plain", "red orange yellow green blue indigo violet", nil)
	require.Equal(t, http.StatusCreated, code)

	var gen generateResponse
	code = doRequest(t, ts, http.MethodGet, "/api/corpora/colors/generate?words=5&seed=1&from=red+orange", "", "", &gen)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "red orange yellow green blue", gen.Text)

	code = doRequest(t, ts, http.MethodPost, "/api/corpora/colors/texts",
		"text/markdown", "# Shades\n\nblue *indigo* black\n", nil)
	require.Equal(t, http.StatusCreated, code)

	var stats statsResponse
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/corpora/colors/stats", "", "", &stats))
	assert.Equal(t, 2, stats.Corpus.Texts)
	assert.Equal(t, 2, stats.Model.Order)
	// spectrum: 5 keys, "Shades blue indigo black": 2 keys, "blue indigo" is shared.
	assert.Equal(t, 6, stats.Model.Prefixes)
	assert.Equal(t, 1, stats.Model.Starters)

	var list []corpus.Info
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/corpora", "", "", &list))
	require.Len(t, list, 2)
	assert.Equal(t, "lorem", list[0].Name)
	assert.Equal(t, "colors", list[1].Name)

	assert.Equal(t, http.StatusNoContent, doRequest(t, ts, http.MethodDelete, "/api/corpora/colors", "", "", nil))
	assert.Equal(t, http.StatusNotFound, doRequest(t, ts, http.MethodDelete, "/api/corpora/colors", "", "", nil))
	assert.Equal(t, http.StatusNotFound, doRequest(t, ts, http.MethodGet, "/api/corpora/colors/generate", "", "", nil))
}

func TestCorpusErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated,
		doRequest(t, ts, http.MethodPost, "/api/corpora", "application/json", `{"name":"taken"}`, nil))

	testCases := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		expected    int
	}{
		{name: "Duplicate name", method: http.MethodPost, path: "/api/corpora", body: `{"name":"taken"}`, expected: http.StatusConflict},
		{name: "Built-in name", method: http.MethodPost, path: "/api/corpora", body: `{"name":"lorem"}`, expected: http.StatusConflict},
		{name: "Zero order", method: http.MethodPost, path: "/api/corpora", body: `{"name":"zero","order":0}`, expected: http.StatusBadRequest},
		{name: "Invalid name", method: http.MethodPost, path: "/api/corpora", body: `{"name":"a b"}`, expected: http.StatusBadRequest},
		{name: "Malformed body", method: http.MethodPost, path: "/api/corpora", body: `{"name":`, expected: http.StatusBadRequest},
		{name: "Text without words", method: http.MethodPost, path: "/api/corpora/taken/texts", contentType: "text/plain", body: " \n ", expected: http.StatusBadRequest},
		{name: "Text for unknown corpus", method: http.MethodPost, path: "/api/corpora/missing/texts", contentType: "text/plain", body: "a b c", expected: http.StatusNotFound},
		{name: "Text for built-in corpus", method: http.MethodPost, path: "/api/corpora/lorem/texts", contentType: "text/plain", body: "a b c", expected: http.StatusForbidden},
		{name: "Remove built-in corpus", method: http.MethodDelete, path: "/api/corpora/lorem", expected: http.StatusForbidden},
		{name: "Stats of unknown corpus", method: http.MethodGet, path: "/api/corpora/missing/stats", expected: http.StatusNotFound},
		{name: "Generate from unknown corpus", method: http.MethodGet, path: "/api/corpora/missing/generate", expected: http.StatusNotFound},
		{name: "Too many words", method: http.MethodGet, path: "/api/corpora/lorem/generate?words=10001", expected: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			code := doRequest(t, ts, tc.method, tc.path, tc.contentType, tc.body, &body)
			assert.Equal(t, tc.expected, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBuiltinCorpusStats(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var stats statsResponse
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/corpora/lorem/stats", "", "", &stats))
	assert.Equal(t, "lorem", stats.Corpus.Name)
	assert.Equal(t, lorem.Order, stats.Model.Order)
	assert.Equal(t, lorem.Chain().Size(), stats.Model.Prefixes)
	assert.Positive(t, stats.Model.Starters)
}

func TestStream(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/corpora/lorem/stream?words=12&seed=7"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var streamed []string
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err), "unexpected error: %v", err)
			break
		}
		assert.Equal(t, websocket.MessageText, typ)
		streamed = append(streamed, string(data))
	}
	require.Len(t, streamed, 12)

	var gen generateResponse
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/corpora/lorem/generate?words=12&seed=7", "", "", &gen))
	assert.Equal(t, gen.Text, strings.Join(streamed, " "), "stream and generate should agree for the same seed")
}

func TestStream_RejectsBadRequests(t *testing.T) {
	_, ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, ts, http.MethodGet, "/api/corpora/lorem/stream?words=0", "", "", nil))
	assert.Equal(t, http.StatusNotFound, doRequest(t, ts, http.MethodGet, "/api/corpora/missing/stream", "", "", nil))
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *Config) {
		cfg.Server.RateLimitRPS = 0.01
		cfg.Server.RateLimitBurst = 2
	})

	assert.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=1", "", "", nil))
	assert.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=1", "", "", nil))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=1", "", "", nil))

	// Only generation is limited.
	assert.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/health", "", "", nil))
}

func TestClientIP(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.7"}
	})

	testCases := []struct {
		name     string
		remote   string
		headers  map[string]string
		expected string
	}{
		{name: "Direct client", remote: "198.51.100.4:5000", expected: "198.51.100.4"},
		{name: "Untrusted forwarder", remote: "198.51.100.4:5000", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, expected: "198.51.100.4"},
		{name: "Trusted CIDR", remote: "10.1.2.3:5000", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.1.2.3"}, expected: "203.0.113.9"},
		{name: "Trusted IP with X-Real-Ip", remote: "192.0.2.7:5000", headers: map[string]string{"X-Real-Ip": "203.0.113.10"}, expected: "203.0.113.10"},
		{name: "Trusted without headers", remote: "10.1.2.3:5000", expected: "10.1.2.3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, s.clientIP(r))
		})
	}
}

func TestMetrics(t *testing.T) {
	_, ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/health", "", "", nil))
	require.Equal(t, http.StatusOK, doRequest(t, ts, http.MethodGet, "/api/lipsum?words=5", "", "", nil))

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `lipsum_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
	assert.Contains(t, body, `lipsum_words_generated_total{corpus="lorem"} 5`)
	assert.Contains(t, body, `lipsum_chain_prefixes{corpus="lorem"}`)
}
