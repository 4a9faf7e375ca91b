package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
)

const exampleCSV = "A,B,C\n1,2,5\n2,4,3\n3,6,1\n4,8,x\n"

func newTestServer(t *testing.T, opt Options) *httptest.Server {
	t.Helper()
	if opt.Base.Threshold == 0 {
		opt.Base = analysis.DefaultConfig()
	}
	ts := httptest.NewServer(New(opt).Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestAnalyzeCSV(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := post(t, ts.URL+"/v1/analyze", "text/csv", exampleCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var doc report.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, []string{"A", "B", "C"}, doc.Columns)
	assert.Equal(t, 1, doc.DroppedRows)
	require.Len(t, doc.Measures, 3)
	assert.Equal(t, []analysis.FilteredPair{{A: "A", B: "B", Value: 1}, {A: "A", B: "C", Value: -1}, {A: "B", B: "C", Value: -1}}, doc.Measures[0].Pairs)
}

func TestAnalyzeJSONWithMeasures(t *testing.T) {
	ts := newTestServer(t, Options{})
	body := `{"name":"lab","columns":["x","y"],"rows":[[1,"2"],[2,4],[3,null],[4,8]]}`
	resp, out := post(t, ts.URL+"/v1/analyze?measures=rank&threshold=0.5", "application/json", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(out))

	var doc report.Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "lab", doc.Name)
	assert.Equal(t, 0.5, doc.Threshold)
	assert.Equal(t, 3, doc.Rows)
	require.Len(t, doc.Measures, 1)
	assert.Equal(t, analysis.Rank, doc.Measures[0].Measure)
}

func gzipBody(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &buf
}

func TestAnalyzeGzipBody(t *testing.T) {
	ts := newTestServer(t, Options{})
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/analyze", gzipBody(t, exampleCSV))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var doc report.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, 3, doc.Rows)
}

func TestAnalyzeGzipBombRejected(t *testing.T) {
	ts := newTestServer(t, Options{MaxBodyBytes: 256})
	payload := "a,b\n" + strings.Repeat("1,2\n", 1000)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/analyze", gzipBody(t, payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAnalyzeErrors(t *testing.T) {
	ts := newTestServer(t, Options{MaxBodyBytes: 64, Base: analysis.Config{Threshold: 0.9, Limits: analysis.Limits{MaxColumns: 2}}})
	cases := []struct {
		name, query, ctype, body string
		status                   int
		code                     string
	}{
		{"threshold", "?threshold=1.5", "text/csv", "a,b\n1,2\n2,3\n", http.StatusBadRequest, "invalid_threshold"},
		{"threshold nan text", "?threshold=high", "text/csv", "a,b\n1,2\n", http.StatusBadRequest, "bad_request"},
		{"measure", "?measures=kendall", "text/csv", "a,b\n1,2\n", http.StatusBadRequest, "bad_request"},
		{"json", "", "application/json", "{", http.StatusBadRequest, "bad_request"},
		{"empty", "", "text/csv", "a,b\nx,1\n2,2\n", http.StatusUnprocessableEntity, "empty_result"},
		{"limit", "", "text/csv", "a,b,c\n1,2,3\n2,3,5\n", http.StatusUnprocessableEntity, "limit_exceeded"},
		{"too large", "", "text/csv", "a,b\n" + strings.Repeat("1,2\n", 40), http.StatusRequestEntityTooLarge, "body_too_large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := post(t, ts.URL+"/v1/analyze"+tc.query, tc.ctype, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, string(body))
			var er ErrorResponse
			require.NoError(t, json.Unmarshal(body, &er))
			assert.Equal(t, tc.code, er.Code)
			assert.NotEmpty(t, er.Error)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	post(t, ts.URL+"/v1/analyze", "text/csv", exampleCSV)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, `corrloom_analyze_requests_total{outcome="ok"} 1`)
	assert.Contains(t, text, `corrloom_filtered_pairs_total{measure="linear"} 3`)
	assert.Contains(t, text, "corrloom_dropped_rows_total 1")
	assert.Contains(t, text, "corrloom_analyze_duration_seconds_count 1")
}

func TestDefaultCellBudget(t *testing.T) {
	s := New(Options{})
	assert.Equal(t, DefaultMaxCells, s.opt.Base.Limits.MaxCells)

	s = New(Options{Base: analysis.Config{Limits: analysis.Limits{MaxCells: -1}}})
	assert.Equal(t, int64(-1), s.opt.Base.Limits.MaxCells)
}

func TestAnalyzeCellBudget(t *testing.T) {
	// 2² · 5² = 100 cells
	body := "a,b\n1,2\n2,1\n3,5\n4,4\n5,3\n"
	ts := newTestServer(t, Options{Base: analysis.Config{Threshold: 0.9, Limits: analysis.Limits{MaxCells: 99}}})
	resp, out := post(t, ts.URL+"/v1/analyze", "text/csv", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(out))

	resp, out = post(t, ts.URL+"/v1/analyze?measures=linear,rank", "text/csv", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(out))
}

func TestClassify(t *testing.T) {
	status, code, _ := classify(&analysis.ComputationError{Reason: "x"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "computation_failed", code)
}
