package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/parser"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TableRequest is the JSON form of an analyze body. Row values may be
// numbers, numeric strings or null.
type TableRequest struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// badRequestError marks request-shape problems (400).
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze runs the engine over a CSV or JSON body.
//
//	POST /v1/analyze?threshold=0.8&measures=linear,rank&delimiter=;
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := s.analyze(w, r)
	s.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.requests.WithLabelValues("ok").Inc()
	s.metrics.droppedRows.Add(float64(res.Stats.DroppedRows))
	for _, m := range res.Measures {
		s.metrics.pairs.WithLabelValues(string(m)).Add(float64(len(res.FilteredPairs(m))))
	}
	respondJSON(w, http.StatusOK, report.NewDocument(res))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*analysis.Result, error) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		return nil, err
	}
	raw, err := s.readTable(w, r)
	if err != nil {
		return nil, err
	}
	return analysis.Run(r.Context(), raw, cfg)
}

func (s *Server) requestConfig(r *http.Request) (analysis.Config, error) {
	cfg := s.opt.Base
	q := r.URL.Query()
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, &badRequestError{msg: fmt.Sprintf("threshold %q is not a number", v)}
		}
		cfg.Threshold = t
	}
	if v := q.Get("measures"); v != "" {
		cfg.Measures = nil
		for _, name := range strings.Split(v, ",") {
			m, err := analysis.ParseMeasure(name)
			if err != nil {
				return cfg, &badRequestError{msg: err.Error()}
			}
			cfg.Measures = append(cfg.Measures, m)
		}
	}
	return cfg, nil
}

func (s *Server) readTable(w http.ResponseWriter, r *http.Request) (*analysis.RawTable, error) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, s.opt.MaxBodyBytes)
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, &badRequestError{msg: fmt.Sprintf("gzip body: %v", err)}
		}
		defer zr.Close()
		// the limit applies to the decompressed table as well
		body = io.LimitReader(zr, s.opt.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var big *http.MaxBytesError
		if errors.As(err, &big) {
			return nil, err
		}
		return nil, &badRequestError{msg: fmt.Sprintf("read body: %v", err)}
	}
	if int64(len(data)) > s.opt.MaxBodyBytes {
		return nil, &http.MaxBytesError{Limit: s.opt.MaxBodyBytes}
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "request"
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		return decodeTableJSON(data, name)
	}
	var delim rune
	if d := r.URL.Query().Get("delimiter"); d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		delim = []rune(d)[0]
	}
	raw, err := parser.ReadCSV(bytes.NewReader(data), name, delim)
	if err != nil {
		return nil, &badRequestError{msg: err.Error()}
	}
	return raw, nil
}

func decodeTableJSON(data []byte, name string) (*analysis.RawTable, error) {
	var req TableRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &badRequestError{msg: fmt.Sprintf("decode table: %v", err)}
	}
	if req.Name != "" {
		name = req.Name
	}
	raw := &analysis.RawTable{Name: name, Header: req.Columns, Rows: make([][]analysis.Cell, len(req.Rows))}
	for i, row := range req.Rows {
		cells := make([]analysis.Cell, len(row))
		for j, v := range row {
			switch x := v.(type) {
			case nil:
				cells[j] = analysis.Absent()
			case float64:
				cells[j] = analysis.Number(x)
			case string:
				if strings.TrimSpace(x) == "" {
					cells[j] = analysis.Absent()
				} else {
					cells[j] = analysis.Text(x)
				}
			case bool:
				if x {
					cells[j] = analysis.Number(1)
				} else {
					cells[j] = analysis.Number(0)
				}
			default:
				return nil, &badRequestError{msg: fmt.Sprintf("row %d column %d: unsupported value %v", i, j, v)}
			}
		}
		raw.Rows[i] = cells
	}
	return raw, nil
}

// respondError maps engine and request errors to status codes and logs the
// cause with the request id.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, outcome := classify(err)
	s.metrics.requests.WithLabelValues(outcome).Inc()
	s.log.Warn("analyze failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (status int, code, outcome string) {
	var (
		thr   *analysis.InvalidThresholdError
		empty *analysis.EmptyResultError
		limit *analysis.LimitError
		comp  *analysis.ComputationError
		bad   *badRequestError
		big   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &thr):
		return http.StatusBadRequest, "invalid_threshold", "invalid"
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request", "invalid"
	case errors.As(err, &big):
		return http.StatusRequestEntityTooLarge, "body_too_large", "rejected"
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity, "empty_result", "invalid"
	case errors.As(err, &limit):
		return http.StatusUnprocessableEntity, "limit_exceeded", "rejected"
	case errors.As(err, &comp):
		return http.StatusInternalServerError, "computation_failed", "failed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled", "failed"
	}
	return http.StatusInternalServerError, "internal", "failed"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
