// Package router is the query entry point: it enforces input bounds,
// translates transport-level requests into engine queries, and wraps
// results in the response envelope.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillbase/skillbase/internal/bandit"
	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/search"
	"github.com/skillbase/skillbase/internal/store"
)

// MaxLimit bounds one response page.
const MaxLimit = 1000

// Request is one inbound search request.
type Request struct {
	Text     string            `json:"text"`
	Mode     string            `json:"mode,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Layers   []string          `json:"layers,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`

	Context bandit.QueryContext `json:"-"`
}

// ErrorBody is the failure form of the status union.
type ErrorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Category    string `json:"category,omitempty"`
}

// Envelope is the structured response form. Status is a union: the string
// "ok" on success, an *ErrorBody on failure. Every robot-mode command
// emits this same union, so consumers parse one shape.
type Envelope struct {
	Status    any             `json:"status"`
	Results   []search.Result `json:"results"`
	Total     int             `json:"total"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// ErrorStatus converts err into the failure form of the status union.
func ErrorStatus(err error) *ErrorBody {
	body := &ErrorBody{
		Code:        skillerr.CodeOf(err),
		Message:     err.Error(),
		Recoverable: skillerr.IsRecoverable(err),
	}
	if e := skillerr.AsError(err); e != nil {
		body.Message = e.Message
		if e.Cause != nil {
			body.Message = fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		body.Suggestion = e.Suggestion
		body.Category = string(e.Kind)
	}
	return body
}

// Router validates requests and dispatches them to the engine.
type Router struct {
	engine *search.Engine
	logger *slog.Logger
}

// New creates a router.
func New(engine *search.Engine, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{engine: engine, logger: logger}
}

// Search runs one request and always returns an envelope; failures land in
// the status union instead of crashing the caller. The returned error
// mirrors the envelope for callers that prefer it.
func (r *Router) Search(ctx context.Context, req Request) (*Envelope, error) {
	start := time.Now()

	query, err := r.buildQuery(req)
	if err != nil {
		return errorEnvelope(start, err), err
	}

	results, err := r.engine.Search(ctx, query, req.Context)
	if err != nil {
		r.logger.Warn("search_failed",
			slog.String("code", skillerr.CodeOf(err)),
			slog.String("error", err.Error()))
		return errorEnvelope(start, err), err
	}

	total := len(results)
	if req.Offset >= len(results) {
		results = []search.Result{}
	} else {
		results = results[req.Offset:]
	}

	return &Envelope{
		Status:    "ok",
		Results:   results,
		Total:     total,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}

// buildQuery validates bounds and converts the request. The engine caps
// its own inputs too; bounds here fail fast with the bounds code.
func (r *Router) buildQuery(req Request) (search.Query, error) {
	if req.Limit < 0 || req.Limit > MaxLimit {
		return search.Query{}, skillerr.Newf(skillerr.ErrCodeBoundsExceeded,
			"limit %d out of range [0, %d]", req.Limit, MaxLimit)
	}
	if req.Offset < 0 {
		return search.Query{}, skillerr.Newf(skillerr.ErrCodeBoundsExceeded,
			"offset %d is negative", req.Offset)
	}

	layers := make([]store.Layer, len(req.Layers))
	for i, l := range req.Layers {
		layers[i] = store.Layer(l)
	}

	limit := req.Limit
	if limit == 0 {
		limit = search.DefaultLimit
	}

	q := search.Query{
		Text: req.Text,
		Mode: search.Mode(req.Mode),
		Filters: search.Filters{
			Tags:     req.Tags,
			Layers:   layers,
			Metadata: req.Metadata,
		},
		// Fetch through the requested page so the offset slice is full.
		Limit: limit + req.Offset,
	}
	if err := q.Filters.Validate(); err != nil {
		return search.Query{}, skillerr.ValidationError("invalid filters", err)
	}
	return q, nil
}

func errorEnvelope(start time.Time, err error) *Envelope {
	return &Envelope{
		Status:    ErrorStatus(err),
		Results:   []search.Result{},
		ElapsedMS: time.Since(start).Milliseconds(),
	}
}
