package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/studycast/internal/metrics"
	"github.com/abhisek/studycast/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an
// event and in the request metrics.
type LoggingProvider struct {
	inner     Provider
	provider  string
	eventRepo store.EventRepo
}

// WithLogging wraps a Provider with event logging. A nil repo records
// metrics only.
func WithLogging(p Provider, providerName string, repo store.EventRepo) Provider {
	return &LoggingProvider{inner: p, provider: providerName, eventRepo: repo}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := l.eventData(ctx, req, time.Since(start), err)
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}
	l.record(ctx, data)

	return resp, err
}

func (l *LoggingProvider) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		var body strings.Builder
		var streamErr error

		for frag, err := range l.inner.Stream(ctx, req) {
			if err != nil {
				streamErr = err
				yield("", err)
				break
			}
			body.WriteString(frag)
			if !yield(frag, nil) {
				break
			}
		}

		data := l.eventData(ctx, req, time.Since(start), streamErr)
		data.ResponseBody = body.String()
		l.record(ctx, data)
	}
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) eventData(ctx context.Context, req Request, latency time.Duration, err error) store.LLMRequestEventData {
	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}
	return data
}

func (l *LoggingProvider) record(ctx context.Context, data store.LLMRequestEventData) {
	m := metrics.Get()
	m.LLMRequests.WithLabelValues(l.provider, data.Purpose, strconv.FormatBool(data.Success)).Inc()
	m.LLMLatency.WithLabelValues(l.provider, data.Purpose).Observe(float64(data.LatencyMs) / 1000)
	m.LLMTokens.WithLabelValues(l.provider, "input").Add(float64(data.InputTokens))
	m.LLMTokens.WithLabelValues(l.provider, "output").Add(float64(data.OutputTokens))

	if l.eventRepo == nil {
		return
	}
	// Recording must never fail the request. The context may already be
	// cancelled for abandoned streams.
	if err := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); err != nil {
		slog.Warn("failed to record LLM request event", "purpose", data.Purpose, "err", err)
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if schemaDef, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(schemaDef)
			b.WriteString("\n")
		}
	}

	return b.String()
}
