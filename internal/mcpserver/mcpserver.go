// Package mcpserver exposes the studycast pipeline as MCP tools, so an
// assistant can quiz a learner and queue podcasts for the misses.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/abhisek/studycast/internal/app"
	"github.com/abhisek/studycast/internal/evaluation"
	"github.com/abhisek/studycast/internal/remediation"
)

// New creates an MCP server with every studycast tool registered.
func New(a *app.App, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "studycast", Version: version}, nil)
	t := &tools{app: a}

	addTool(srv, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a free-text question from the indexed study material. Returns the answer, the cited sources and the retrieved context.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "The question to answer"},
		}, []string{"query"}),
	}, t.ask)

	addTool(srv, &mcp.Tool{
		Name:        "get_assessment",
		Description: "Return the current multiple-choice assessment, one question per skill.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, t.getAssessment)

	addTool(srv, &mcp.Tool{
		Name:        "evaluate_answers",
		Description: "Score answers to the current assessment. Returns a remediation record for every missed question.",
		InputSchema: inputSchema(map[string]any{
			"answers": map[string]any{
				"type":                 "object",
				"description":          "Map of skill name to the zero-based index of the chosen answer",
				"additionalProperties": map[string]any{"type": "integer"},
			},
		}, []string{"answers"}),
	}, t.evaluate)

	addTool(srv, &mcp.Tool{
		Name:        "request_podcasts",
		Description: "Queue audio explanations for remediation records. Skills that already have a podcast are skipped.",
		InputSchema: inputSchema(map[string]any{
			"records": map[string]any{
				"type":        "array",
				"description": "Remediation records as returned by evaluate_answers",
				"items":       map[string]any{"type": "object"},
			},
		}, []string{"records"}),
	}, t.requestPodcasts)

	addTool(srv, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Index a local document (txt, md, html, pdf, docx) and rebuild the skill tree and assessment.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the document to ingest"},
		}, []string{"path"}),
	}, t.ingest)

	return srv
}

// Serve runs the server over stdin/stdout until ctx is done or the client
// disconnects.
func Serve(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// addTool registers h and reports its errors as tool errors with a JSON
// text result on success.
func addTool(srv *mcp.Server, tool *mcp.Tool, h handler) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := h(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type tools struct {
	app *app.App
}

func (t *tools) ask(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return t.app.Tutor.Answer(ctx, args.Query)
}

func (t *tools) getAssessment(_ context.Context, _ json.RawMessage) (any, error) {
	return t.app.Assessment()
}

func (t *tools) evaluate(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Answers map[string]json.RawMessage `json:"answers"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Answers) == 0 {
		return nil, errors.New("no answers submitted")
	}

	answers := make(evaluation.AnswerSet, len(args.Answers))
	for skill, v := range args.Answers {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		answers[skill] = s
	}
	return t.app.Evaluate(ctx, answers)
}

func (t *tools) requestPodcasts(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Records []remediation.Record `json:"records"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Records) == 0 {
		return nil, errors.New("no records submitted")
	}
	if !t.app.Queue.Submit(args.Records) {
		return nil, errors.New("podcast queue is full, try again later")
	}
	return map[string]any{"message": "podcasts are being generated", "queued": len(args.Records)}, nil
}

func (t *tools) ingest(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Path == "" {
		return nil, errors.New("path is required")
	}
	f, err := os.Open(args.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return t.app.Ingest.Ingest(ctx, filepath.Base(args.Path), f)
}
