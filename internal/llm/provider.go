package llm

import (
	"context"
	"encoding/json"
	"iter"
)

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate for a complete response or Stream for
// incremental text.
type Provider interface {
	// Generate sends a prompt to the LLM and returns the full response.
	// The request's Schema field, when set, instructs the provider to return
	// JSON conforming to that schema. The response Content will be the
	// validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream sends a prompt and yields text fragments in generation order.
	// The sequence ends after the last fragment, or after yielding a single
	// non-nil error. Schema is ignored for streamed requests.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. Every caller in studycast
	// sends a single user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	// When set, the provider uses its native structured output mechanism.
	// When nil, the response Content is the raw text.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema. Kebab-case, e.g. "skill-tree".
	Name string

	// Description is sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the generated output: validated JSON when a Schema was
	// provided, raw text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Text returns the response content as plain text.
func (r *Response) Text() string {
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, user string, maxTokens int, temperature float64) Request {
	return Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Collect drains a stream into a single string. It returns the text
// gathered so far together with the first error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var out []byte
	for frag, err := range seq {
		if err != nil {
			return string(out), err
		}
		out = append(out, frag...)
	}
	return string(out), nil
}

// streamError returns a sequence that yields a single error.
func streamError(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}
