package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a recorded LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one request purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event by ID, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates usage per purpose, busiest first.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates usage per model, busiest first.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Chunk is one embedded passage of an uploaded document.
type Chunk struct {
	ID        int64
	Source    string
	Position  int
	Text      string
	Embedding []float32
	Model     string
}

// Upload describes an ingested document.
type Upload struct {
	Hash       string
	Source     string
	ChunkCount int
	CreatedAt  time.Time
}

// ChunkRepo persists the embedded corpus.
type ChunkRepo interface {
	// HasUpload reports whether a document with this content hash has
	// already been ingested.
	HasUpload(ctx context.Context, hash string) (bool, error)

	// InsertUpload stores the document and its chunks atomically.
	InsertUpload(ctx context.Context, up Upload, chunks []Chunk) error

	// Chunks returns every chunk embedded with model, in insertion order.
	Chunks(ctx context.Context, model string) ([]Chunk, error)

	// Uploads lists ingested documents, newest first.
	Uploads(ctx context.Context) ([]Upload, error)

	// Count returns the number of chunks embedded with model.
	Count(ctx context.Context, model string) (int, error)
}
