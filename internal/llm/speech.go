package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// Speech converts text to audio bytes.
type Speech interface {
	// Synthesize renders text with the given voice. An empty voice selects
	// the configured default. The result is mp3 encoded.
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

// maxSpeechInput is the OpenAI limit on characters per speech request.
const maxSpeechInput = 4096

// OpenAISpeech implements Speech with the OpenAI audio API.
type OpenAISpeech struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAISpeech creates a speech synthesizer for the OpenAI audio API.
func NewOpenAISpeech(cfg SpeechConfig) *OpenAISpeech {
	return &OpenAISpeech{
		client: newOpenAIClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		voice:  cfg.Voice,
	}
}

func (s *OpenAISpeech) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	text = truncateRunes(text, maxSpeechInput)
	if voice == "" {
		voice = s.voice
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("read speech body: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("empty audio response")}
	}
	return audio, nil
}

// truncateRunes cuts text to at most n characters without splitting a
// multibyte rune.
func truncateRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// OfflineSpeech produces a deterministic placeholder mp3 frame stream. It
// keeps the remediation pipeline usable without a speech API key.
type OfflineSpeech struct{}

// NewOfflineSpeech creates the offline synthesizer.
func NewOfflineSpeech() *OfflineSpeech { return &OfflineSpeech{} }

func (OfflineSpeech) Synthesize(_ context.Context, voice, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{4, 0, 0, 0, 0, 0, 0})
	b.Write(sum[:])
	return b.Bytes(), nil
}

// MockSpeech is a Speech test double that records its inputs.
type MockSpeech struct {
	mu    sync.Mutex
	Calls []string
	// Err, when set, is returned for every call.
	Err error
}

func (m *MockSpeech) Synthesize(_ context.Context, voice, text string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte("audio:" + voice + ":" + text), nil
}

// CallCount returns the number of Synthesize calls made.
func (m *MockSpeech) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
