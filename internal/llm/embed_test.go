package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), []string{"Cells divide by mitosis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := e.Embed(context.Background(), []string{"cells DIVIDE by mitosis!"})
	if len(a[0]) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected identical vectors after normalisation, differ at %d", i)
		}
	}
}

func TestHashEmbedder_SharedVocabularyScoresHigher(t *testing.T) {
	e := NewHashEmbedder(HashEmbedderDim)
	vecs, err := e.Embed(context.Background(), []string{
		"photosynthesis in plant leaves",
		"leaves use photosynthesis",
		"the french revolution began in 1789",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	near := cosine(vecs[0], vecs[1])
	far := cosine(vecs[0], vecs[2])
	if near <= far {
		t.Fatalf("expected related texts to score higher: near=%f far=%f", near, far)
	}
}

func TestHashEmbedder_EmptyInput(t *testing.T) {
	if _, err := NewHashEmbedder(8).Embed(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestOfflineSpeech_Deterministic(t *testing.T) {
	s := NewOfflineSpeech()
	a, err := s.Synthesize(context.Background(), "nova", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := s.Synthesize(context.Background(), "nova", "hello")
	if string(a) != string(b) {
		t.Fatal("expected deterministic output")
	}
	if string(a[:3]) != "ID3" {
		t.Fatalf("expected ID3 header, got %q", a[:3])
	}
}

func TestOpenAISpeech_TruncatesOnRuneBoundary(t *testing.T) {
	var input string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
			Voice string `json:"voice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		input = body.Input
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	t.Cleanup(server.Close)

	s := NewOpenAISpeech(SpeechConfig{APIKey: "test-key", BaseURL: server.URL + "/v1", Model: "tts-1", Voice: "nova"})
	text := strings.Repeat("ä", maxSpeechInput+10)
	audio, err := s.Synthesize(context.Background(), "", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Errorf("audio = %q", audio)
	}
	if !utf8.ValidString(input) {
		t.Fatal("request input is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(input); n != maxSpeechInput {
		t.Errorf("input has %d characters, want %d", n, maxSpeechInput)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("Größe", 3); got != "Grö" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 5); got != "abc" {
		t.Errorf("short input changed: %q", got)
	}
}
