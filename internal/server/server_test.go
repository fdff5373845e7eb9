package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycast/internal/app/apptest"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/remediation"
)

func newTestServer(t *testing.T, responses ...llm.MockResponse) (*apptest.Fixture, http.Handler) {
	t.Helper()
	f := apptest.New(t, responses...)
	return f, New(f.App).Handler()
}

func do(h http.Handler, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestQuestions(t *testing.T) {
	f, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/questions", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	assert.NotEmpty(t, errBody["error"])

	f.SeedAssessment(t, apptest.SampleAssessment())
	rec = do(h, http.MethodGet, "/questions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var quiz struct {
		Questions []struct {
			Skill   string `json:"skill"`
			Answers []struct {
				Text      string `json:"text"`
				IsCorrect bool   `json:"is_correct"`
			} `json:"answers"`
		} `json:"questions"`
	}
	decodeBody(t, rec, &quiz)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "Goroutines", quiz.Questions[0].Skill)
	assert.True(t, quiz.Questions[0].Answers[0].IsCorrect)
}

type evalResponse struct {
	Records []remediation.Record `json:"records"`
	Correct int                  `json:"correct"`
	Total   int                  `json:"total"`
}

func TestEvaluateJSON(t *testing.T) {
	f, h := newTestServer(t)
	f.SeedAssessment(t, apptest.SampleAssessment())

	rec := do(h, http.MethodPost, "/evaluate", "application/json",
		strings.NewReader(`{"Goroutines": 0, "Channels": "1", "Nope": 0}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res evalResponse
	decodeBody(t, rec, &res)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Passes values", res.Records[0].CorrectAnswer)
	assert.Equal(t, "Locks memory", res.Records[0].GivenAnswer)
}

func TestEvaluateFormSkipsOutOfRange(t *testing.T) {
	f, h := newTestServer(t)
	f.SeedAssessment(t, apptest.SampleAssessment())

	form := url.Values{"Channels": {"5"}, "Goroutines": {"abc"}}
	rec := do(h, http.MethodPost, "/evaluate", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{"records": [], "correct": 0, "total": 2}`, rec.Body.String())
}

func TestEvaluateErrors(t *testing.T) {
	f, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/evaluate", "application/json", strings.NewReader(`{"Channels": 1}`))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no assessment yet")

	f.SeedAssessment(t, apptest.SampleAssessment())
	rec = do(h, http.MethodPost, "/evaluate", "application/json", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/evaluate", "application/json", strings.NewReader(`[1, 2`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery(t *testing.T) {
	_, h := newTestServer(t, llm.MockResponse{Content: json.RawMessage("Channels pass values.")})

	rec := do(h, http.MethodPost, "/query", "application/json", strings.NewReader(`{"query": "What is a channel?"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ans struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
		Context string   `json:"context"`
	}
	decodeBody(t, rec, &ans)
	assert.Equal(t, "Channels pass values.", ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, "No context found.", ans.Context)

	rec = do(h, http.MethodPost, "/query", "application/json", strings.NewReader(`{"query": " "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryUpstreamError(t *testing.T) {
	_, h := newTestServer(t, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})

	rec := do(h, http.MethodPost, "/query", "application/json", strings.NewReader(`{"query": "Why?"}`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPodcasts(t *testing.T) {
	f, h := newTestServer(t, llm.MockResponse{Content: json.RawMessage("A channel passes values between goroutines.")})

	rec := do(h, http.MethodPost, "/podcasts", "application/json", strings.NewReader(`{"records": []}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"records": [{"skill": "Channels", "question_text": "What does a channel do?",
		"given_answer": "Locks memory", "correct_answer": "Passes values",
		"remediation_passage": "Channels pass values.", "source": "go.pdf"}]}`
	rec = do(h, http.MethodPost, "/podcasts", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		ok, err := f.App.Artifacts.Exists("Channels")
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(h, http.MethodGet, "/audio/Channels.mp3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio:nova:A channel passes values between goroutines.", rec.Body.String())
}

func TestFeedAndPage(t *testing.T) {
	f, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/podcast_page", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No podcasts available yet.")

	require.NoError(t, f.App.Artifacts.Write("topic a", []byte("aaa")))
	require.NoError(t, f.App.Artifacts.Write("topic b", []byte("bbbb")))

	rec = do(h, http.MethodGet, "/rss_feed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	out := rec.Body.String()
	assert.Equal(t, 2, strings.Count(out, "<item>"))
	assert.Contains(t, out, `url="http://podcasts.test/audio/topic_a.mp3"`)
	assert.Contains(t, out, `url="http://podcasts.test/audio/topic_b.mp3"`)
	assert.Contains(t, out, "<title>topic a</title>")

	rec = do(h, http.MethodGet, "/podcast_page", "", nil)
	assert.Contains(t, rec.Body.String(), `src="/audio/topic_b.mp3"`)
}

func TestAudioRejectsNonArtifacts(t *testing.T) {
	f, h := newTestServer(t)
	require.NoError(t, f.App.Artifacts.Write("topic", []byte("x")))

	for _, target := range []string{"/audio/", "/audio/missing.mp3", "/audio/notes.txt", "/audio/../test.db"} {
		rec := do(h, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func multipartUpload(t *testing.T, field, name, content string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func questionJSON(prompt string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"question": %q, "answers": [
		{"text": "A", "is_correct": true},
		{"text": "B", "is_correct": false}
	]}`, prompt))
}

func TestUploadDocument(t *testing.T) {
	tree := json.RawMessage(`{"root": {"name": "Go", "description": "Go", "children": [
		{"name": "Concurrency", "description": "Parallel work", "children": [
			{"name": "Goroutines", "description": "Lightweight threads"},
			{"name": "Channels", "description": "Typed pipes"}
		]}
	]}}`)
	f, h := newTestServer(t,
		llm.MockResponse{Content: tree},
		llm.MockResponse{Content: questionJSON("Q1?")},
		llm.MockResponse{Content: questionJSON("Q2?")},
	)

	ct, body := multipartUpload(t, "file", "notes.md", "# Go\n\nGoroutines and channels make concurrency simple.")
	rec := do(h, http.MethodPost, "/upload_document", ct, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Message       string `json:"message"`
		SkillCount    int    `json:"skill_count"`
		QuestionCount int    `json:"question_count"`
	}
	decodeBody(t, rec, &res)
	assert.Equal(t, 2, res.SkillCount)
	assert.Equal(t, 2, res.QuestionCount)

	quiz, err := f.App.Assessment()
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
}

func TestUploadDocumentErrors(t *testing.T) {
	f, h := newTestServer(t)

	ct, body := multipartUpload(t, "file", "deck.pptx", "slides")
	rec := do(h, http.MethodPost, "/upload_document", ct, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	ct, body = multipartUpload(t, "other", "notes.txt", "text")
	rec = do(h, http.MethodPost, "/upload_document", ct, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/upload_document", "text/plain", strings.NewReader("raw"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, f.Provider.CallCount())
}

func TestFeedbackStream(t *testing.T) {
	f, h := newTestServer(t, llm.MockResponse{Chunks: []string{"Good ", "effort. ", "Review channels."}})
	f.SeedAssessment(t, apptest.SampleAssessment())

	rec := do(h, http.MethodPost, "/feedback_stream", "application/json",
		strings.NewReader(`{"Goroutines": 0, "Channels": 2}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Good effort. Review channels.", rec.Body.String())
	assert.True(t, rec.Flushed)

	prompt := f.Provider.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, "Score: 1 of 2 correct.")
	assert.Contains(t, prompt, "Chosen: Allocates stacks")
}

func TestFeedbackStreamScoreMatchesEvaluation(t *testing.T) {
	f, h := newTestServer(t, llm.MockResponse{Chunks: []string{"Keep going."}})
	f.SeedAssessment(t, apptest.SampleAssessment())

	body := `{"Goroutines": "first", "Channels": 2}`
	rec := do(h, http.MethodPost, "/evaluate", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res evalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Correct)
	assert.Equal(t, 2, res.Total)

	rec = do(h, http.MethodPost, "/feedback_stream", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prompt := f.Provider.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, fmt.Sprintf("Score: %d of %d correct.", res.Correct, res.Total))
}

func TestFeedbackStreamUpstreamError(t *testing.T) {
	f, h := newTestServer(t, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	f.SeedAssessment(t, apptest.SampleAssessment())

	rec := do(h, http.MethodPost, "/feedback_stream", "application/json", strings.NewReader(`{"Channels": 1}`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	do(h, http.MethodGet, "/healthz", "", nil)

	rec := do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `studycast_http_requests_total{method="GET",route="/healthz",status="200"}`)
}
