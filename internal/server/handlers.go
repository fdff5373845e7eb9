package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/studycast/internal/corpus"
	"github.com/abhisek/studycast/internal/docpipe"
	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/evaluation"
	"github.com/abhisek/studycast/internal/llm"
	"github.com/abhisek/studycast/internal/remediation"
	"github.com/abhisek/studycast/internal/tutor"
)

// maxFormMemory bounds the in-memory part of multipart parsing; larger
// uploads spill to temp files.
const maxFormMemory = 32 << 20

var (
	errNoAnswers = errors.New("no answers submitted")
	errNoRecords = errors.New("no records submitted")
	errQueueFull = errors.New("podcast queue is full, try again later")
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	ans, err := s.app.Tutor.Answer(r.Context(), req.Query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.app.Assessment()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	answers, err := parseAnswers(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.app.Evaluate(r.Context(), answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePodcasts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []remediation.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, errNoRecords)
		return
	}
	if !s.app.Queue.Submit(req.Records) {
		writeError(w, http.StatusServiceUnavailable, errQueueFull)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "podcasts are being generated",
		"queued":  len(req.Records),
	})
}

func (s *Server) handleFeedbackStream(w http.ResponseWriter, r *http.Request) {
	answers, err := parseAnswers(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.app.Evaluate(r.Context(), answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	for frag, err := range s.app.Tutor.Feedback(r.Context(), res.Records, res.Correct, res.Total) {
		if err != nil {
			if !started {
				s.fail(w, r, err)
				return
			}
			s.logger.Warn("feedback stream aborted", "err", err)
			return
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(frag)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.app.Config.MaxUploadBytes())
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadUpload, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer file.Close()

	res, err := s.app.Ingest.Ingest(r.Context(), hdr.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errBadUpload = errors.New("invalid upload")

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	out, err := s.app.Feed.RSS()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.app.Feed.Page(&buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleAudio serves artifacts read-only. Directory listings and anything
// but audio files are not found.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		// chi routes on the escaped path when one is present.
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	if !fs.ValidPath(name) || strings.Contains(name, "/") || !strings.HasSuffix(name, remediation.AudioExt) {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, os.DirFS(s.app.Artifacts.Dir()), name)
}

// parseAnswers reads a skill to answer-index mapping from a JSON object or
// a form. JSON values may be numbers or strings.
func parseAnswers(r *http.Request) (evaluation.AnswerSet, error) {
	answers := evaluation.AnswerSet{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		for skill, v := range raw {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				s = string(bytes.TrimSpace(v))
			}
			answers[skill] = s
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		for skill, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				answers[skill] = vs[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		for skill, vs := range r.PostForm {
			if len(vs) > 0 {
				answers[skill] = vs[0]
			}
		}
	}

	if len(answers) == 0 {
		return nil, errNoAnswers
	}
	return answers, nil
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"err", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docpipe.ErrUnsupportedFormat),
		errors.Is(err, tutor.ErrEmptyQuery),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	case errors.Is(err, corpus.ErrEmptyCorpus):
		return http.StatusInternalServerError
	case llm.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
