package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/cours-de-latin/denpa"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// ---- JSON request/response types ------------------------------------------

type generateResponse struct {
	Words []string `json:"words"`
}

type normalizeRequest struct {
	Text string `json:"text"`
}

type normalizeResponse struct {
	Text    string   `json:"text"`
	Letters []string `json:"letters"`
}

type evolveRequest struct {
	Words []string `json:"words"`
}

type evolutionJSON struct {
	Word    string `json:"word"`
	Evolved string `json:"evolved"`
}

type evolveResponse struct {
	Results []evolutionJSON `json:"results"`
}

type textResponse struct {
	Text string `json:"text"`
}

type languageResponse struct {
	Letters      []string `json:"letters"`
	Rules        []string `json:"rules"`
	StartRule    string   `json:"start_rule"`
	SoundChanges []string `json:"sound_changes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---- server ---------------------------------------------------------------

// server serialises every request through mu: a Language and its random
// source are single-threaded.
type server struct {
	mu       sync.Mutex
	lang     *denpa.Language
	maxCount int
	logger   *slog.Logger

	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	generated prometheus.Counter
}

func newServer(lang *denpa.Language, maxCount int, logger *slog.Logger) *server {
	s := &server{
		lang:     lang,
		maxCount: maxCount,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "denpa_http_requests_total",
			Help: "HTTP requests by endpoint and status code.",
		}, []string{"path", "code"}),
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "denpa_words_generated_total",
			Help: "Words generated across all requests.",
		}),
	}
	s.registry.MustRegister(s.requests, s.generated)
	return s
}

// handler returns the complete HTTP handler, CORS included.
func (s *server) handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/generate", s.instrument("/api/generate", s.handleGenerate))
	mux.Handle("/api/normalize", s.instrument("/api/normalize", s.handleNormalize))
	mux.Handle("/api/evolve", s.instrument("/api/evolve", s.handleEvolve))
	mux.Handle("/api/text", s.instrument("/api/text", s.handleText))
	mux.Handle("/api/language", s.instrument("/api/language", s.handleLanguage))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler(mux)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		s.requests.WithLabelValues(path, strconv.Itoa(rec.code)).Inc()
		s.logger.Debug("request served",
			"request_id", requestID,
			"method", r.Method,
			"path", path,
			"code", rec.code)
	})
}

// ---- helpers --------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// intParam reads a positive integer query parameter, def when absent.
func intParam(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func wordStrings(words []denpa.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.String()
	}
	return out
}

// ---- handlers -------------------------------------------------------------

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	count, ok := intParam(r, "count", 1)
	if !ok || count > s.maxCount {
		writeError(w, http.StatusBadRequest, "'count' must be an integer between 0 and "+strconv.Itoa(s.maxCount))
		return
	}
	sorted, _ := strconv.ParseBool(r.URL.Query().Get("sorted"))

	s.mu.Lock()
	words, err := s.lang.Generate(count, sorted)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, denpa.Diagnostic(err))
		return
	}
	s.generated.Add(float64(len(words)))
	writeJSON(w, http.StatusOK, generateResponse{Words: wordStrings(words)})
}

func (s *server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body normalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'text' field")
		return
	}
	s.mu.Lock()
	letters := s.lang.Normalize(body.Text)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, normalizeResponse{Text: body.Text, Letters: letters})
}

func (s *server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body evolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Words) == 0 {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'words' list")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]evolutionJSON, 0, len(body.Words))
	for _, word := range body.Words {
		evolved, err := s.lang.Evolve(s.lang.Normalize(word))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, denpa.Diagnostic(err))
			return
		}
		results = append(results, evolutionJSON{Word: word, Evolved: evolved.String()})
	}
	writeJSON(w, http.StatusOK, evolveResponse{Results: results})
}

func (s *server) handleText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	sentences, ok := intParam(r, "sentences", 11)
	if !ok || sentences > s.maxCount {
		writeError(w, http.StatusBadRequest, "'sentences' must be an integer between 0 and "+strconv.Itoa(s.maxCount))
		return
	}
	width, ok := intParam(r, "width", denpa.DefaultWidth)
	if !ok {
		writeError(w, http.StatusBadRequest, "'width' must be a positive integer")
		return
	}

	s.mu.Lock()
	text, err := s.lang.Textify(sentences, width)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, denpa.Diagnostic(err))
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changes := s.lang.SoundChanges()
	descs := make([]string, len(changes))
	for i, sc := range changes {
		descs[i] = sc.String()
	}
	writeJSON(w, http.StatusOK, languageResponse{
		Letters:      s.lang.Letters(),
		Rules:        s.lang.RuleNames(),
		StartRule:    s.lang.StartRule(),
		SoundChanges: descs,
	})
}
