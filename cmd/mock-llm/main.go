package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
)

// Stand-in for the Gemini generateContent endpoint, for local runs and load
// tests. Outcome knobs let failure handling be exercised without a real key.
type config struct {
	Port        string  `envconfig:"PORT" default:"8090"`
	SuccessRate float64 `envconfig:"MOCK_SUCCESS_RATE" default:"1.0"`
	DelayMs     int     `envconfig:"MOCK_DELAY_MS" default:"0"`
	ErrorStatus int     `envconfig:"MOCK_ERROR_STATUS" default:"503"`
	// empty | malformed: shape of the reply on "successful" calls when set,
	// to exercise the fallback path in the generator.
	ReplyMode string `envconfig:"MOCK_REPLY_MODE" default:""`

	Delay time.Duration
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates,omitempty"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type part struct {
	Text string `json:"text"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type server struct {
	cfg   config
	rng   *rand.Rand
	rngMu sync.Mutex
}

func main() {
	cfg := loadConfig()
	loggingInit()

	s := &server{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1beta/models/{model}", s.handleGenerate).Methods(http.MethodPost)

	slog.Info("mock llm listening", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, loggingMiddleware(router)); err != nil {
		slog.Error("mock llm server failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig() config {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("mock llm config load failed", "err", err)
		os.Exit(1)
	}
	cfg.Delay = time.Duration(cfg.DelayMs) * time.Millisecond
	cfg.ReplyMode = strings.ToLower(strings.TrimSpace(cfg.ReplyMode))
	return cfg
}

func loggingInit() {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("mock llm request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// The real endpoint path is models/{model}:generateContent; mux sees the
	// colon suffix as part of the path variable.
	model := mux.Vars(r)["model"]
	if !strings.HasSuffix(model, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("key") == "" {
		writeJSON(w, http.StatusUnauthorized, generateResponse{
			Error: &apiError{Code: http.StatusUnauthorized, Message: "API key missing"},
		})
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResponse{
			Error: &apiError{Code: http.StatusBadRequest, Message: "invalid request body"},
		})
		return
	}

	if s.cfg.Delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.cfg.Delay):
		}
	}

	s.rngMu.Lock()
	ok := s.rng.Float64() <= s.cfg.SuccessRate
	s.rngMu.Unlock()
	if !ok {
		writeJSON(w, s.cfg.ErrorStatus, generateResponse{
			Error: &apiError{Code: s.cfg.ErrorStatus, Message: "model overloaded"},
		})
		return
	}

	switch s.cfg.ReplyMode {
	case "empty":
		writeJSON(w, http.StatusOK, generateResponse{})
		return
	case "malformed":
		writeReply(w, "not json at all")
		return
	}

	prompt := ""
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		prompt = req.Contents[0].Parts[0].Text
	}
	writeReply(w, draftFor(prompt))
}

// draftFor echoes a deterministic subject/body pair so assertions on the
// consuming side stay stable across runs.
func draftFor(prompt string) string {
	name := "there"
	first, _, _ := strings.Cut(prompt, "\n")
	if _, after, found := strings.Cut(first, " TO "); found {
		if v := strings.TrimSuffix(strings.TrimSpace(after), "."); v != "" {
			name = v
		}
	}
	return fmt.Sprintf(`{"subject": "A quick idea for %s", "body": "Hi %s,\n\nI had a look at what you do and I think we could work well together.\n\nBest regards"}`, name, name)
}

func writeReply(w http.ResponseWriter, text string) {
	var resp generateResponse
	var c candidate
	c.Content.Parts = []part{{Text: text}}
	resp.Candidates = []candidate{c}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
