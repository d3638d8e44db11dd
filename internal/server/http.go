package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/karupanerura/golox/internal/interpreter"
	"github.com/karupanerura/golox/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	StateActive    = "ACTIVE"
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
)

// MaxRequestBodySize caps the body of an evaluation request.
const MaxRequestBodySize = 1 << 20

var (
	collectionPathRegexp = regexp.MustCompile(`^/v1/evaluations/?$`)
	resourcePathRegexp   = regexp.MustCompile(`^/v1/evaluations/([^/]+)$`)
)

type evaluation struct {
	mu sync.RWMutex

	Name      string       `json:"name"`
	StartTime time.Time    `json:"startTime"`
	EndTime   *time.Time   `json:"endTime,omitempty"`
	State     string       `json:"state"`
	Source    string       `json:"source"`
	AST       string       `json:"ast,omitempty"`
	Result    *types.Value `json:"result,omitempty"`
	Error     any          `json:"error,omitempty"`
}

type evaluationRequest struct {
	Source *string `json:"source"`
}

type httpHandler struct {
	interpreter *interpreter.Interpreter
	logger      *zap.Logger
	idBase      uint64
	evaluations sync.Map
	wg          sync.WaitGroup
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if collectionPathRegexp.MatchString(r.URL.Path) {
		switch r.Method {
		case http.MethodGet:
			h.listEvaluations(w, r)
			return

		case http.MethodPost:
			h.createEvaluation(w, r)
			return

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
	}

	if m := resourcePathRegexp.FindStringSubmatch(r.URL.Path); m != nil {
		switch r.Method {
		case http.MethodGet:
			h.getEvaluation(w, r, m[1])
			return

		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
	}

	http.Error(w, "Not Found", http.StatusNotFound)
}

func (h *httpHandler) createEvaluation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Info("failed to read request body", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var req evaluationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Info("failed to decode request body", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.Source == nil {
		http.Error(w, "Bad Request: source is required", http.StatusBadRequest)
		return
	}

	id := fmt.Sprintf("00000000-0000-0000-0000-%012x", atomic.AddUint64(&h.idBase, 1))
	ev := &evaluation{
		Name:      "evaluations/" + id,
		StartTime: time.Now().UTC(),
		State:     StateActive,
		Source:    *req.Source,
	}
	h.evaluations.Store(id, ev)

	// go go
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.evaluate(context.Background(), ev)
	}()

	ev.mu.RLock()
	defer ev.mu.RUnlock()
	if err := resJSON(w, http.StatusOK, ev); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *httpHandler) evaluate(ctx context.Context, ev *evaluation) {
	result, err := h.interpreter.Run(ctx, ev.Source)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	endTime := time.Now().UTC()
	ev.EndTime = &endTime
	if result != nil {
		ev.AST = result.AST()
	}
	if err == nil {
		ev.State = StateSucceeded
		ev.Result = &result.Value
		return
	}

	ev.State = StateFailed
	var exception types.Exception
	if errors.As(err, &exception) {
		if o, ok := exception.Exception().(map[string]any); ok {
			ev.Error = lo.Assign(o, map[string]any{"error": err.Error()})
		} else {
			ev.Error = exception.Exception()
		}
	} else {
		ev.Error = err.Error()
	}
	h.logger.Debug("evaluation failed", zap.String("name", ev.Name), zap.Error(err))
}

func (h *httpHandler) listEvaluations(w http.ResponseWriter, r *http.Request) {
	results := []*evaluation{}
	h.evaluations.Range(func(key, value any) bool {
		results = append(results, value.(*evaluation))
		return true
	})
	for _, ev := range results {
		ev.mu.RLock()
	}
	defer func() {
		for _, ev := range results {
			ev.mu.RUnlock()
		}
	}()
	sort.Slice(results, func(i, j int) bool {
		if results[i].StartTime.Equal(results[j].StartTime) {
			return results[i].Name < results[j].Name
		}
		return results[i].StartTime.Before(results[j].StartTime)
	})

	if err := resJSON(w, http.StatusOK, map[string][]*evaluation{"evaluations": results}); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *httpHandler) getEvaluation(w http.ResponseWriter, r *http.Request, id string) {
	ret, ok := h.evaluations.Load(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ev := ret.(*evaluation)

	ev.mu.RLock()
	defer ev.mu.RUnlock()
	if err := resJSON(w, http.StatusOK, ev); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

// Handler serves the evaluation API.
type Handler interface {
	http.Handler

	// Wait blocks until every accepted evaluation has finished.
	Wait()
}

func (h *httpHandler) Wait() {
	h.wg.Wait()
}

func NewHTTPHandler(in *interpreter.Interpreter, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpHandler{
		interpreter: in,
		logger:      logger,
	}
}

func resJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)+1))
	w.WriteHeader(status)

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
