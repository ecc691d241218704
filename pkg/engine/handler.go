package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/oasstub/pkg/delay"
	"github.com/getmockd/oasstub/pkg/logging"
	"github.com/getmockd/oasstub/pkg/model"
)

// DefaultMaxBodyBytes limits request bodies when HandlerConfig leaves it
// unset.
const DefaultMaxBodyBytes = 10 << 20

// HandlerConfig configures the stub HTTP handler.
type HandlerConfig struct {
	// Prefix is stripped from request paths. Requests outside it get a 404.
	Prefix string
	// MaxBodyBytes limits request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Timeout bounds the execution of a call. Zero means no limit.
	Timeout time.Duration
}

// Handler serves stub calls over HTTP.
type Handler struct {
	orch      *Orchestrator
	scheduler *delay.Scheduler
	cfg       HandlerConfig
	log       *slog.Logger
}

// NewHandler creates a Handler. scheduler paces the bodies of responses
// with a latency.
func NewHandler(orch *Orchestrator, scheduler *delay.Scheduler, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "/" {
		cfg.Prefix = ""
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{orch: orch, scheduler: scheduler, cfg: cfg, log: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := h.stripPrefix(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var body []byte
	if !bodyless(r.Method) && r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	resp := h.orch.Execute(ctx, &Request{
		Method:      r.Method,
		Path:        path,
		Query:       r.URL.Query(),
		Headers:     r.Header.Clone(),
		Cookies:     r.Cookies(),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	h.write(ctx, w, r, resp)
}

func (h *Handler) stripPrefix(path string) (string, bool) {
	if h.cfg.Prefix == "" {
		return path, true
	}
	rest, ok := strings.CutPrefix(path, h.cfg.Prefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return "", false
	}
	return rest, true
}

func (h *Handler) write(ctx context.Context, w http.ResponseWriter, r *http.Request, resp *Response) {
	if resp.Failure != nil {
		switch resp.Failure.Type {
		case model.FailureConnection:
			h.abort(w, nil)
			return
		case model.FailureProtocol:
			h.abort(w, func(bw *bufio.ReadWriter) {
				_, _ = fmt.Fprintf(bw, "HTTP/1.1 %d Malformed\r\n\r\n", resp.Status)
			})
			return
		}
	}

	header := w.Header()
	for k, v := range resp.Headers {
		header[k] = slices.Clone(v)
	}
	if resp.ContentType != "" {
		header.Set("Content-Type", resp.ContentType)
	}
	if len(resp.Body) > 0 {
		header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	status := resp.Status
	if status < 100 || status > 999 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead || len(resp.Body) == 0 {
		return
	}

	if resp.Latency <= 0 {
		_, _ = w.Write(resp.Body)
		return
	}
	rc := http.NewResponseController(w)
	for b, err := range delay.Paced(ctx, h.scheduler, resp.Latency, slices.Values(resp.Body)) {
		if err != nil {
			h.log.Debug("response streaming stopped", "api", resp.API, "path", resp.Path, "error", err)
			return
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return
		}
		_ = rc.Flush()
	}
}

// abort takes over the connection, writes whatever raw bytes write
// produces and closes it.
func (h *Handler) abort(w http.ResponseWriter, write func(*bufio.ReadWriter)) {
	conn, bw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		h.log.Debug("connection cannot be hijacked", "error", err)
		panic(http.ErrAbortHandler)
	}
	defer conn.Close()
	if write != nil {
		write(bw)
		_ = bw.Flush()
	}
}
