package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/joripage/ergodic/pkg/clock"
	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/logging"
	"github.com/joripage/ergodic/pkg/orderbook"
	"github.com/joripage/ergodic/pkg/tradefeed"
)

const defaultRecentLimit = 100

// Engine is the producer side of the match engine.
type Engine interface {
	Submit(ctx context.Context, order orderbook.Order) error
	Quote(ctx context.Context) (engine.Quote, error)
	Depth(ctx context.Context, levels int) (engine.Depth, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	engine      Engine
	recorder    *tradefeed.Recorder
	clock       clock.Clock
	logger      *logging.Logger
	lenientSide bool
}

type HandlerOption func(*Handler)

func WithClock(c clock.Clock) HandlerOption {
	return func(h *Handler) {
		h.clock = c
	}
}

func WithLenientSide(lenient bool) HandlerOption {
	return func(h *Handler) {
		h.lenientSide = lenient
	}
}

// WithRecorder enables GET /trades.
func WithRecorder(r *tradefeed.Recorder) HandlerOption {
	return func(h *Handler) {
		h.recorder = r
	}
}

func NewHandler(e Engine, logger *logging.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine: e,
		clock:  clock.Real{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type newOrderRequest struct {
	ID    uint64 `json:"id"`
	Side  string `json:"side"`
	Price int64  `json:"price"`
	Qty   uint64 `json:"qty"`
}

// PlaceOrder enqueues a new order. Acceptance means queued, not matched.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req newOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side, defaulted, err := parseSide(req.Side, h.lenientSide)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if defaulted {
		h.logger.Warn(ctx, "unrecognised side token treated as ask",
			zap.String("side", req.Side),
			zap.Uint64("id", req.ID),
		)
	}

	order := orderbook.Order{
		ID:        req.ID,
		Side:      side,
		Price:     req.Price,
		Qty:       req.Qty,
		Timestamp: clock.MustNowNanos(h.clock),
	}
	if err := h.engine.Submit(ctx, order); err != nil {
		h.writeEngineError(ctx, w, "submit order", err)
		return
	}

	h.logger.Debug(ctx, "order accepted",
		zap.Uint64("id", order.ID),
		zap.Stringer("side", order.Side),
		zap.Int64("price", order.Price),
		zap.Uint64("qty", order.Qty),
	)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("accepted"))
}

// GetQuote answers {"bid":b,"ask":a}, or NA when either side is empty.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.engine.Quote(r.Context())
	if err != nil {
		h.writeEngineError(r.Context(), w, "quote", err)
		return
	}
	if !q.OK {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("NA"))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GetDepth answers aggregated levels per side, best first.
func (h *Handler) GetDepth(w http.ResponseWriter, r *http.Request) {
	levels, err := queryInt(r, "levels", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadLevels.Error())
		return
	}

	d, err := h.engine.Depth(r.Context(), levels)
	if err != nil {
		h.writeEngineError(r.Context(), w, "depth", err)
		return
	}
	if d.Bids == nil {
		d.Bids = []orderbook.Level{}
	}
	if d.Asks == nil {
		d.Asks = []orderbook.Level{}
	}
	writeJSON(w, http.StatusOK, d)
}

// GetTrades lists recently emitted trades, oldest first.
func (h *Handler) GetTrades(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeError(w, http.StatusNotFound, "trade recorder disabled")
		return
	}
	limit, err := queryInt(r, "limit", defaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadLimit.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.recorder.Recent(limit))
}

func (h *Handler) writeEngineError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads the response
		return
	}
	h.logger.Warn(ctx, op+" failed", zap.Error(err), zap.Int("status", status))
	writeError(w, status, err.Error())
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errBadLevels
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
