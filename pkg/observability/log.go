package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level, and failures at
// warn level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks { return &LogHooks{Logger: l} }

// Install registers h for every hook category.
func (h *LogHooks) Install() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetStoreHooks(h)
}

func (h *LogHooks) done(msg string, err error, kv ...any) {
	if err != nil {
		h.Logger.Warn(msg, append(kv, "err", err)...)
		return
	}
	h.Logger.Debug(msg, kv...)
}

func (h *LogHooks) OnSeparateStart(_ context.Context, docHash string) {
	h.Logger.Debug("separation started", "doc", shortHash(docHash))
}

func (h *LogHooks) OnSeparateComplete(_ context.Context, strategy string, buildings int, d time.Duration, err error) {
	h.done("separation finished", err, "strategy", strategy, "buildings", buildings, "took", d)
}

func (h *LogHooks) OnSpacingStart(_ context.Context, percent float64) {
	h.Logger.Debug("spacing started", "percent", percent)
}

func (h *LogHooks) OnSpacingComplete(_ context.Context, percent float64, shifted int, d time.Duration, err error) {
	h.done("spacing finished", err, "percent", percent, "shifted", shifted, "took", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnStoreOperation(_ context.Context, backend, op string, d time.Duration, err error) {
	h.done("store "+op, err, "backend", backend, "took", d)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ StoreHooks    = (*LogHooks)(nil)
)
