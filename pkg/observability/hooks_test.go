package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnSeparateStart(ctx, "abc")
	p.OnSeparateComplete(ctx, "tagged", 3, time.Second, nil)
	p.OnSpacingStart(ctx, 50)
	p.OnSpacingComplete(ctx, 50, 4, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "separation")
	c.OnCacheMiss(ctx, "spacing")
	c.OnCacheSet(ctx, "spacing", 1024)

	NoopStoreHooks{}.OnStoreOperation(ctx, "memory", "get_project", time.Millisecond, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestLogHooks(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)
	h := NewLogHooks(logger)
	h.Install()

	ctx := context.Background()
	Pipeline().OnSeparateStart(ctx, "0123456789abcdef0123")
	Pipeline().OnSeparateComplete(ctx, "clustered", 2, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "spacing")
	Store().OnStoreOperation(ctx, "sqlite", "save_separation", time.Millisecond, errors.New("disk full"))

	out := buf.String()
	for _, want := range []string{"doc=0123456789ab", "strategy=clustered", "cache hit", "store save_separation", "disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef0123") {
		t.Error("document hash should be shortened")
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testStoreHooks struct{ NoopStoreHooks }
