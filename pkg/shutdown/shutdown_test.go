package shutdown

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownRunsAllCallbacks(t *testing.T) {
	m := NewManager()

	var ran int32
	for i := 0; i < 3; i++ {
		m.OnShutdown(func(ctx context.Context) {
			atomic.AddInt32(&ran, 1)
		})
	}
	m.OnShutdown(nil) // nil 回调应被忽略

	m.Shutdown(context.Background())
	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Errorf("期望执行 3 个回调，实际 %d", got)
	}
}

func TestShutdownOnlyOnce(t *testing.T) {
	m := NewManager()

	var ran int32
	m.OnShutdown(func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	})

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())
	if got := atomic.LoadInt32(&ran); got != 1 {
		t.Errorf("重复 Shutdown 不应该再次执行回调，实际执行 %d 次", got)
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager()

	release := make(chan struct{})
	m.OnShutdown(func(ctx context.Context) {
		<-release // 模拟卡死的清理回调
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	m.Shutdown(ctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("超时后 Shutdown 应该尽快返回，等待了 %v", elapsed)
	}
	close(release)
}
