package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(maxRetries int) *RetryPolicy {
	return NewRetryPolicy(maxRetries, time.Millisecond, time.Millisecond, nil)
}

// TestFetch_SuccessFirstTry 测试首次成功不重试
func TestFetch_SuccessFirstTry(t *testing.T) {
	calls := 0
	result, err := Fetch(context.Background(), testPolicy(3), "unit", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

// TestFetch_EmptyNotRetried 测试空结果立即返回，不重试也不致命
func TestFetch_EmptyNotRetried(t *testing.T) {
	calls := 0
	_, err := Fetch(context.Background(), testPolicy(3), "unit", func(ctx context.Context) ([]string, error) {
		calls++
		return nil, ErrEmpty
	})

	assert.ErrorIs(t, err, ErrEmpty)
	assert.False(t, IsFatal(err))
	assert.Equal(t, 1, calls)
}

// TestFetch_RetriesExhausted 测试重试全部耗尽后返回致命错误
// 3 次常规重试 + 1 次最终尝试，共调用 4 次
func TestFetch_RetriesExhausted(t *testing.T) {
	calls := 0
	boom := errors.New("连接超时")
	_, err := Fetch(context.Background(), testPolicy(3), "000001.SZ", func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, IsFatal(err))

	var fe *FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "000001.SZ", fe.Unit)
	assert.ErrorIs(t, err, boom)
}

// TestFetch_FinalAttemptSucceeds 测试最终尝试成功则任务不中止
func TestFetch_FinalAttemptSucceeds(t *testing.T) {
	calls := 0
	result, err := Fetch(context.Background(), testPolicy(2), "unit", func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("暂时失败")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

// TestFetch_CtxCancelDuringWait 测试重试等待中取消
func TestFetch_CtxCancelDuringWait(t *testing.T) {
	policy := NewRetryPolicy(3, time.Minute, time.Minute, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Fetch(ctx, policy, "unit", func(ctx context.Context) (int, error) {
		return 0, errors.New("失败")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsFatal(err))
}
