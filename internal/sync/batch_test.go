package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteBatches_AllSuccess 测试按批大小切分并全部成功
func TestWriteBatches_AllSuccess(t *testing.T) {
	writer := NewBatchWriter(2, nil)
	items := []int{1, 2, 3, 4, 5}

	var chunks [][]int
	success, failed, err := WriteBatches(context.Background(), writer, "test", items,
		func(ctx context.Context, chunk []int) error {
			chunks = append(chunks, append([]int(nil), chunk...))
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 5, success)
	assert.Equal(t, 0, failed)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2}, chunks[0])
	assert.Equal(t, []int{3, 4}, chunks[1])
	assert.Equal(t, []int{5}, chunks[2])
}

// TestWriteBatches_PartialFailure 测试单批失败不影响后续批次
func TestWriteBatches_PartialFailure(t *testing.T) {
	writer := NewBatchWriter(2, nil)
	items := []string{"a", "b", "c", "d", "e"}

	batchNo := 0
	success, failed, err := WriteBatches(context.Background(), writer, "test", items,
		func(ctx context.Context, chunk []string) error {
			batchNo++
			if batchNo == 2 {
				return errors.New("写入失败")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, batchNo)
	assert.Equal(t, 3, success)
	assert.Equal(t, 2, failed)
}

// TestWriteBatches_Empty 测试空输入直接返回
func TestWriteBatches_Empty(t *testing.T) {
	writer := NewBatchWriter(10, nil)

	called := false
	success, failed, err := WriteBatches(context.Background(), writer, "test", []int{},
		func(ctx context.Context, chunk []int) error {
			called = true
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 0, success)
	assert.Equal(t, 0, failed)
	assert.False(t, called)
}

// TestWriteBatches_CtxCancel 测试批间取消
func TestWriteBatches_CtxCancel(t *testing.T) {
	writer := NewBatchWriter(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	success, _, err := WriteBatches(ctx, writer, "test", []int{1, 2, 3},
		func(ctx context.Context, chunk []int) error {
			calls++
			cancel()
			return nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, success)
}
