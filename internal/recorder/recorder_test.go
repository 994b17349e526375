package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
)

var header = []string{"受験日時", "氏名", "メール", "部署", "役職", "得点", "判定"}

func TestRow(t *testing.T) {
	r := New(nil, "受験結果", model.DefaultResultLabels)
	at := time.Date(2026, 3, 9, 14, 5, 7, 0, time.Local)

	tests := []struct {
		name string
		res  model.AttemptResult
		want []string
	}{
		{
			name: "general staff pass",
			res: model.AttemptResult{Timestamp: at, Name: "山田", Email: "yamada@example.com",
				DepartmentDisplay: "営業,修理室", Score: 5, Total: 5, Passed: true},
			want: []string{"2026-03-09 14:05:07", "山田", "yamada@example.com", "営業,修理室", "一般職", "5", "合格"},
		},
		{
			name: "manager fail",
			res: model.AttemptResult{Timestamp: at, Name: "佐藤", Email: "sato@example.com",
				DepartmentDisplay: "総務", Role: "部長", Score: 2, Total: 5},
			want: []string{"2026-03-09 14:05:07", "佐藤", "sato@example.com", "総務", "部長", "2", "不合格"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Row(tt.res))
		})
	}
}

func TestRecordAppends(t *testing.T) {
	mem := table.NewMemory()
	mem.Put("受験結果", [][]string{header})
	r := New(mem, "受験結果", model.DefaultResultLabels)

	res := model.AttemptResult{Timestamp: time.Now(), Name: "山田", Score: 1, Total: 2}
	require.NoError(t, r.Record(context.Background(), res))
	require.NoError(t, r.Record(context.Background(), res))

	rows, err := mem.Rows(context.Background(), "受験結果")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "不合格", rows[2][6])
}

func TestRecordMissingSheet(t *testing.T) {
	r := New(table.NewMemory(), "受験結果", model.DefaultResultLabels)

	err := r.Record(context.Background(), model.AttemptResult{Name: "山田"})
	require.Error(t, err)
	assert.True(t, table.IsAccessError(err))
	assert.True(t, errors.Is(err, table.ErrSheetNotFound))
}
