package recall

import (
	"context"

	"github.com/rushteam/videorec/core"
)

// MemoryHistory 是基于交互日志的内存用户历史存储。
// 只收录正反馈，按日志顺序保存；构建完成后只读。
type MemoryHistory struct {
	byUser map[int64][]int64
	users  []int64
}

// NewMemoryHistory 从交互日志构建用户历史。Label!=1 的记录被忽略。
func NewMemoryHistory(interactions []core.Interaction) *MemoryHistory {
	h := &MemoryHistory{byUser: make(map[int64][]int64)}
	for _, in := range interactions {
		if !in.Positive() {
			continue
		}
		if _, ok := h.byUser[in.UserID]; !ok {
			h.users = append(h.users, in.UserID)
		}
		h.byUser[in.UserID] = append(h.byUser[in.UserID], in.ItemID)
	}
	return h
}

// GetUserHistory 返回用户历史的副本；未知用户返回空。
func (h *MemoryHistory) GetUserHistory(_ context.Context, userID int64) ([]int64, error) {
	items := h.byUser[userID]
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]int64, len(items))
	copy(out, items)
	return out, nil
}

// Users 返回有正反馈的用户（首次出现顺序）。
func (h *MemoryHistory) Users() []int64 { return h.users }

// Histories 返回全部用户历史（只读）。
func (h *MemoryHistory) Histories() map[int64][]int64 { return h.byUser }

var _ core.HistoryStore = (*MemoryHistory)(nil)
