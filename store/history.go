package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/videorec/core"
)

// HistoryKeyPrefix 是用户历史在 Store 中的 key 前缀：history:{user_id}
const HistoryKeyPrefix = "history:"

// KVHistory 是基于 core.Store 的用户历史存储。
// 每个用户一个 key，值为按日志顺序排列的正反馈物品 ID（JSON 数组）。
type KVHistory struct {
	Store  core.Store
	Prefix string
}

func NewKVHistory(s core.Store) *KVHistory {
	return &KVHistory{Store: s, Prefix: HistoryKeyPrefix}
}

func (h *KVHistory) key(userID int64) string {
	return h.Prefix + strconv.FormatInt(userID, 10)
}

// GetUserHistory 返回用户历史。用户不存在时返回空历史而不是错误。
func (h *KVHistory) GetUserHistory(ctx context.Context, userID int64) ([]int64, error) {
	data, err := h.Store.Get(ctx, h.key(userID))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var items []int64
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode history %d: %w", userID, err)
	}
	return items, nil
}

// SaveHistories 批量写入用户历史（覆盖）。
func (h *KVHistory) SaveHistories(ctx context.Context, histories map[int64][]int64) error {
	kvs := make(map[string][]byte, len(histories))
	for uid, items := range histories {
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode history %d: %w", uid, err)
		}
		kvs[h.key(uid)] = data
	}
	return h.Store.BatchSet(ctx, kvs)
}

var _ core.HistoryStore = (*KVHistory)(nil)
