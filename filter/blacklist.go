package filter

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/videorec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品（下架、违规视频等）。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单
	ItemIDs map[int64]struct{}

	// Store 用于从存储中读取黑名单（可选），值为 JSON 数组：[12, 34]
	Store core.Store

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// NewBlacklistFilter 创建一个黑名单过滤器。store 可以为 nil。
func NewBlacklistFilter(itemIDs []int64, store core.Store, key string) *BlacklistFilter {
	set := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		set[id] = struct{}{}
	}
	return &BlacklistFilter{ItemIDs: set, Store: store, Key: key}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.ItemIDs[item.ID]; ok {
		return true, nil
	}
	if f.Store == nil || f.Key == "" {
		return false, nil
	}

	ids, err := LoadBlacklist(ctx, f.Store, f.Key)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	_, ok := ids[item.ID]
	return ok, nil
}

// LoadBlacklist 从 Store 读取黑名单。
func LoadBlacklist(ctx context.Context, store core.Store, key string) (map[int64]struct{}, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode blacklist %s: %w", key, err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
