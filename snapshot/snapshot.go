// Package snapshot 持久化离线构建的产物：共现索引、编码器与用户历史。
//
// 快照是一份 JSON 文档，可以写入 core.Store（多个推荐实例共享）或本地文件。
// 加载后的索引与编码器和重新构建的结果完全一致。
package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/videorec/core"
	"github.com/rushteam/videorec/feature"
	"github.com/rushteam/videorec/recall"
)

// Version 是当前快照格式版本。
const Version = 1

// DefaultKey 是快照在 Store 中的默认 key。
const DefaultKey = "videorec:snapshot"

type Snapshot struct {
	Version int `json:"version"`

	// Users / Items 按编码顺序排列，下标即编码
	Users []int64 `json:"users"`
	Items []int64 `json:"items"`

	// Postings 是共现索引的邻接表
	Postings map[int64][]recall.Neighbor `json:"postings"`

	// History 是用户正反馈历史（可选；使用 store.KVHistory 时为空）
	History map[int64][]int64 `json:"history,omitempty"`
}

// New 从索引与编码器创建快照。history 可以为 nil。
func New(idx *recall.Index, enc *feature.Encoder, history map[int64][]int64) *Snapshot {
	postings := make(map[int64][]recall.Neighbor, idx.Len())
	for _, item := range idx.Items() {
		postings[item] = idx.Neighbors(item)
	}
	return &Snapshot{
		Version:  Version,
		Users:    enc.Users(),
		Items:    enc.Items(),
		Postings: postings,
		History:  history,
	}
}

// Restore 还原索引与编码器。
func (s *Snapshot) Restore() (*recall.Index, *feature.Encoder, error) {
	if s.Version != Version {
		return nil, nil, fmt.Errorf("snapshot version %d not supported", s.Version)
	}
	idx, err := recall.FromPostings(s.Postings)
	if err != nil {
		return nil, nil, fmt.Errorf("restore index: %w", err)
	}
	return idx, feature.NewEncoder(s.Users, s.Items), nil
}

func decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Save 把快照写入 Store。
func Save(ctx context.Context, st core.Store, key string, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := st.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save snapshot to %s: %w", st.Name(), err)
	}
	return nil
}

// Load 从 Store 读取快照。key 不存在时返回的错误满足 core.IsNotFound。
func Load(ctx context.Context, st core.Store, key string) (*Snapshot, error) {
	data, err := st.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return decode(data)
}

// SaveFile 把快照写入文件（先写临时文件再 rename）。
func SaveFile(path string, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile 从文件读取快照。
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}
