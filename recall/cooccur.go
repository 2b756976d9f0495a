package recall

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/videorec/core"
)

// Neighbor 是共现索引中的一条边：与某物品共同出现过的物品及共现次数。
type Neighbor struct {
	Item  int64 `json:"item"`
	Count int   `json:"count"`
}

type span struct {
	start, end int
}

// Index 是物品共现索引（Item-to-Item Co-occurrence）。
//
// 核心思想："被同一个用户喜欢过的两个物品，相互关联"
//
// 构建流程：
//  1. 按用户聚合正反馈物品（保持日志顺序）
//  2. 对每个用户的物品列表，枚举所有 i<j 的物品对，双向累加计数
//  3. 所有用户的计数求和
//
// 工程特征：
//   - 复杂度 O(Σ n_u²)，只做离线一次性构建，不支持增量插入
//   - 对称：count[a][b] == count[b][a]；没有自环
//   - 构建完成后只读，所有邻居存放在一块连续数组（arena）中，并发读无需加锁
//   - 更新方式只有整体重建后原子替换
type Index struct {
	spans map[int64]span
	arena []Neighbor
	items []int64
}

type buildOptions struct {
	workers int
}

// BuildOption 配置索引构建。
type BuildOption func(*buildOptions)

// WithWorkers 设置并行构建的分片数（按用户分片），<=0 表示使用 GOMAXPROCS。
// 分片数不影响结果，只影响构建耗时。
func WithWorkers(n int) BuildOption {
	return func(o *buildOptions) { o.workers = n }
}

// BuildIndex 从交互日志构建共现索引。
// 只有 Label=1 的记录参与计数；任意一条记录格式非法都会使整次构建失败，不会返回部分索引。
// 没有正反馈时返回空索引。
func BuildIndex(ctx context.Context, interactions []core.Interaction, opts ...BuildOption) (*Index, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	histories, distinct, err := groupPositives(interactions)
	if err != nil {
		return nil, err
	}
	if len(histories) == 0 {
		return &Index{spans: map[int64]span{}}, nil
	}

	workers := min(o.workers, len(histories))
	shards := make([]map[int64]map[int64]int, workers)

	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			local := make(map[int64]map[int64]int)
			for u := w; u < len(histories); u += workers {
				if err := egCtx.Err(); err != nil {
					return err
				}
				accumulate(local, histories[u])
			}
			shards[w] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	return freeze(mergeShards(shards, distinct)), nil
}

// groupPositives 校验记录并按用户聚合正反馈物品，用户顺序为首次出现顺序。
func groupPositives(interactions []core.Interaction) ([][]int64, int, error) {
	userIdx := make(map[int64]int)
	items := make(map[int64]struct{})
	var histories [][]int64
	for i, in := range interactions {
		if err := in.Validate(); err != nil {
			return nil, 0, fmt.Errorf("interaction %d: %w", i, err)
		}
		if !in.Positive() {
			continue
		}
		idx, ok := userIdx[in.UserID]
		if !ok {
			idx = len(histories)
			userIdx[in.UserID] = idx
			histories = append(histories, nil)
		}
		histories[idx] = append(histories[idx], in.ItemID)
		items[in.ItemID] = struct{}{}
	}
	return histories, len(items), nil
}

// accumulate 对一个用户的物品列表累加所有 i<j 物品对（双向），跳过相同物品。
func accumulate(counts map[int64]map[int64]int, items []int64) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a == b {
				continue
			}
			bump(counts, a, b)
			bump(counts, b, a)
		}
	}
}

func bump(counts map[int64]map[int64]int, a, b int64) {
	row, ok := counts[a]
	if !ok {
		row = make(map[int64]int)
		counts[a] = row
	}
	row[b]++
}

func mergeShards(shards []map[int64]map[int64]int, sizeHint int) map[int64]map[int64]int {
	if len(shards) == 1 {
		return shards[0]
	}
	total := make(map[int64]map[int64]int, sizeHint)
	for _, shard := range shards {
		for a, row := range shard {
			dst, ok := total[a]
			if !ok {
				total[a] = row
				continue
			}
			for b, c := range row {
				dst[b] += c
			}
		}
	}
	return total
}

// freeze 把嵌套 map 压成按物品 ID 升序的连续邻接数组。
func freeze(counts map[int64]map[int64]int) *Index {
	idx := &Index{
		spans: make(map[int64]span, len(counts)),
		items: make([]int64, 0, len(counts)),
	}
	edges := 0
	for a, row := range counts {
		idx.items = append(idx.items, a)
		edges += len(row)
	}
	slices.Sort(idx.items)

	idx.arena = make([]Neighbor, 0, edges)
	for _, a := range idx.items {
		start := len(idx.arena)
		for b, c := range counts[a] {
			idx.arena = append(idx.arena, Neighbor{Item: b, Count: c})
		}
		window := idx.arena[start:]
		slices.SortFunc(window, func(x, y Neighbor) int { return cmp.Compare(x.Item, y.Item) })
		idx.spans[a] = span{start: start, end: len(idx.arena)}
	}
	return idx
}

// FromPostings 由邻接表直接还原索引（用于快照加载）。
// 输入必须满足对称、无自环，否则返回 ErrMalformedInteraction。
func FromPostings(postings map[int64][]Neighbor) (*Index, error) {
	counts := make(map[int64]map[int64]int, len(postings))
	for a, ns := range postings {
		row := make(map[int64]int, len(ns))
		for _, n := range ns {
			if n.Item == a || n.Count <= 0 {
				return nil, core.ErrMalformedInteraction.Wrap(fmt.Errorf("bad posting %d -> %d (%d)", a, n.Item, n.Count))
			}
			row[n.Item] = n.Count
		}
		counts[a] = row
	}
	for a, row := range counts {
		for b, c := range row {
			if counts[b][a] != c {
				return nil, core.ErrMalformedInteraction.Wrap(fmt.Errorf("asymmetric posting %d <-> %d", a, b))
			}
		}
	}
	return freeze(counts), nil
}

// Neighbors 返回物品的邻居（按物品 ID 升序）。返回值与索引共享底层数组，只读。
// 未知物品返回 nil。
func (idx *Index) Neighbors(item int64) []Neighbor {
	if idx == nil {
		return nil
	}
	s, ok := idx.spans[item]
	if !ok {
		return nil
	}
	return idx.arena[s.start:s.end:s.end]
}

// Lookup 返回物品的邻居 -> 共现次数映射（新分配的副本）。未知物品返回空 map。
func (idx *Index) Lookup(item int64) map[int64]int {
	ns := idx.Neighbors(item)
	out := make(map[int64]int, len(ns))
	for _, n := range ns {
		out[n.Item] = n.Count
	}
	return out
}

// Len 返回至少有一个邻居的物品数。
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.items)
}

// Pairs 返回有向边数量（对称边计两次）。
func (idx *Index) Pairs() int {
	if idx == nil {
		return 0
	}
	return len(idx.arena)
}

// Items 返回索引中的物品（升序）。返回值只读。
func (idx *Index) Items() []int64 {
	if idx == nil {
		return nil
	}
	return idx.items
}
