package feature

import "github.com/rushteam/videorec/core"

// 排序模型使用的两个类别特征名
const (
	FeatureUserEnc = "user_id_enc"
	FeatureItemEnc = "item_id_enc"
)

// codebook 是单个 ID 空间的 Label 编码：原始 ID -> 0,1,2,...（按首次出现顺序）。
type codebook struct {
	codes map[int64]int
	ids   []int64
}

func newCodebook(ids []int64) codebook {
	cb := codebook{codes: make(map[int64]int, len(ids))}
	for _, id := range ids {
		cb.add(id)
	}
	return cb
}

func (cb *codebook) add(id int64) {
	if _, ok := cb.codes[id]; ok {
		return
	}
	cb.codes[id] = len(cb.ids)
	cb.ids = append(cb.ids, id)
}

func (cb *codebook) encode(id int64) (int, bool) {
	code, ok := cb.codes[id]
	return code, ok
}

// Encoder 把原始 user_id / item_id 映射到排序模型使用的稠密编码空间。
//
// 设计要点：
//   - 用户与物品是两个独立的编码空间，各自从 0 开始
//   - 按首次出现顺序分配编码；同样的输入顺序总是得到同样的映射
//   - 只在一个数据快照内稳定，快照的人群变化后必须整体重建
//   - 构建完成后只读，并发读无需加锁
//   - 未知 ID 通过 ok=false 显式返回，不 panic；由特征组装阶段负责过滤
type Encoder struct {
	users codebook
	items codebook
}

// NewEncoder 从全部已知的用户 ID 与物品 ID 构建编码器，重复 ID 被忽略。
func NewEncoder(userIDs, itemIDs []int64) *Encoder {
	return &Encoder{
		users: newCodebook(userIDs),
		items: newCodebook(itemIDs),
	}
}

// EncoderFromInteractions 以交互日志全量人群（不区分 Label）构建编码器。
func EncoderFromInteractions(interactions []core.Interaction) *Encoder {
	enc := &Encoder{
		users: codebook{codes: make(map[int64]int)},
		items: codebook{codes: make(map[int64]int)},
	}
	for _, in := range interactions {
		enc.users.add(in.UserID)
		enc.items.add(in.ItemID)
	}
	return enc
}

// EncodeUser 返回用户编码；ok=false 表示该用户不在编码空间内。
func (e *Encoder) EncodeUser(raw int64) (int, bool) { return e.users.encode(raw) }

// EncodeItem 返回物品编码；ok=false 表示该物品不在编码空间内。
func (e *Encoder) EncodeItem(raw int64) (int, bool) { return e.items.encode(raw) }

// DecodeItem 把物品编码还原为原始 ID。
func (e *Encoder) DecodeItem(code int) (int64, bool) {
	if code < 0 || code >= len(e.items.ids) {
		return 0, false
	}
	return e.items.ids[code], true
}

// Users 返回按编码顺序排列的原始用户 ID（只读）。
func (e *Encoder) Users() []int64 { return e.users.ids }

// Items 返回按编码顺序排列的原始物品 ID（只读）。
func (e *Encoder) Items() []int64 { return e.items.ids }

// NumUsers / NumItems 返回编码空间大小。
func (e *Encoder) NumUsers() int { return len(e.users.ids) }
func (e *Encoder) NumItems() int { return len(e.items.ids) }
