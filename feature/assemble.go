package feature

import "github.com/rushteam/videorec/core"

// Assembly 是一次特征组装的结果。
// Rows 与 Items 一一对应；Unmapped 是因物品缺少编码被丢弃的候选数。
type Assembly struct {
	Rows     []core.FeatureRow
	Items    []*core.Item
	Unmapped int
}

// Assemble 为每个候选物品组装一行 (user_enc, item_enc) 特征。
//
// 物品不在编码空间内（例如索引比人群快照旧）时静默丢弃并计数；
// 用户不在编码空间内时所有候选都无法打分，全部计为 unmapped。
// 保留的候选会写入 user_id_enc / item_id_enc 两个特征，候选顺序保持不变。
func Assemble(enc *Encoder, userID int64, items []*core.Item) Assembly {
	out := Assembly{}
	userCode, ok := enc.EncodeUser(userID)
	if !ok {
		for _, it := range items {
			if it != nil {
				out.Unmapped++
			}
		}
		return out
	}

	out.Rows = make([]core.FeatureRow, 0, len(items))
	out.Items = make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		itemCode, ok := enc.EncodeItem(it.ID)
		if !ok {
			out.Unmapped++
			continue
		}
		it.PutFeature(FeatureUserEnc, float64(userCode))
		it.PutFeature(FeatureItemEnc, float64(itemCode))
		out.Rows = append(out.Rows, core.FeatureRow{User: userCode, Item: itemCode})
		out.Items = append(out.Items, it)
	}
	return out
}
