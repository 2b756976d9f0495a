package core

import "fmt"

// Interaction 是交互日志中的一条记录。Label 由外部按评分阈值派生，1 表示正反馈。
type Interaction struct {
	UserID    int64 `json:"user_id"`
	ItemID    int64 `json:"item_id"`
	Label     int   `json:"label"`
	Timestamp int64 `json:"timestamp"`
}

// Positive 判断是否为正反馈。
func (in Interaction) Positive() bool { return in.Label == 1 }

// Validate 校验记录是否完整：ID 非负，Label 只能是 0 或 1。
func (in Interaction) Validate() error {
	if in.UserID < 0 || in.ItemID < 0 {
		return ErrMalformedInteraction.Wrap(fmt.Errorf("negative id user=%d item=%d", in.UserID, in.ItemID))
	}
	if in.Label != 0 && in.Label != 1 {
		return ErrMalformedInteraction.Wrap(fmt.Errorf("label %d not in {0,1}", in.Label))
	}
	return nil
}
