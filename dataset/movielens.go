// Package dataset 加载离线交互日志。
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/videorec/core"
)

// DefaultThreshold 是正反馈阈值：评分 >= 4 视为喜欢。
const DefaultThreshold = 4

// LoadMovieLens 读取 MovieLens u.data 格式的交互日志。
//
// 每行四列，以 Tab 分隔：user_id  item_id  rating  timestamp
// Label = rating >= threshold ? 1 : 0；threshold<=0 时使用 DefaultThreshold。
// 空行跳过；任何格式错误的行都会使加载失败，错误中带行号。
func LoadMovieLens(r io.Reader, threshold int) ([]core.Interaction, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var out []core.Interaction
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		in, err := parseLine(text, threshold)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: line %d", line)).Wrap(err)
		}
		out = append(out, in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read interactions: %w", err)
	}
	return out, nil
}

func parseLine(text string, threshold int) (core.Interaction, error) {
	fields := strings.Fields(text)
	if len(fields) != 4 {
		return core.Interaction{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	var vals [4]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return core.Interaction{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	in := core.Interaction{UserID: vals[0], ItemID: vals[1], Timestamp: vals[3]}
	if vals[2] >= int64(threshold) {
		in.Label = 1
	}
	return in, in.Validate()
}

// LoadFile 从文件加载 MovieLens 交互日志。
func LoadFile(path string, threshold int) ([]core.Interaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open interactions: %w", err)
	}
	defer f.Close()
	return LoadMovieLens(f, threshold)
}

// Positives 返回 Label=1 的记录（保持原顺序）。
func Positives(interactions []core.Interaction) []core.Interaction {
	out := make([]core.Interaction, 0, len(interactions))
	for _, in := range interactions {
		if in.Positive() {
			out = append(out, in)
		}
	}
	return out
}
