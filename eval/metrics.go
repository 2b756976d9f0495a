// Package eval 提供离线评估指标与评估流程。
//
// 指标都是无状态的纯函数：
//   - 召回阶段：RecallAtK / HitRateAtK，基于 (ground truth, predicted) 物品 ID
//   - 排序阶段：PrecisionAtK / NDCGAtK，基于按预测顺序排列的标签
//
// k<=0 或输入为空时返回 0；k 超过可用长度时截断到可用长度。
package eval

import (
	"cmp"
	"math"
	"slices"
)

func topK[T any](s []T, k int) []T {
	if k > len(s) {
		k = len(s)
	}
	return s[:k]
}

func hits(truth, predicted []int64, k int) (int, int) {
	set := make(map[int64]struct{}, len(truth))
	for _, id := range truth {
		set[id] = struct{}{}
	}
	n := 0
	seen := make(map[int64]struct{}, k)
	for _, id := range topK(predicted, k) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n, len(set)
}

// RecallAtK = |truth ∩ predicted[:k]| / |truth|。truth 为空时为 0。
func RecallAtK(truth, predicted []int64, k int) float64 {
	if k <= 0 || len(truth) == 0 {
		return 0
	}
	n, total := hits(truth, predicted, k)
	return float64(n) / float64(total)
}

// HitRateAtK 在 predicted[:k] 命中任意一个 truth 时为 1，否则为 0。
func HitRateAtK(truth, predicted []int64, k int) float64 {
	if k <= 0 || len(truth) == 0 {
		return 0
	}
	if n, _ := hits(truth, predicted, k); n > 0 {
		return 1
	}
	return 0
}

// PrecisionAtK 是按预测顺序排列的前 k 个标签的均值。
func PrecisionAtK(labels []float64, k int) float64 {
	if k <= 0 || len(labels) == 0 {
		return 0
	}
	top := topK(labels, k)
	sum := 0.0
	for _, l := range top {
		sum += l
	}
	return sum / float64(len(top))
}

// DCG = Σ (2^label_i − 1) / log2(i + 2)，i 从 0 开始。
func DCG(labels []float64) float64 {
	sum := 0.0
	for i, l := range labels {
		sum += (math.Pow(2, l) - 1) / math.Log2(float64(i)+2)
	}
	return sum
}

// NDCGAtK = DCG(预测顺序前 k 个) / DCG(理想顺序前 k 个)。
// 理想顺序为全部标签降序；理想 DCG 为 0 时返回 0。
func NDCGAtK(labels []float64, k int) float64 {
	if k <= 0 || len(labels) == 0 {
		return 0
	}
	ideal := slices.Clone(labels)
	slices.SortFunc(ideal, func(a, b float64) int { return cmp.Compare(b, a) })
	idcg := DCG(topK(ideal, k))
	if idcg == 0 {
		return 0
	}
	return DCG(topK(labels, k)) / idcg
}

// AUC 是二分类标签下的 ROC AUC（Mann-Whitney U，分数相同取平均秩）。
// 只有一类标签时返回 0。
func AUC(labels, scores []float64) float64 {
	n := min(len(labels), len(scores))
	if n == 0 {
		return 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return cmp.Compare(scores[a], scores[b]) })

	var pos, neg, rankSum float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for t := i; t <= j; t++ {
			if labels[idx[t]] > 0 {
				pos++
				rankSum += avg
			} else {
				neg++
			}
		}
		i = j + 1
	}
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
