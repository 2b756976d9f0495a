// Package conv 提供类型转换与配置取值的泛型工具，用于解析 YAML/JSON 得到的 map[string]any。
package conv

// ToInt 将 any 转为 int，浮点数向零截断。
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case int32:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return int(val), true
	case float32:
		return int(val), true
	default:
		return 0, false
	}
}

// ConfigGet 从 map[string]any 按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt 从 config 取 int。YAML 常得到 int，JSON 常得到 float64，此处统一处理。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	if n, ok := ToInt(v); ok {
		return n
	}
	return defaultVal
}

// SliceAnyToInt64 将 []any（YAML/JSON 解析结果）转为 []int64，跳过无法转换的元素。
// v 不是切片时返回 nil。
func SliceAnyToInt64(v any) []int64 {
	switch vals := v.(type) {
	case []int64:
		return vals
	case []any:
		out := make([]int64, 0, len(vals))
		for _, x := range vals {
			if n, ok := ToInt(x); ok {
				out = append(out, int64(n))
			}
		}
		return out
	default:
		return nil
	}
}
