package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 领域层错误都使用此类型，携带模块（Module）与错误代码（Code）
//   - 可包装底层错误（Err），支持 errors.Is / errors.As
//   - 通过 IsXXX 函数检查错误类别
//
// 使用场景：
//   - 索引构建：INVALID_INPUT（交互记录格式错误）
//   - 排序模型：UNAVAILABLE（模型不可用或调用失败）
//   - 存储：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "recall", "rank"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Module + Code 匹配，使包装后的错误仍能与哨兵错误比较。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// Wrap 以当前错误为模板包装一个底层错误。
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Module: e.Module, Code: e.Code, Message: e.Message, Err: err}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore   = "store"
	ModuleRecall  = "recall"
	ModuleFeature = "feature"
	ModuleRank    = "rank"
	ModuleDataset = "dataset"
)

var (
	// ErrMalformedInteraction 表示交互记录缺少必需字段或取值非法，索引构建会整体失败
	ErrMalformedInteraction = NewDomainError(ModuleRecall, ErrorCodeInvalidInput, "recall: malformed interaction")

	// ErrScorerUnavailable 表示排序模型不可用或调用失败，对本次请求是致命的
	ErrScorerUnavailable = NewDomainError(ModuleRank, ErrorCodeUnavailable, "rank: scorer unavailable")

	// ErrScoreMismatch 表示模型返回的分数数量与请求行数不一致
	ErrScoreMismatch = NewDomainError(ModuleRank, ErrorCodeInternalError, "rank: score count mismatch")

	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }
