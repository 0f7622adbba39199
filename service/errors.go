package service

import "errors"

// 问答流水线的错误分类。每个阶段的失败在编排器边界被捕获，
// 由 api 层映射为不同的 HTTP 状态码和用户可见消息，内部细节不外泄。

// ErrConversationNotFound 指定的会话不存在或不属于当前用户
var ErrConversationNotFound = errors.New("会话不存在")

// 检索阶段的具体原因
var (
	// ErrIndexAuth 向量索引认证被拒绝
	ErrIndexAuth = errors.New("向量索引认证被拒绝")
	// ErrIndexUnavailable 向量索引不可达或服务端错误
	ErrIndexUnavailable = errors.New("向量索引不可用")
)

// 生成阶段的具体原因
var (
	// ErrLLMAuth 模型 API 认证失败
	ErrLLMAuth = errors.New("模型 API 认证失败")
	// ErrLLMQuota 模型 API 配额不足或被限流
	ErrLLMQuota = errors.New("模型 API 配额不足")
	// ErrLLMTimeout 生成超时
	ErrLLMTimeout = errors.New("生成超时")
	// ErrLLMMalformed 模型返回了无法解析的响应
	ErrLLMMalformed = errors.New("模型响应格式异常")
)

// ValidationError 请求校验失败（用户可纠正，400类）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RetrievalError 检索阶段失败（索引不可用/认证失败，稍后重试）
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return "检索失败: " + e.Err.Error()
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// GenerationError 生成阶段失败（模型不可用/配额/超时，稍后重试）
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "生成失败: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PersistenceError 存储不可用（请求级致命错误，已写入的提问记录不回滚）
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "持久化失败: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
