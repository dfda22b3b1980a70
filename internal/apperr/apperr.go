// Package apperr 定义前端统一的错误分类，供 API 客户端、表单校验和页面渲染共用。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类型
type Kind int

const (
	KindNetworkFailure Kind = iota + 1
	KindAuthExpired
	KindAuthInvalid
	KindValidationFailure
	KindNotFound
	KindPermissionDenied
)

// String 返回错误类型名称
func (k Kind) String() string {
	switch k {
	case KindNetworkFailure:
		return "network_failure"
	case KindAuthExpired:
		return "auth_expired"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindValidationFailure:
		return "validation_failure"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error 带分类的错误
type Error struct {
	Kind    Kind
	Message string            // 面向用户的提示
	Fields  map[string]string // 表单字段错误
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, apperr.ErrNotFound) 这类按类型比较生效
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// 按类型比较用的哨兵错误
var (
	ErrNetworkFailure    = &Error{Kind: KindNetworkFailure}
	ErrAuthExpired       = &Error{Kind: KindAuthExpired}
	ErrAuthInvalid       = &Error{Kind: KindAuthInvalid}
	ErrValidationFailure = &Error{Kind: KindValidationFailure}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
)

// New 创建错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation 创建表单校验错误
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidationFailure, Message: message, Fields: fields}
}

// KindOf 提取错误类型，非 *Error 一律视为网络/服务端故障
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetworkFailure
}

// IsAuth 是否为需要重新登录的错误
func IsAuth(err error) bool {
	k := KindOf(err)
	return k == KindAuthExpired || k == KindAuthInvalid
}

// Status 错误对应的 HTTP 状态码
func Status(err error) int {
	switch KindOf(err) {
	case KindAuthExpired, KindAuthInvalid:
		return http.StatusUnauthorized
	case KindValidationFailure:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// Message 面向用户的错误提示
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch KindOf(err) {
	case KindAuthExpired:
		return "登录已过期，请重新登录"
	case KindAuthInvalid:
		return "登录状态无效，请重新登录"
	case KindValidationFailure:
		return "提交的内容有误"
	case KindNotFound:
		return "资源不存在"
	case KindPermissionDenied:
		return "没有权限执行该操作"
	default:
		return "服务暂时不可用，请稍后重试"
	}
}
