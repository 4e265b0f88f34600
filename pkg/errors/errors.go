package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误
// Code 是业务错误码(不是HTTP状态码), Message 是给调用方看的提示,
// Details 携带可操作的上下文(哪本书、哪个订单、多少金额), Err 是内部错误,只进日志.
type AppError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配.
// 带Details的错误每次都是新实例, 按码匹配后 errors.Is(err, ErrOutOfStock) 仍然成立.
// 内部错误码(50000)不参与按码匹配, 否则所有Wrap出来的错误都会互相相等.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return e.Code == t.Code && e.Code != ErrCodeInternal
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails 创建带上下文的AppError
func NewWithDetails(code int, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装系统错误(数据库、网络等), 隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// - 4xxxx: 客户端错误(参数错误、业务规则校验失败)
// - 5xxxx: 服务端错误(数据库异常、外部服务调用失败)

const (
	// 系统级错误码(50000-50099)
	ErrCodeInternal      = 50000
	ErrCodeDatabaseError = 50001
	ErrCodeRedisError    = 50002
	ErrCodeBrokerError   = 50003

	// 认证授权错误(40100-40199)
	ErrCodeUnauthorized = 40100
	ErrCodeInvalidToken = 40101
	ErrCodeTokenExpired = 40102
	ErrCodeForbidden    = 40104

	// 资源错误(40400-40499)
	ErrCodeNotFound       = 40400
	ErrCodeUserNotFound   = 40401
	ErrCodeBookNotFound   = 40402
	ErrCodeOrderNotFound  = 40403
	ErrCodeWalletNotFound = 40404

	// 业务规则错误(40000-40099)
	ErrCodeBusinessError       = 40000
	ErrCodeOutOfStock          = 40001
	ErrCodeInvalidTransition   = 40002
	ErrCodeInsufficientBalance = 40006
	ErrCodeInvalidAmount       = 40007
	ErrCodeBookReferenced      = 40008
	ErrCodeDuplicateEntry      = 40009

	// 参数错误(40900-40999)
	ErrCodeInvalidParams = 40900
	ErrCodeBindError     = 40901
)

// =========================================
// 预定义错误
// =========================================

var (
	ErrInternal      = New(ErrCodeInternal, "internal error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache error")

	ErrUnauthorized = New(ErrCodeUnauthorized, "login required")
	ErrInvalidToken = New(ErrCodeInvalidToken, "invalid token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "token expired")
	ErrForbidden    = New(ErrCodeForbidden, "forbidden")

	ErrUserNotFound  = New(ErrCodeUserNotFound, "user not found")
	ErrBookNotFound  = New(ErrCodeBookNotFound, "book not found")
	ErrOrderNotFound = New(ErrCodeOrderNotFound, "order not found")

	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request body")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError(如果不是AppError则包装成Internal错误)
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal error")
}

// IsBusiness 判断是否为可预期的业务错误(4xxxx)
// 业务错误返回给调用方, 系统错误只记日志.
func IsBusiness(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code >= 40000 && appErr.Code < 50000
}
