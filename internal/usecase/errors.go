package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// クライアントに返すエラーコード
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicate           = "DUPLICATE"
	CodeInvalidState        = "INVALID_STATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeCartEmpty           = "CART_EMPTY"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeInternal            = "INTERNAL"
)

// HTTPError はusecaseが返す唯一のエラー型。handlerがそのままJSONにする
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Data    interface{}
	// ログ用の原因。クライアントには返さない
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// IsCode はerrが指定コードのHTTPErrorか
func IsCode(err error, code string) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Code == code
}

func NewValidationError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, CodeValidation, msg)
}

func NewAuthenticationError(msg string) error {
	return NewHTTPError(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func NewForbiddenError(msg string) error {
	return NewHTTPError(http.StatusForbidden, CodeForbidden, msg)
}

func NewNotFoundError(msg string) error {
	return NewHTTPError(http.StatusNotFound, CodeNotFound, msg)
}

func NewDuplicateError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, CodeDuplicate, msg)
}

func NewInvalidStateError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, CodeInvalidState, msg)
}

// 現在残高と必要額を返す
func NewInsufficientBalanceError(balance, required decimal.Decimal) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeInsufficientBalance,
		Message: "insufficient balance",
		Data: map[string]decimal.Decimal{
			"balance":  balance,
			"required": required,
		},
	}
}

func NewCartEmptyError() error {
	return NewHTTPError(http.StatusBadRequest, CodeCartEmpty, "cart is empty")
}

func NewInvalidAmountError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, CodeInvalidAmount, msg)
}

func NewUpstreamError(msg string, cause error) error {
	return &HTTPError{Status: http.StatusBadGateway, Code: CodeUpstream, Message: msg, Err: cause}
}

// 500。causeはログにだけ出る
func NewInternalError(cause error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: cause}
}

// Tx内で返したHTTPErrorはそのまま、それ以外は500にする
func wrapTxError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return NewInternalError(err)
}
