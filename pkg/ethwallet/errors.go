package ethwallet

import "errors"

// Code is the stable machine-readable class of a wallet error. Handlers at
// the action boundary map codes to user-facing responses; no provider error
// propagates uncaught.
type Code string

const (
	CodeProviderMissing     Code = "ProviderMissing"
	CodeUserRejected        Code = "UserRejected"
	CodeNoAccounts          Code = "NoAccounts"
	CodeNetworkSwitchFailed Code = "NetworkSwitchFailed"
	CodeWrongNetwork        Code = "WrongNetwork"
	CodeQueryError          Code = "QueryError"
	CodeTransactionRejected Code = "TransactionRejected"
	CodeTransactionFailed   Code = "TransactionFailed"
	CodeValidation          Code = "ValidationError"
)

// Error is a classified wallet error carrying a user-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the wallet error code from err, or "" if err is not a
// classified wallet error.
func CodeOf(err error) Code {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Code
	}
	return ""
}

// MessageOf returns the user-facing message of a classified wallet error,
// falling back to the raw error text.
func MessageOf(err error) string {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Message
	}
	return err.Error()
}
