package errors

import (
	"meshwallet/jsonx"
)

// WalletErrorCode represents standardized error codes for wallet operations
type WalletErrorCode string

const (
	// General errors
	ErrCodeInternal WalletErrorCode = "internal_error"

	// Submission errors
	ErrCodeSubmitRejected WalletErrorCode = "submit_rejected"
	ErrCodeMissingTxID    WalletErrorCode = "missing_tx_id"

	// Query errors
	ErrCodeRetriesExhausted WalletErrorCode = "retries_exhausted"

	// Account errors
	ErrCodeAccountNotTracked WalletErrorCode = "account_not_tracked"
	ErrCodeInvalidKeypair    WalletErrorCode = "invalid_keypair"

	// Storage errors
	ErrCodeStorageFailure WalletErrorCode = "storage_failure"
)

// WalletError represents a standardized wallet error
type WalletError struct {
	Code    WalletErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *WalletError) Error() string {
	err, _ := jsonx.Marshal(WalletError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgSubmitRejected    = "Transaction was rejected by the node"
	ErrMsgMissingTxID       = "Node accepted the submission but returned no transaction id"
	ErrMsgRetriesExhausted  = "Remote query kept failing after all retries"
	ErrMsgAccountNotTracked = "Account is not tracked by this wallet"
	ErrMsgInvalidKeypair    = "Keypair is malformed"
	ErrMsgStorageFailure    = "Could not persist wallet state"
	ErrMsgInternal          = "Wallet error, please try again"
)

// NewError creates a new WalletError and returns it as error interface
func NewError(code WalletErrorCode, message string) error {
	return &WalletError{
		Code:    code,
		Message: message,
	}
}
