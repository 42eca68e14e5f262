package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007

	// Transfer errors (2000-2999)
	ErrNotAuthorized     = 2000
	ErrTransferNotFound  = 2001
	ErrInvalidRecipient  = 2002
	ErrTransferExpired   = 2003
	ErrInsufficientFee   = 2004
	ErrAlreadyClaimed    = 2005
	ErrInvalidSealKey    = 2006
	ErrTransferCancelled = 2007

	// Access control errors (3000-3999)
	ErrAccessControlNotFound = 3000
	ErrInvalidCondition      = 3001
	ErrAccessDenied          = 3002

	// Protocol ledger errors (4000-4999)
	ErrInvalidFeeRate      = 4000
	ErrInsufficientBalance = 4001
	ErrLedgerNotFound      = 4002
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},

	// Transfer errors
	ErrNotAuthorized:     {ErrNotAuthorized, http.StatusForbidden, "Caller is not authorized for this operation"},
	ErrTransferNotFound:  {ErrTransferNotFound, http.StatusNotFound, "Transfer not found"},
	ErrInvalidRecipient:  {ErrInvalidRecipient, http.StatusBadRequest, "Invalid recipient"},
	ErrTransferExpired:   {ErrTransferExpired, http.StatusGone, "Transfer has expired"},
	ErrInsufficientFee:   {ErrInsufficientFee, http.StatusBadRequest, "Insufficient payment for transfer"},
	ErrAlreadyClaimed:    {ErrAlreadyClaimed, http.StatusConflict, "Transfer is not pending"},
	ErrInvalidSealKey:    {ErrInvalidSealKey, http.StatusBadRequest, "Invalid seal public key"},
	ErrTransferCancelled: {ErrTransferCancelled, http.StatusConflict, "Transfer has been cancelled"},

	// Access control errors
	ErrAccessControlNotFound: {ErrAccessControlNotFound, http.StatusNotFound, "Access control not found"},
	ErrInvalidCondition:      {ErrInvalidCondition, http.StatusBadRequest, "Invalid access condition"},
	ErrAccessDenied:          {ErrAccessDenied, http.StatusForbidden, "Access denied"},

	// Protocol ledger errors
	ErrInvalidFeeRate:      {ErrInvalidFeeRate, http.StatusBadRequest, "Fee rate exceeds maximum"},
	ErrInsufficientBalance: {ErrInsufficientBalance, http.StatusBadRequest, "Insufficient collected fees"},
	ErrLedgerNotFound:      {ErrLedgerNotFound, http.StatusNotFound, "Protocol ledger not initialized"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
