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

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer      = 1000
	ErrInvalidParams       = 1001
	ErrNotFound            = 1002
	ErrConflict            = 1005
	ErrBadRequest          = 1007
	ErrServiceUnavail      = 1008
	ErrMethodNotAllowed    = 1009
	ErrRangeNotSatisfiable = 1010
	ErrPayloadTooLarge     = 1011

	// Asset errors (2000-2999)
	ErrAssetNotFound     = 2000
	ErrAssetEmptyPayload = 2001
	ErrAssetStoreFailed  = 2002

	// Short link errors (3000-3999)
	ErrLinkNotFound    = 3000
	ErrLinkCodeTaken   = 3001
	ErrLinkInvalidCode = 3002

	// Analytics errors (4000-4999)
	ErrAnalyticsInvalidEvent = 4000
	ErrAnalyticsStoreFailed  = 4001
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:      {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:       {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:            {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrConflict:            {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrBadRequest:          {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:      {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},
	ErrMethodNotAllowed:    {ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed"},
	ErrRangeNotSatisfiable: {ErrRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable"},
	ErrPayloadTooLarge:     {ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "Payload too large"},

	ErrAssetNotFound:     {ErrAssetNotFound, http.StatusNotFound, "Asset not found"},
	ErrAssetEmptyPayload: {ErrAssetEmptyPayload, http.StatusBadRequest, "No file uploaded"},
	ErrAssetStoreFailed:  {ErrAssetStoreFailed, http.StatusInternalServerError, "Storage operation failed"},

	ErrLinkNotFound:    {ErrLinkNotFound, http.StatusNotFound, "Short link not found"},
	ErrLinkCodeTaken:   {ErrLinkCodeTaken, http.StatusConflict, "Short code already in use"},
	ErrLinkInvalidCode: {ErrLinkInvalidCode, http.StatusBadRequest, "Invalid short code"},

	ErrAnalyticsInvalidEvent: {ErrAnalyticsInvalidEvent, http.StatusBadRequest, "Invalid analytics event"},
	ErrAnalyticsStoreFailed:  {ErrAnalyticsStoreFailed, http.StatusInternalServerError, "Failed to record event"},
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

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
