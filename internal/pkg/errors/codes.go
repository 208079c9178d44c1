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
	ErrInternalServer = 1000
	ErrInvalidParams  = 1001
	ErrNotFound       = 1002
	ErrBadRequest     = 1003
	ErrServiceUnavail = 1004

	// Content errors (2000-2999)
	ErrContentNotFound   = 2000
	ErrStorageWrite      = 2001
	ErrStorageCopy       = 2002
	ErrStorageDelete     = 2003
	ErrStorageRead       = 2004
	ErrSourceBlobMissing = 2005
	ErrInvalidStage      = 2006
	ErrInvalidFileType   = 2007
	ErrFileTooLarge      = 2008
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:  {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:       {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrBadRequest:     {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail: {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Content errors
	ErrContentNotFound:   {ErrContentNotFound, http.StatusNotFound, "Content not found"},
	ErrStorageWrite:      {ErrStorageWrite, http.StatusInternalServerError, "Failed to write object to storage"},
	ErrStorageCopy:       {ErrStorageCopy, http.StatusInternalServerError, "Failed to copy object in storage"},
	ErrStorageDelete:     {ErrStorageDelete, http.StatusInternalServerError, "Failed to delete object from storage"},
	ErrStorageRead:       {ErrStorageRead, http.StatusInternalServerError, "Failed to read object from storage"},
	ErrSourceBlobMissing: {ErrSourceBlobMissing, http.StatusNotFound, "Source file missing from storage"},
	ErrInvalidStage:      {ErrInvalidStage, http.StatusBadRequest, "Unknown content stage"},
	ErrInvalidFileType:   {ErrInvalidFileType, http.StatusBadRequest, "Unsupported file type"},
	ErrFileTooLarge:      {ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File exceeds size limit"},
}

// GetMessage returns the message for an error code
func GetMessage(code int) string {
	if c, ok := codeMap[code]; ok {
		return c.Message
	}
	return "Unknown error"
}

// GetHTTPStatus returns the HTTP status for an error code
func GetHTTPStatus(code int) int {
	if c, ok := codeMap[code]; ok {
		return c.Status
	}
	return http.StatusInternalServerError
}

// FormatError formats an error message with optional details
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
