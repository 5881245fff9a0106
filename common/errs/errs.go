package errs

import (
	"fmt"
	"net/http"
)

type HttpError struct {
	Code    int
	Message string
	Data    any
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("code %d: %s, data: %v", e.Code, e.Message, e.Data)
}

func ValidationFailed(data any) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: "Validation failed", Data: data}
}
