package app

import "fmt"

// DomainError is an error the HTTP layer can map directly onto a
// response: Status becomes the HTTP status, Code and Message the JSON
// error body, and Details an optional structured payload such as
// validation problems.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
