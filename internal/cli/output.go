package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (not synced, invalid task, etc.)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, database error)
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeConfig     = "E002" // Config unreadable or invalid
	ErrCodeStore      = "E003" // Local database error
	ErrCodeNotFound   = "E004" // Unknown or ambiguous task id
	ErrCodeValidation = "E005" // Task rejected by validation
	ErrCodeSync       = "E006" // Remote not confirmed
	ErrCodeUsage      = "E007" // Bad arguments
)

// ExitError is a command failure with the exit code and JSON error code
// it reports.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // JSON error code; ErrCodeGeneric when empty
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError reports bad arguments.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, ErrCode: ErrCodeUsage, Message: message}
}

// WrapExitError attaches codes and a message to err, which may be nil.
func WrapExitError(code int, errCode, message string, err error) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors other than
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostics and celebrations (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. In text
// mode data is printed with fmt, so view types implement fmt.Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// ReportError writes err through Error, taking the code from an ExitError.
func (f *OutputFormatter) ReportError(err error) {
	code := ErrCodeGeneric
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		code = exitErr.ErrCode
	}
	_ = f.Error(code, err.Error(), nil)
}

// VerboseLog writes a diagnostic line under --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter, or Writer when unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
