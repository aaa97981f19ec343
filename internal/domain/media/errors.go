package media

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. The set is closed; propagation and the
// HTTP status mapping switch over it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindUnsupportedType
	KindDownloadFailed
	KindStorageNotConfigured
	KindStorageOperationFailed
	KindExtractionFailed
	KindVideoStageFailed
	KindModelUnavailable
	KindModelCallFailed
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindInvalidInput:           "invalid_input",
	KindUnsupportedType:        "unsupported_type",
	KindDownloadFailed:         "download_failed",
	KindStorageNotConfigured:   "storage_not_configured",
	KindStorageOperationFailed: "storage_operation_failed",
	KindExtractionFailed:       "extraction_failed",
	KindVideoStageFailed:       "video_stage_failed",
	KindModelUnavailable:       "model_unavailable",
	KindModelCallFailed:        "model_call_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Download failure causes, wrapped inside a KindDownloadFailed error.
var (
	ErrDownloadTooLarge = errors.New("file exceeds maximum download size")
	ErrDownloadTimeout  = errors.New("download timed out")
)

// Error is the pipeline error type.
type Error struct {
	Kind     Kind
	Op       string
	FileType FileType
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op
	}
	if e.FileType != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.FileType)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// E builds an *Error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
