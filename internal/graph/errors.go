package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the coarse classification described in the error
// handling design. Callers use errors.Is against these, and errors.As
// against *GraphError when they need the status code or request id.
var (
	ErrItemNotFound      = errors.New("graph: item not found")
	ErrFileMissing       = errors.New("graph: file missing")
	ErrFolderMissing     = errors.New("graph: folder missing")
	ErrParse             = errors.New("graph: response parse error")
	ErrUploadSessionLost = errors.New("graph: upload session lost")
	ErrCancelled         = errors.New("graph: cancelled")
)

// GraphError wraps a non-2xx Graph API response. StatusCode and Message let
// callers reconstruct the taxonomy in §7 of the spec; RequestID carries
// Graph's own diagnostic header when present.
type GraphError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *GraphError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: %d %s (request-id %s)", e.StatusCode, e.Message, e.RequestID)
	}

	return fmt.Sprintf("graph: %d %s", e.StatusCode, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code onto the sentinel kind that best
// fits the taxonomy in §7. Anything not explicitly 404 is TransportError,
// represented by a *GraphError with no sentinel Unwrap target.
func classifyStatus(code int) error {
	if code == http.StatusNotFound {
		return ErrItemNotFound
	}

	return nil
}

// isRetryableFragmentStatus reports whether a fragment PUT failure at this
// status should be retried at all (as opposed to being immediately fatal).
// 404 is handled separately as fatal; everything else non-2xx is retryable
// subject to the attempt cap, per §4.8/§4.9 and the Open Questions decision
// in SPEC_FULL.md §9 to keep the broad 4xx-without-404 retry behavior.
func isRetryableFragmentStatus(code int) bool {
	return code != http.StatusNotFound
}

func isServerError(code int) bool {
	return code >= 500 && code < 600
}

// UploadSessionError reports a fatal failure of the chunked upload engine.
// The session has already been DELETEd by the time this is returned.
type UploadSessionError struct {
	FragmentIndex int
	FragmentCount int
	Cause         error
}

func (e *UploadSessionError) Error() string {
	return fmt.Sprintf("graph: upload session lost at fragment %d/%d: %v", e.FragmentIndex, e.FragmentCount, e.Cause)
}

func (e *UploadSessionError) Unwrap() error {
	return e.Cause
}

func (e *UploadSessionError) Is(target error) bool {
	return target == ErrUploadSessionLost
}
