package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	minFragmentSize     = 320 * 1024
	maxFragmentSize     = 60 * 1024 * 1024
	defaultFragmentSize = 10 * 1024 * 1024
)

// ClampFragmentSize enforces the invariant from §3: the effective fragment
// size is always a positive multiple of 320 KiB in [320 KiB, 60 MiB]. A
// request inside that range is rounded DOWN to the alignment; a smaller
// positive request becomes 320 KiB, a larger one 60 MiB, and zero or a
// negative value yields the 10 MiB default.
func ClampFragmentSize(requested int64) int64 {
	if requested <= 0 {
		return defaultFragmentSize
	}

	if requested < minFragmentSize {
		return minFragmentSize
	}

	if requested > maxFragmentSize {
		return maxFragmentSize
	}

	aligned := (requested / minFragmentSize) * minFragmentSize
	if aligned < minFragmentSize {
		aligned = minFragmentSize
	}

	return aligned
}

// uploadChunked drives the state machine from §4.8: CREATE the session,
// then PUT strictly sequential fragments, ending in DONE on the final
// fragment's completed-item response or in an aborted session on any fatal
// failure.
func (c *Client) uploadChunked(ctx context.Context, ub urlBuilder, name string, r io.ReaderAt, size int64, cfg BackendConfig) (Item, error) {
	var session uploadSessionResponse

	err := c.doJSON(
		ctx, http.MethodPost, ub.itemVerbURL(name, "createUploadSession"),
		struct{}{}, // always send the literal {} body, per §9's Open Question decision
		requestOptions{sign: true, timeout: c.timeouts.Short}, &session,
	)
	if err != nil {
		return Item{}, fmt.Errorf("graph: creating upload session for %q: %w", name, err)
	}

	bufferSize := ClampFragmentSize(cfg.FragmentSize)
	if bufferSize > size {
		bufferSize = size
	}

	fragmentCount := int((size + bufferSize - 1) / bufferSize)

	c.logger.Info("starting chunked upload",
		slog.String("name", name),
		slog.Int64("size", size),
		slog.Int64("fragment_size", bufferSize),
		slog.Int("fragment_count", fragmentCount),
	)

	retryCount := cfg.FragmentRetryCount
	if retryCount <= 0 {
		retryCount = 5
	}

	retryDelay := cfg.FragmentRetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	var final *driveItemResponse

	index := 0

	for offset := int64(0); offset < size; offset += bufferSize {
		currentLen := bufferSize
		if remaining := size - offset; remaining < currentLen {
			currentLen = remaining
		}

		item, isFinal, err := c.uploadFragment(ctx, session.UploadURL, r, offset, currentLen, size, index, fragmentCount, retryCount, retryDelay)
		if err != nil {
			return Item{}, err
		}

		if isFinal {
			final = item
		}

		index++
	}

	if final == nil {
		return Item{}, fmt.Errorf("%w: upload completed without a final item response", ErrParse)
	}

	return final.toItem(), nil
}

// uploadFragment drives the per-fragment retry loop from §4.8/§4.9. It
// returns the completed item (and true) when this was the final fragment,
// or (nil, false, nil) when the fragment succeeded but more remain.
func (c *Client) uploadFragment(
	ctx context.Context, uploadURL string, r io.ReaderAt, offset, length, total int64,
	index, count, retryCount int, retryDelay time.Duration,
) (*driveItemResponse, bool, error) {
	var lastErr error

	for attempt := 0; attempt < retryCount; attempt++ {
		// A fresh SectionReader every attempt starts reading at offset
		// regardless of how much of a prior attempt's view was consumed —
		// the unconditional "seek back before every retry" behavior decided
		// in SPEC_FULL.md §9, expressed naturally in Go via io.ReaderAt.
		section := io.NewSectionReader(r, offset, length)
		contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total)

		resp, err := c.doUpload(ctx, uploadURL, section, uploadOptions{
			sign:          false, // uploadUrl is pre-authenticated; signing it is rejected
			contentLength: length,
			contentRange:  contentRange,
		})
		if err == nil {
			item, isFinal, decodeErr := decodeFragmentResponse(resp)
			if decodeErr != nil {
				return nil, false, c.abortSession(ctx, uploadURL, index, count, decodeErr)
			}

			return item, isFinal, nil
		}

		var ge *GraphError
		if !errors.As(err, &ge) {
			// Non-HTTP failure (context cancellation, transport-level I/O
			// error): fatal, per §4.8.
			return nil, false, c.abortSession(ctx, uploadURL, index, count, err)
		}

		if ge.StatusCode == http.StatusNotFound {
			return nil, false, c.abortSession(ctx, uploadURL, index, count, err)
		}

		lastErr = err

		if attempt == retryCount-1 {
			break
		}

		if isServerError(ge.StatusCode) {
			backoff := time.Duration(1<<uint(attempt)) * retryDelay

			c.logger.Warn("fragment upload failed, retrying with backoff",
				slog.Int("fragment_index", index),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if sleepErr := sleepContext(ctx, backoff); sleepErr != nil {
				return nil, false, c.abortSession(ctx, uploadURL, index, count, sleepErr)
			}
		} else if isRetryableFragmentStatus(ge.StatusCode) {
			c.logger.Warn("fragment upload failed, retrying immediately",
				slog.Int("fragment_index", index),
				slog.Int("attempt", attempt+1),
				slog.Int("status", ge.StatusCode),
			)
		}
	}

	return nil, false, c.abortSession(ctx, uploadURL, index, count, lastErr)
}

func decodeFragmentResponse(resp *http.Response) (*driveItemResponse, bool, error) {
	defer resp.Body.Close()

	var session uploadSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if session.isFinal() {
		return &driveItemResponse{ID: session.ID, Name: session.Name}, true, nil
	}

	return nil, false, nil
}

// abortSession DELETEs uploadUrl (unsigned, per §4.8) and wraps cause into
// an UploadSessionError. Cancellation uses a fresh context so that an
// already-cancelled parent context doesn't prevent best-effort cleanup.
func (c *Client) abortSession(ctx context.Context, uploadURL string, index, count int, cause error) error {
	_ = ctx

	cancelCtx, cancel := context.WithTimeout(context.Background(), c.timeouts.Short)
	defer cancel()

	resp, err := c.do(cancelCtx, http.MethodDelete, uploadURL, nil, false, false)
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			c.logger.Warn("failed to cancel upload session", slog.String("error", err.Error()))
		}
	} else {
		resp.Body.Close()
	}

	return &UploadSessionError{FragmentIndex: index, FragmentCount: count, Cause: cause}
}

// sleepContext sleeps for d or returns ctx.Err() if ctx is done first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
