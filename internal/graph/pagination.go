package graph

import (
	"context"
	"errors"
	"iter"
	"net/http"
)

// Paginate follows a GraphCollection<T> response's @odata.nextLink chain
// starting at startURL, producing a lazy, finite, one-shot sequence of
// items per §4.5. Iteration stops at the first error, which the consumer
// observes as the final (zero Item, err) pair.
func (c *Client) Paginate(ctx context.Context, startURL string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		nextURL := startURL

		for nextURL != "" {
			var page collection

			err := c.doJSON(ctx, http.MethodGet, nextURL, nil, requestOptions{sign: true, timeout: c.timeouts.List}, &page)
			if err != nil {
				var ge *GraphError
				if errors.As(err, &ge) && errors.Is(err, ErrItemNotFound) {
					// The root itself is gone mid-enumeration, per §4.5.
					err = ErrFolderMissing
				}

				yield(Item{}, err)

				return
			}

			for _, raw := range page.Value {
				if !yield(raw.toItem(), nil) {
					return
				}
			}

			nextURL = page.NextLink
		}
	}
}
