package graph

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// createFolderRequest is the POST body for creating a child folder, per
// §4.6 and §6.
type createFolderRequest struct {
	Name   string         `json:"name"`
	Folder map[string]any `json:"folder"`
}

// ensureFolderPath walks resolved.RootPath segment by segment, creating any
// that don't yet exist, per §4.6. Returns the final segment's item id.
func (c *Client) ensureFolderPath(ctx context.Context, resolved *Resolved) (string, error) {
	root := newURLBuilder(resolved.APIVersion, resolved.DrivePath, "")

	segments := splitPathSegments(resolved.RootPath)
	if len(segments) == 0 {
		return c.rootItemID(ctx, root)
	}

	parentID := ""
	built := ""

	for i, segment := range segments {
		built += "/" + segment

		var item driveItemResponse

		err := c.doJSON(ctx, http.MethodGet, root.pathItemURL(built), nil, requestOptions{sign: true, timeout: c.timeouts.Short}, &item)
		switch {
		case err == nil:
			parentID = item.ID
		case errors.Is(err, ErrItemNotFound):
			if parentID == "" {
				id, rootErr := c.rootItemID(ctx, root)
				if rootErr != nil {
					return "", rootErr
				}

				parentID = id
			}

			created, createErr := c.createFolder(ctx, root, parentID, segment)
			if createErr != nil {
				return "", createErr
			}

			parentID = created.ID
			c.logger.Info("created folder segment",
				slog.String("path", built),
				slog.Int("segment_index", i),
			)
		default:
			return "", err
		}
	}

	return parentID, nil
}

func (c *Client) rootItemID(ctx context.Context, root urlBuilder) (string, error) {
	var item driveItemResponse
	if err := c.doJSON(ctx, http.MethodGet, root.pathItemURL(""), nil, requestOptions{sign: true, timeout: c.timeouts.Short}, &item); err != nil {
		return "", err
	}

	return item.ID, nil
}

func (c *Client) createFolder(ctx context.Context, root urlBuilder, parentID, name string) (driveItemResponse, error) {
	var created driveItemResponse

	body := createFolderRequest{Name: name, Folder: map[string]any{}}

	err := c.doJSON(ctx, http.MethodPost, root.folderChildrenURL(parentID), body, requestOptions{sign: true, timeout: c.timeouts.Short}, &created)

	return created, err
}

func splitPathSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}
