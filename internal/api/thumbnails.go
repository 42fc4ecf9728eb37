package api

import (
	"context"
	"log/slog"

	"sitegen/internal/database"
)

// ObjectStore is the part of storage.Client the API uses.
type ObjectStore interface {
	PresignedURL(ctx context.Context, objectKey string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeleteUserThumbnails(ctx context.Context, userID string) error
}

// resolveThumbnails fills ThumbnailURL from the rendered thumbnail for projects
// that carry no explicit URL. Presign failures leave the field empty.
func resolveThumbnails(ctx context.Context, objects ObjectStore, log *slog.Logger, projects ...*database.Project) {
	if objects == nil {
		return
	}
	for _, p := range projects {
		if p == nil || p.ThumbnailURL != "" || p.ThumbnailKey == "" {
			continue
		}
		url, err := objects.PresignedURL(ctx, p.ThumbnailKey)
		if err != nil {
			log.Warn("presign thumbnail", slog.String("project_id", p.ID), slog.Any("error", err))
			continue
		}
		p.ThumbnailURL = url
	}
}

func projectPointers(projects []database.Project) []*database.Project {
	out := make([]*database.Project, len(projects))
	for i := range projects {
		out[i] = &projects[i]
	}
	return out
}
