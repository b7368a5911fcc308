package http

import (
	"context"
	"log/slog"
	"net/http"

	"finmirror/internal/domain/tag"
)

type TagService interface {
	GetTags(ctx context.Context) ([]*tag.WithChildren, error)
}

type TagHandler struct {
	tags   TagService
	logger *slog.Logger
}

func NewTagHandler(tags TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: loggerOrDefault(logger)}
}

type TagResponse struct {
	*tag.WithChildren
	Changed int64 `json:"changed"`
}

type ListTagsResponse struct {
	Tags []TagResponse `json:"tags"`
}

// HandleListTags returns every tag with the ids of its direct children.
func (h *TagHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	tags, err := h.tags.GetTags(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := ListTagsResponse{Tags: make([]TagResponse, 0, len(tags))}
	for _, t := range tags {
		response.Tags = append(response.Tags, TagResponse{WithChildren: t, Changed: t.Changed.Unix()})
	}
	writeJSON(w, http.StatusOK, response)
}
