package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/tagquery"
)

// TagDependencies defines the tag catalog queries.
type TagDependencies interface {
	TagsForPlanner(tagType string) (tagquery.PlannerTags, error)
	TagDefinition(name string) (model.TagDefinition, error)
}

// TagsHandler handles tag catalog requests.
type TagsHandler struct {
	deps TagDependencies
}

// NewTagsHandler creates a new tags handler.
func NewTagsHandler(deps TagDependencies) *TagsHandler {
	return &TagsHandler{deps: deps}
}

type plannerTagsResponse struct {
	Tags         []model.TagDefinition `json:"tags"`
	Categories   []string              `json:"categories"`
	Orientations []string              `json:"orientations"`
}

// HandleListTags handles GET /tags?type={tag type} requests.
func (h *TagsHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tags"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tagType := strings.TrimSpace(r.URL.Query().Get("type"))
	if tagType == "" {
		respondError(w, WrapKind(op, ErrBadRequest, errors.New("missing type")))
		return
	}
	pt, err := h.deps.TagsForPlanner(tagType)
	if err != nil {
		respondError(w, err)
		return
	}
	tags := pt.Tags
	if tags == nil {
		tags = []model.TagDefinition{}
	}
	writeJSON(w, http.StatusOK, plannerTagsResponse{
		Tags:         tags,
		Categories:   pt.SortedCategories(),
		Orientations: pt.SortedOrientations(),
	})
}

// HandleGetTag handles GET /tags/{full name} requests.
func (h *TagsHandler) HandleGetTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tag"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/tags/")
	if name == "" || strings.Contains(name, "/") {
		respondError(w, NewKind(op, ErrBadRequest))
		return
	}
	def, err := h.deps.TagDefinition(name)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}
