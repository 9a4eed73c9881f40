package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/hpungsan/vellum/internal/config"
	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
	"github.com/hpungsan/vellum/internal/view"
)

// saveBody is the request body of POST /api/views/{name}/versions.
type saveBody struct {
	Content       view.Document `json:"content"`
	Prompt        string        `json:"prompt,omitempty"`
	Description   *string       `json:"description,omitempty"`
	ParentVersion string        `json:"parent_version,omitempty"`
}

// activateBody is the request body of PUT /api/views/{name}/active.
// A null or absent version_id tracks the latest version.
type activateBody struct {
	VersionID *string `json:"version_id"`
}

// resolveBody is the request body of POST /api/views/{name}/resolve.
type resolveBody struct {
	PinnedVersion string        `json:"pinned_version,omitempty"`
	Override      view.Document `json:"override,omitempty"`
	Fallback      view.Document `json:"fallback,omitempty"`
}

// APIListViews handles GET /api/views.
func (h *Handlers) APIListViews(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSummaries(r.Context(), h.env, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIGetView handles GET /api/views/{name}.
func (h *Handlers) APIGetView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, err := ops.LoadView(r.Context(), h.env, name)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if v == nil {
		h.renderer.renderError(w, r, errors.NewViewNotFound(name))
		return
	}
	renderJSON(w, http.StatusOK, v)
}

// APIDeleteView handles DELETE /api/views/{name}.
func (h *Handlers) APIDeleteView(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteView(r.Context(), h.env, ops.DeleteViewInput{Name: r.PathValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result.Deleted {
		h.metrics.mutation("delete_view")
	}
	renderJSON(w, http.StatusOK, result)
}

// APIGetTree handles GET /api/views/{name}/tree.
func (h *Handlers) APIGetTree(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tree, err := ops.LoadActiveTree(r.Context(), h.env, name)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if tree == nil {
		h.renderer.renderError(w, r, errors.NewViewNotFound(name))
		return
	}
	renderJSON(w, http.StatusOK, tree)
}

// APISaveVersion handles POST /api/views/{name}/versions.
func (h *Handlers) APISaveVersion(w http.ResponseWriter, r *http.Request) {
	var body saveBody
	if err := h.decodeBody(w, r, &body); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	name := r.PathValue("name")
	ver, err := ops.SaveVersion(r.Context(), h.env, ops.SaveInput{
		Name:          name,
		Content:       body.Content,
		Prompt:        body.Prompt,
		Description:   body.Description,
		ParentVersion: body.ParentVersion,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.metrics.mutation("save")

	w.Header().Set("Location", "/api"+viewURL(name)+"/versions/"+ver.ID)
	renderJSON(w, http.StatusCreated, ver)
}

// APIGetVersion handles GET /api/views/{name}/versions/{id}.
func (h *Handlers) APIGetVersion(w http.ResponseWriter, r *http.Request) {
	name, id := r.PathValue("name"), r.PathValue("id")
	ver, err := ops.LoadVersion(r.Context(), h.env, ops.LoadVersionInput{Name: name, VersionID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if ver == nil {
		h.renderer.renderError(w, r, errors.NewVersionNotFound(name, id))
		return
	}
	renderJSON(w, http.StatusOK, ver)
}

// APIDeleteVersion handles DELETE /api/views/{name}/versions/{id}.
func (h *Handlers) APIDeleteVersion(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteVersion(r.Context(), h.env, ops.DeleteVersionInput{
		Name:      r.PathValue("name"),
		VersionID: r.PathValue("id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result.Deleted {
		h.metrics.mutation("delete_version")
	}
	renderJSON(w, http.StatusOK, result)
}

// APISetActive handles PUT /api/views/{name}/active.
func (h *Handlers) APISetActive(w http.ResponseWriter, r *http.Request) {
	var body activateBody
	if err := h.decodeBody(w, r, &body); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.SetActiveVersion(r.Context(), h.env, ops.ActivateInput{
		Name:      r.PathValue("name"),
		VersionID: body.VersionID,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.metrics.mutation("activate")
	renderJSON(w, http.StatusOK, result)
}

// APIResolve handles POST /api/views/{name}/resolve.
func (h *Handlers) APIResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := h.decodeBody(w, r, &body); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	name := r.PathValue("name")
	result, err := ops.ResolveTree(r.Context(), h.env, ops.ResolveInput{
		Name:          name,
		PinnedVersion: body.PinnedVersion,
		Override:      body.Override,
		Fallback:      body.Fallback,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result == nil {
		h.renderer.renderError(w, r, errors.NewViewNotFound(name))
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIHistory handles GET /api/history.
func (h *Handlers) APIHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := ops.History(r.Context(), h.env, ops.HistoryInput{
		View:   q.Get("view"),
		Action: q.Get("action"),
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// decodeBody reads a JSON request body into dst. An empty body leaves dst
// zero; any other body must be sent as application/json. Bodies are capped
// at twice the document limit so a resolve request can carry both an
// override and a fallback.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.ContentLength != 0 {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			return errors.NewInvalidRequest("request body must be application/json")
		}
	}

	limit := int64(config.DefaultMaxDocumentBytes)
	if h.env.Config != nil && h.env.Config.MaxDocumentBytes > 0 {
		limit = int64(h.env.Config.MaxDocumentBytes)
	}
	limit = 2*limit + 64<<10

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
