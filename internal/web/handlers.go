package web

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/hpungsan/vellum/internal/errors"
	"github.com/hpungsan/vellum/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
	metrics  *Metrics
}

// HandleList handles GET /views.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSummaries(r.Context(), h.env, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Views"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleDetail handles GET /views/{name}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
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

	// Newest first.
	rows := make([]VersionRow, 0, len(v.Versions))
	for _, ver := range slices.Backward(v.Versions) {
		rows = append(rows, VersionRow{
			Version:    ver,
			Active:     ver.ID == v.Active.ID,
			PromptHTML: renderMarkdown(ver.Prompt),
			Document:   prettyDocument(ver.Content),
		})
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData:        h.renderer.page(v.Name),
		View:            v,
		DescriptionHTML: renderMarkdown(v.Description),
		Pinned:          v.Pinned(),
		Versions:        rows,
	})
}

// HandleActivateForm handles POST /views/{name}/active from the detail page.
// An empty version_id clears the pin.
func (h *Handlers) HandleActivateForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	name := r.PathValue("name")

	input := ops.ActivateInput{Name: name}
	if id := r.FormValue("version_id"); id != "" {
		input.VersionID = &id
	}
	if _, err := ops.SetActiveVersion(r.Context(), h.env, input); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.metrics.mutation("activate")

	http.Redirect(w, r, viewURL(name), http.StatusSeeOther)
}

// HandleDeleteVersionForm handles POST /views/{name}/versions/{id}/delete.
func (h *Handlers) HandleDeleteVersionForm(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	result, err := ops.DeleteVersion(r.Context(), h.env, ops.DeleteVersionInput{
		Name:      name,
		VersionID: r.PathValue("id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result.Deleted {
		h.metrics.mutation("delete_version")
	}

	if result.ViewRemoved {
		http.Redirect(w, r, "/views", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, viewURL(name), http.StatusSeeOther)
}

// HandleDeleteForm handles POST /views/{name}/delete.
func (h *Handlers) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteView(r.Context(), h.env, ops.DeleteViewInput{Name: r.PathValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result.Deleted {
		h.metrics.mutation("delete_view")
	}

	http.Redirect(w, r, "/views", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func viewURL(name string) string {
	return "/views/" + url.PathEscape(name)
}
