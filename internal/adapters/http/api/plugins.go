package api

import (
	"net/http"

	"github.com/okian/karmabot/internal/plugin"
)

// PluginLister reports loaded plugins.
type PluginLister interface {
	Descriptors() []plugin.Descriptor
}

// PluginsHandler handles plugin listing requests.
type PluginsHandler struct {
	deps PluginLister
}

// NewPluginsHandler creates a new plugins handler.
func NewPluginsHandler(deps PluginLister) *PluginsHandler {
	return &PluginsHandler{deps: deps}
}

// HandleList handles GET /plugins requests.
func (h *PluginsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	descs := h.deps.Descriptors()
	if descs == nil {
		descs = []plugin.Descriptor{}
	}
	writeJSON(w, http.StatusOK, descs)
}
