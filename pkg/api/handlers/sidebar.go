package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"pairchat/pkg/sidebar"
	"pairchat/pkg/telemetry"
	"pairchat/pkg/utils"
)

// RegisterSidebar registers the sidebar feed route to the provided router.
func RegisterSidebar(r *mux.Router) {
	r.HandleFunc("/sidebar", listSidebar).Methods(http.MethodGet)
}

// listSidebar handles GET /sidebar: one entry per other known user with
// conversation, last message, unread count and presence, newest first.
// Requires an authenticated identity; a caller that never synced gets an
// empty feed.
func listSidebar(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "sidebar.list")

	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if callerID == "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"entries": []struct{}{}})
		return
	}

	span := telemetry.StartSpan(r.Context(), "sidebar.compose")
	entries, err := sidebar.ListForUser(callerID)
	span()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
