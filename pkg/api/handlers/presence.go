package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pairchat/pkg/presence"
	"pairchat/pkg/utils"
)

// RegisterPresence registers presence HTTP routes to the provided router.
func RegisterPresence(r *mux.Router) {
	r.HandleFunc("/presence", reportPresence).Methods(http.MethodPost)
	r.HandleFunc("/presence/{user}", getPresence).Methods(http.MethodGet)
}

// reportPresence handles POST /presence, the heartbeat. A caller that
// never synced is a silent no-op; the heartbeat path must not fail the UI.
func reportPresence(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	var body struct {
		IsOnline bool   `json:"is_online"`
		TypingIn string `json:"typing_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := presence.Report(callerID, body.IsOnline, body.TypingIn); err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getPresence handles GET /presence/{user}. Responds with null when the
// user has never reported.
func getPresence(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	p, err := presence.Get(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, p)
}
