package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pairchat/pkg/auth"
	"pairchat/pkg/directory"
	"pairchat/pkg/errs"
	"pairchat/pkg/logger"
	"pairchat/pkg/store"
	"pairchat/pkg/utils"
)

// RegisterUsers registers all user-related HTTP routes to the provided router.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/users/sync", syncUser).Methods(http.MethodPost)
	r.HandleFunc("/users", listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", getUser).Methods(http.MethodGet)
}

// syncUser handles POST /users/sync. The caller's verified identity must
// match the external key in the body; backend keys may act on behalf of any
// identity by setting X-User-ID.
func syncUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExternalKey string `json:"external_key"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Avatar      string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	body.ExternalKey = strings.TrimSpace(body.ExternalKey)
	if body.ExternalKey == "" {
		utils.JSONError(w, http.StatusBadRequest, "external_key required")
		return
	}

	caller, status, msg := auth.ResolveCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if caller != body.ExternalKey {
		logger.Warn("sync_identity_mismatch", zap.String("caller", caller))
		utils.JSONError(w, http.StatusForbidden, "callers may only sync their own identity")
		return
	}

	id, err := directory.Sync(body.ExternalKey, body.Name, body.Email, body.Avatar)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	u, err := store.GetUser(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

// listUsers handles GET /users: the full directory, used by clients to
// start new conversations.
func listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"users": users})
}

// getUser handles GET /users/{id}.
func getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	u, err := store.GetUser(id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "user not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}
