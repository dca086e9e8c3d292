package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"pairchat/pkg/errs"
	"pairchat/pkg/ledger"
	"pairchat/pkg/registry"
	"pairchat/pkg/store"
	"pairchat/pkg/utils"
)

// RegisterConversations registers all conversation-related HTTP routes to
// the provided router.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations", getOrCreateConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}", getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/read", markConversationRead).Methods(http.MethodPost)
}

// getOrCreateConversation handles POST /conversations. Idempotent: posting
// the same unordered pair always yields the same conversation id.
func getOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	var body struct {
		UserA string `json:"user_a"`
		UserB string `json:"user_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// a frontend caller opening a chat names only the counterpart
	if body.UserA == "" && callerID != "" {
		body.UserA = callerID
	}

	id, err := registry.GetOrCreate(body.UserA, body.UserB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"id": id})
}

// getConversation handles GET /conversations/{id}. Only participants may
// read the record.
func getConversation(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	id := mux.Vars(r)["id"]
	c, err := store.GetConversation(id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	if !c.HasParticipant(callerID) {
		utils.JSONError(w, http.StatusForbidden, "not a participant")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

// markConversationRead handles POST /conversations/{id}/read. Flags every
// message the caller did not send as read. A caller that never synced is a
// silent no-op so the view path never fails the UI.
func markConversationRead(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if callerID == "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	id := mux.Vars(r)["id"]
	if err := ledger.MarkRead(id, callerID); err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
