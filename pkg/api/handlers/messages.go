package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pairchat/pkg/errs"
	"pairchat/pkg/ledger"
	"pairchat/pkg/logger"
	"pairchat/pkg/store"
	"pairchat/pkg/utils"
)

// RegisterMessages registers all message-related HTTP routes to the
// provided router.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/messages", sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", deleteMessage).Methods(http.MethodDelete)
}

// sendMessage handles POST /messages. The sender defaults to the caller;
// frontend keys may not send as anyone else.
func sendMessage(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	var body struct {
		Conversation string `json:"conversation"`
		Sender       string `json:"sender"`
		Body         string `json:"body"`
		ReplyTo      string `json:"reply_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Sender == "" {
		body.Sender = callerID
	}
	if role := r.Header.Get("X-Role-Name"); role == "frontend" && body.Sender != callerID {
		utils.JSONError(w, http.StatusForbidden, "frontend callers may only send as themselves")
		return
	}

	c, err := store.GetConversation(body.Conversation)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeDomainError(w, err)
		return
	}
	if !c.HasParticipant(body.Sender) {
		utils.JSONError(w, http.StatusForbidden, "sender is not a participant")
		return
	}

	m, err := ledger.Send(body.Conversation, body.Sender, body.Body, body.ReplyTo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	logger.Info("message_created", zap.String("conversation", m.Conversation), zap.String("id", m.ID))
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// listMessages handles GET /messages?conversation=<id>. Only participants
// may read the ledger.
func listMessages(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}

	convID := r.URL.Query().Get("conversation")
	if convID == "" {
		utils.JSONError(w, http.StatusBadRequest, "conversation query parameter required")
		return
	}
	c, err := store.GetConversation(convID)
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

	msgs, err := ledger.List(convID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// deleteMessage handles DELETE /messages/{id}. Soft delete; only the
// sender may delete, and deleting an unknown message succeeds quietly.
func deleteMessage(w http.ResponseWriter, r *http.Request) {
	callerID, _, status, msg := resolveInternalCaller(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if callerID == "" {
		utils.JSONError(w, http.StatusForbidden, "caller has no user record")
		return
	}

	id := mux.Vars(r)["id"]
	if err := ledger.Delete(id, callerID); err != nil {
		writeDomainError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
