package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"pairchat/pkg/api/handlers"
	"pairchat/pkg/auth"
)

// Handler returns the versioned API surface:
//   - POST /v1/users/sync, GET /v1/users, GET /v1/users/{id}
//   - POST /v1/conversations, GET /v1/conversations/{id}, POST /v1/conversations/{id}/read
//   - POST /v1/messages, GET /v1/messages?conversation=<id>, DELETE /v1/messages/{id}
//   - POST /v1/presence, GET /v1/presence/{user}
//   - GET  /v1/sidebar
//   - POST /v1/_sign (backend only)
func Handler() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.RequireSignedCaller)

	handlers.RegisterUsers(v1)
	handlers.RegisterConversations(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterPresence(v1)
	handlers.RegisterSidebar(v1)
	handlers.RegisterSigning(v1)

	return r
}
