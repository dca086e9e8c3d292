package handlers

import (
	"errors"
	"net/http"

	"pairchat/pkg/auth"
	"pairchat/pkg/directory"
	"pairchat/pkg/errs"
	"pairchat/pkg/utils"
)

// writeDomainError maps domain sentinel errors to HTTP status codes and
// writes the JSON error body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		utils.JSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errs.ErrNotAuthorized):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, errs.ErrInvalidReplyTarget):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// resolveInternalCaller resolves the authenticated caller to the internal
// user id. The returned status is 0 on success; an empty internal id with
// status 0 means the caller is authenticated but has never synced.
func resolveInternalCaller(r *http.Request) (internalID, externalKey string, status int, msg string) {
	external, st, m := auth.ResolveCaller(r)
	if st != 0 {
		return "", "", st, m
	}
	id, err := directory.Resolve(external)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", external, 0, ""
		}
		return "", external, http.StatusInternalServerError, err.Error()
	}
	return id, external, 0, ""
}
