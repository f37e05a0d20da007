package handler

import (
	"encoding/json"
	"net/http"

	"github.com/modledger/modledger/internal/model"
)

// writeJSON serializes v and writes it with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respond writes the standard envelope with matching HTTP status and body code.
func respond(w http.ResponseWriter, code int, msg string, data interface{}) {
	writeJSON(w, code, model.Response{Code: code, Msg: msg, Data: data})
}

func respondOK(w http.ResponseWriter, msg string, data interface{}) {
	respond(w, http.StatusOK, msg, data)
}

// respondInvalidParam is the single outcome for malformed requests, missing
// or under-leveled admin keys, and unresolved identities. Collapsing them is
// deliberate: the response must not reveal which admin keys exist.
func respondInvalidParam(w http.ResponseWriter) {
	respond(w, http.StatusBadRequest, "invalid parameter", nil)
}

func respondInternalError(w http.ResponseWriter) {
	respond(w, http.StatusInternalServerError, "internal error", nil)
}

// readJSON decodes the request body into v, closing the body afterwards.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
