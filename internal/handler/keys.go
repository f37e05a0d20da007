package handler

import (
	"net/http"

	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/service"
)

// KeyHandler exposes the root-level key management operations. Every
// endpoint requires a level-127 key; failures look identical to malformed
// requests.
type KeyHandler struct {
	keys *service.KeyStore
}

// NewKeyHandler wires the handler to the key store.
func NewKeyHandler(keys *service.KeyStore) *KeyHandler {
	return &KeyHandler{keys: keys}
}

type keygenRequest struct {
	Key  *string `json:"key"`
	Role *string `json:"role"`
	Lvl  *int16  `json:"lvl"`
}

// Generate handles POST /owner/keygen. The level defaults to 1 when omitted.
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req keygenRequest
	if err := readJSON(r, &req); err != nil || req.Key == nil || req.Role == nil {
		respondInvalidParam(w)
		return
	}

	if !h.keys.CheckLevel(r.Context(), *req.Key, model.RootLevel) {
		respondInvalidParam(w)
		return
	}

	lvl := int16(1)
	if req.Lvl != nil {
		lvl = *req.Lvl
	}

	key, err := h.keys.Generate(r.Context(), lvl, *req.Role)
	if err == service.ErrInvalidLevel || err == service.ErrInvalidRole {
		respondInvalidParam(w)
		return
	}
	if err != nil {
		respondInternalError(w)
		return
	}
	respondOK(w, "key generated", map[string]string{"key": key})
}

type revokeRequest struct {
	Key       *string `json:"key"`
	RevokeKey *string `json:"revokeKey"`
	Role      *string `json:"role"`
}

// Revoke handles POST /owner/keyrevoke, deleting either one key by token or
// every key carrying a role label. Revoking nothing is still a success.
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := readJSON(r, &req); err != nil || req.Key == nil {
		respondInvalidParam(w)
		return
	}
	if req.RevokeKey == nil && req.Role == nil {
		respondInvalidParam(w)
		return
	}

	if !h.keys.CheckLevel(r.Context(), *req.Key, model.RootLevel) {
		respondInvalidParam(w)
		return
	}

	var err error
	if req.RevokeKey != nil {
		err = h.keys.RevokeKey(r.Context(), *req.RevokeKey)
	} else {
		err = h.keys.RevokeRole(r.Context(), *req.Role)
	}
	if err != nil {
		respondInternalError(w)
		return
	}
	respondOK(w, "operation ok", nil)
}

type regenRequest struct {
	Key *string `json:"key"`
}

// Regenerate handles POST /owner/keyregen: the owner-role root key swaps its
// own token for a fresh one.
func (h *KeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req regenRequest
	if err := readJSON(r, &req); err != nil || req.Key == nil {
		respondInvalidParam(w)
		return
	}

	if !h.keys.CheckRoleLevel(r.Context(), *req.Key, model.RoleOwner, model.RootLevel) {
		respondInvalidParam(w)
		return
	}

	key, err := h.keys.Regenerate(r.Context(), *req.Key)
	if err != nil {
		respondInternalError(w)
		return
	}
	respondOK(w, "key regenerated", map[string]string{"key": key})
}
