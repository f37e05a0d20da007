package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/modledger/modledger/internal/identity"
	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/service"
	"github.com/modledger/modledger/internal/store"
)

// ModerationHandler exposes status queries and moderation operations. It is
// a thin boundary: it parses requests, authorizes through the key store,
// resolves external tokens when needed, and delegates to the ledger.
type ModerationHandler struct {
	ledger   *service.Ledger
	keys     *service.KeyStore
	resolver *identity.Resolver
}

// NewModerationHandler wires the handler to its collaborators.
func NewModerationHandler(ledger *service.Ledger, keys *service.KeyStore, resolver *identity.Resolver) *ModerationHandler {
	return &ModerationHandler{ledger: ledger, keys: keys, resolver: resolver}
}

// userOrNeutral loads the cached user, mapping "never seen" to the neutral
// state. Absence is a valid query result, not a failure.
func (h *ModerationHandler) userOrNeutral(ctx context.Context, uid int64) (*model.User, error) {
	u, err := h.ledger.User(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return &model.User{UID: uid, Status: model.StatusNone}, nil
	}
	return u, err
}

func (h *ModerationHandler) writeStatus(w http.ResponseWriter, u *model.User) {
	data := model.StatusData{UID: u.UID, Status: u.Status.Int()}
	if u.Status != model.StatusNone && u.LastReason != nil {
		data.Reason = *u.LastReason
	}
	respondOK(w, "query ok", data)
}

// QueryStatusByUID handles GET /query/status/uid/{uid}.
func (h *ModerationHandler) QueryStatusByUID(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		respondInvalidParam(w)
		return
	}

	u, err := h.userOrNeutral(r.Context(), uid)
	if err != nil {
		respondInternalError(w)
		return
	}
	h.writeStatus(w, u)
}

// QueryStatusByKey handles GET /query/status/key/{key}, resolving the
// external access token to a uid first. An unresolved identity is
// indistinguishable from a malformed request.
func (h *ModerationHandler) QueryStatusByKey(w http.ResponseWriter, r *http.Request) {
	uid, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondInvalidParam(w)
		return
	}

	u, err := h.userOrNeutral(r.Context(), uid)
	if err != nil {
		respondInternalError(w)
		return
	}
	h.writeStatus(w, u)
}

// QueryTimesByUID handles GET /query/times/uid/{uid}.
func (h *ModerationHandler) QueryTimesByUID(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		respondInvalidParam(w)
		return
	}
	h.writeTimes(w, r, uid)
}

// QueryTimesByKey handles GET /query/times/key/{key}.
func (h *ModerationHandler) QueryTimesByKey(w http.ResponseWriter, r *http.Request) {
	uid, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondInvalidParam(w)
		return
	}
	h.writeTimes(w, r, uid)
}

func (h *ModerationHandler) writeTimes(w http.ResponseWriter, r *http.Request, uid int64) {
	times, err := h.ledger.CountDenylists(r.Context(), uid)
	if err != nil {
		respondInternalError(w)
		return
	}
	respondOK(w, "query ok", map[string]int64{"denyTimes": times})
}

type opRequest struct {
	UID    *int64  `json:"uid"`
	Key    *string `json:"key"`
	Reason *string `json:"reason"`
}

// SetStatus returns the handler for a moderation operation with the status
// baked in, backing POST /admin/deny, /admin/allow, and /admin/clear. The
// acting role recorded in the audit trail is the role of the presented key.
func (h *ModerationHandler) SetStatus(op model.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req opRequest
		if err := readJSON(r, &req); err != nil || req.UID == nil || req.Key == nil || req.Reason == nil {
			respondInvalidParam(w)
			return
		}

		role, err := h.keys.Role(r.Context(), *req.Key)
		if err != nil {
			respondInvalidParam(w)
			return
		}

		if err := h.ledger.SetStatus(r.Context(), *req.UID, op, role, *req.Reason); err != nil {
			respondInternalError(w)
			return
		}
		respondOK(w, "operation ok", nil)
	}
}

type auditRequest struct {
	UID *int64  `json:"uid"`
	Key *string `json:"key"`
}

// LastReason handles POST /admin/last, returning the most recent audit entry
// for a uid. Requires any valid admin key.
func (h *ModerationHandler) LastReason(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := readJSON(r, &req); err != nil || req.UID == nil || req.Key == nil {
		respondInvalidParam(w)
		return
	}

	if !h.keys.CheckLevel(r.Context(), *req.Key, model.MinLevel) {
		respondInvalidParam(w)
		return
	}

	reason, err := h.ledger.LastReason(r.Context(), *req.UID)
	if errors.Is(err, store.ErrNotFound) {
		respondOK(w, "no result", nil)
		return
	}
	if err != nil {
		respondInternalError(w)
		return
	}

	respondOK(w, "query ok", model.LastReasonData{
		Status:    reason.Op.Int(),
		OpRole:    reason.OpRole,
		Reason:    reason.Reason,
		Timestamp: reason.OpTime,
	})
}

type statisticsRequest struct {
	Key *string `json:"key"`
}

// Statistics handles POST /admin/statistics with point-in-time counts of
// users per status. Requires any valid admin key.
func (h *ModerationHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if err := readJSON(r, &req); err != nil || req.Key == nil {
		respondInvalidParam(w)
		return
	}

	if !h.keys.CheckLevel(r.Context(), *req.Key, model.MinLevel) {
		respondInvalidParam(w)
		return
	}

	deny, err := h.ledger.CountByStatus(r.Context(), model.StatusDenylisted)
	if err != nil {
		respondInternalError(w)
		return
	}
	allow, err := h.ledger.CountByStatus(r.Context(), model.StatusAllowlisted)
	if err != nil {
		respondInternalError(w)
		return
	}

	respondOK(w, "query ok", model.StatisticsData{DenyCount: deny, AllowCount: allow})
}
