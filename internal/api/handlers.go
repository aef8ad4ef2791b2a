// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/wardenhq/warden/internal/binding"
	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// Handler implements the admin endpoints.
type Handler struct {
	players    *player.Registry
	dispatcher *dispatch.Dispatcher
	tunables   *binding.Group
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("encode API response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"players": h.players.Len(),
	})
}

// tunableView is the admin representation of one binding.
type tunableView struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
	Known bool   `json:"known"`
}

func viewOf(v binding.Value) tunableView {
	raw, known := v.Raw()
	return tunableView{
		Name:  v.Name(),
		Type:  v.TypeName(),
		Value: raw,
		Known: known,
	}
}

// ListTunables enumerates every registered binding.
func (h *Handler) ListTunables(w http.ResponseWriter, _ *http.Request) {
	values := h.tunables.List()
	views := make([]tunableView, 0, len(values))
	for _, v := range values {
		views = append(views, viewOf(v))
	}
	respondJSON(w, http.StatusOK, views)
}

// GetTunable returns one binding's current value.
func (h *Handler) GetTunable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := h.tunables.Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown tunable: "+name)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(v))
}

type putTunableRequest struct {
	Value any `json:"value"`
}

// PutTunable writes a binding through SetRaw. A value incompatible with
// the declared type is the caller's error, not a reportable fault.
func (h *Handler) PutTunable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := h.tunables.Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown tunable: "+name)
		return
	}

	var req putTunableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := v.SetRaw(req.Value); err != nil {
		var mismatch *binding.TypeMismatchError
		if errors.As(err, &mismatch) {
			respondError(w, http.StatusBadRequest, mismatch.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewOf(v))
}

// playerView is the admin representation of one connected player.
type playerView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	GameMode player.GameMode  `json:"game_mode"`
	Current  *player.Snapshot `json:"current,omitempty"`
	Previous *player.Snapshot `json:"previous,omitempty"`
}

// ListPlayers returns every connected player with its movement
// snapshots, when the movement payload has been created.
func (h *Handler) ListPlayers(w http.ResponseWriter, _ *http.Request) {
	players := h.players.List()
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		view := playerView{
			ID:       p.ID().String(),
			Name:     p.Name(),
			GameMode: p.GameMode(),
		}
		if payload, ok := p.Data().Get(player.KindMovement); ok {
			if movement, ok := payload.(*player.StateBuffer); ok {
				current, previous := movement.Snapshots()
				view.Current = &current
				view.Previous = &previous
			}
		}
		views = append(views, view)
	}
	respondJSON(w, http.StatusOK, views)
}

// ListExecutors returns the executors registered for a packet kind, in
// tier order.
func (h *Handler) ListExecutors(w http.ResponseWriter, r *http.Request) {
	kind := packet.Kind(r.URL.Query().Get("kind"))
	if !packet.ValidKind(kind) {
		respondError(w, http.StatusBadRequest, "unknown packet kind: "+string(kind))
		return
	}
	ids := h.dispatcher.Registered(kind)
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"kind":      kind,
		"executors": ids,
	})
}
