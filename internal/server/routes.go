package server

import (
	"errors"
	"net/http"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

func (h *Handler) listWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.backend.Watchlist().List(userID)
	if err != nil {
		h.fail(w, err, "Failed to fetch watchlist")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) addWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	var d types.WatchlistDraft
	if err := decode(w, r, &d); err != nil {
		h.fail(w, err, "Failed to add to watchlist")
		return
	}
	if types.NormalizeCoinID(d.CoinID) == "" {
		writeError(w, http.StatusBadRequest, "coinId is required")
		return
	}
	item, err := h.backend.Watchlist().Add(userID, d)
	if errors.Is(err, types.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "Coin already in watchlist")
		return
	}
	if err != nil {
		h.fail(w, err, "Failed to add to watchlist")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) updateWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	id, patch, err := decodePatch(w, r)
	if err != nil {
		h.fail(w, err, "Failed to update watchlist")
		return
	}
	if err := h.backend.Watchlist().Update(userID, id, patch); err != nil {
		h.fail(w, err, "Failed to update watchlist")
		return
	}
	writeSuccess(w)
}

func (h *Handler) removeWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	coinID := r.URL.Query().Get("coinId")
	if types.NormalizeCoinID(coinID) == "" {
		writeError(w, http.StatusBadRequest, "coinId is required")
		return
	}
	if err := h.backend.Watchlist().Remove(userID, coinID); err != nil {
		h.fail(w, err, "Failed to remove from watchlist")
		return
	}
	writeSuccess(w)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request, userID string) {
	alerts, err := h.backend.Alerts().List(userID)
	if err != nil {
		h.fail(w, err, "Failed to fetch alerts")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request, userID string) {
	var d types.AlertDraft
	if err := decode(w, r, &d); err != nil {
		h.fail(w, err, "Failed to create alert")
		return
	}
	a, err := h.backend.Alerts().Create(userID, d)
	if err != nil {
		h.fail(w, err, "Failed to create alert")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) updateAlert(w http.ResponseWriter, r *http.Request, userID string) {
	id, patch, err := decodePatch(w, r)
	if err != nil {
		if errors.Is(err, types.ErrInvalidID) {
			writeError(w, http.StatusBadRequest, "Alert ID is required")
			return
		}
		h.fail(w, err, "Failed to update alert")
		return
	}
	if err := h.backend.Alerts().Update(userID, id, patch); err != nil {
		h.fail(w, err, "Failed to update alert")
		return
	}
	writeSuccess(w)
}

func (h *Handler) removeAlert(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Alert ID is required")
		return
	}
	if err := h.backend.Alerts().Remove(userID, id); err != nil {
		h.fail(w, err, "Failed to delete alert")
		return
	}
	writeSuccess(w)
}
