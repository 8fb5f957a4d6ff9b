package handler

import (
	"context"
	"net/http"

	"bidhouse/internal/auctions/service"
	httputil "bidhouse/pkg/http"
	"bidhouse/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const BidderIDHeader = "X-User-ID"

type WinnerHandler struct {
	service service.WinnerService
	log     *logger.Logger
}

func NewWinnerHandler(service service.WinnerService, log *logger.Logger) *WinnerHandler {
	return &WinnerHandler{
		service: service,
		log:     log,
	}
}

// Prepare seeds the winner negotiation for a flushed auction. It is
// idempotent; re-preparing a running negotiation changes nothing.
func (h *WinnerHandler) Prepare(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	auctionID := ps.ByName("id")

	if err := h.service.PrepareAndOfferFirst(r.Context(), auctionID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Prepare", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WinnerHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.decide(w, r, ps, "Accept", h.service.Accept)
}

func (h *WinnerHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.decide(w, r, ps, "Reject", h.service.Reject)
}

func (h *WinnerHandler) decide(w http.ResponseWriter, r *http.Request, ps httprouter.Params, name string, fn func(ctx context.Context, bidderID, auctionID string) error) {
	auctionID := ps.ByName("id")
	bidderID := r.Header.Get(BidderIDHeader)

	if bidderID == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error: "Missing bidder identity",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", name, "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := fn(r.Context(), bidderID, auctionID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// Result reports the negotiation outcome for a finished auction.
func (h *WinnerHandler) Result(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	auctionID := ps.ByName("id")

	result, err := h.service.Result(r.Context(), auctionID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Result", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Result", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WinnerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/auctions/:id/winner/prepare", h.Prepare)
	router.POST("/api/v1/auctions/:id/winner/accept", h.Accept)
	router.POST("/api/v1/auctions/:id/winner/reject", h.Reject)
	router.GET("/api/v1/auctions/:id/winner", h.Result)
}
