package handler

import (
	"encoding/json"
	"net/http"

	"bidhouse/internal/bids/service"
	httputil "bidhouse/pkg/http"
	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// BidderIDHeader carries the authenticated bidder identity, set by the API
// gateway after token verification.
const BidderIDHeader = "X-User-ID"

type SubmitBidRequest struct {
	AuctionID   string `json:"auction_id"`
	AmountMinor int64  `json:"amount_minor"`
}

type SubmitBidResponse struct {
	AuctionID string `json:"auction_id"`
	Status    string `json:"status"`
}

type BidHandler struct {
	service service.IntakeService
	log     *logger.Logger
}

func NewBidHandler(service service.IntakeService, log *logger.Logger) *BidHandler {
	return &BidHandler{
		service: service,
		log:     log,
	}
}

// Submit accepts a bid for asynchronous processing. A 202 means the bid was
// enqueued, not that it was recorded.
func (h *BidHandler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req SubmitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Submit", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	bidderID := r.Header.Get(BidderIDHeader)
	if bidderID == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
			Error: "Missing bidder identity",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Submit", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	event := &model.BidEvent{
		AuctionID:   req.AuctionID,
		BidderID:    bidderID,
		AmountMinor: req.AmountMinor,
	}

	if err := h.service.Submit(r.Context(), event); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Submit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteAccepted(w, SubmitBidResponse{
		AuctionID: req.AuctionID,
		Status:    "ENQUEUED",
	}); err != nil {
		h.log.Error("failed to write accepted response", "handler", "Submit", "operation", "WriteAccepted", "error", err)
	}
}

// MyBid returns the caller's settled bid row for an auction.
func (h *BidHandler) MyBid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	auctionID := ps.ByName("id")
	bidderID := r.Header.Get(BidderIDHeader)

	bid, err := h.service.MyBid(r.Context(), auctionID, bidderID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "MyBid", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bid); err != nil {
		h.log.Error("failed to write success response", "handler", "MyBid", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BidHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bids", h.Submit)
	router.GET("/api/v1/bids/auction/:id", h.MyBid)
}
