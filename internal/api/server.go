package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/mintmesh/listing-ledger/internal/ledger"
	"go.uber.org/zap"
)

// Server exposes the ledger operations to the host platform over HTTP.
type Server struct {
	registry *ledger.Ledger
}

func NewServer(registry *ledger.Ledger) Server {
	return Server{registry}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/listings", s.handleCreateListing).Methods("POST")
	r.HandleFunc("/listings", s.handleActiveListings).Methods("GET")
	r.HandleFunc("/listings/{listingId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{listingId}/price", s.handleUpdateListing).Methods("PUT")
	r.HandleFunc("/listings/{listingId}/cancel", s.handleCancelListing).Methods("POST")
	r.HandleFunc("/listings/{listingId}/buy", s.handleBuyListing).Methods("POST")
	r.HandleFunc("/purchases/batch", s.handleBuyBatch).Methods("POST")

	r.HandleFunc("/admin/pause", s.handlePause).Methods("POST")
	r.HandleFunc("/admin/unpause", s.handleUnpause).Methods("POST")
	r.HandleFunc("/admin/fee", s.handleSetFee).Methods("PUT")

	return r
}

type createListingRequest struct {
	Seller    string `json:"seller"`
	Contract  string `json:"contract"`
	TokenId   string `json:"tokenId"`
	TokenKind string `json:"tokenKind"`
	UnitPrice uint64 `json:"unitPrice"`
	Quantity  uint64 `json:"quantity"`
}

func (s Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if !decode(w, r, &req) {
		return
	}

	asset := entity.AssetRef{Contract: req.Contract, TokenId: req.TokenId}
	id, err := s.registry.CreateListing(entity.Identity(req.Seller), asset, entity.TokenKind(req.TokenKind), req.UnitPrice, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusCreated, map[string]uint64{"listingId": id})
}

func (s Server) handleActiveListings(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, s.registry.ActiveListings())
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingId(r)
	if err != nil {
		http.Error(w, "Invalid listing id", http.StatusBadRequest)
		return
	}

	listing, err := s.registry.GetListing(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, listing)
}

type updateListingRequest struct {
	Caller   string `json:"caller"`
	NewPrice uint64 `json:"newPrice"`
}

func (s Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingId(r)
	if err != nil {
		http.Error(w, "Invalid listing id", http.StatusBadRequest)
		return
	}

	var req updateListingRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.registry.UpdateListing(id, entity.Identity(req.Caller), req.NewPrice); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

type cancelListingRequest struct {
	Caller string `json:"caller"`
}

func (s Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingId(r)
	if err != nil {
		http.Error(w, "Invalid listing id", http.StatusBadRequest)
		return
	}

	var req cancelListingRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.registry.CancelListing(id, entity.Identity(req.Caller)); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]bool{"ok": true})
}

type buyListingRequest struct {
	Buyer       string `json:"buyer"`
	Quantity    uint64 `json:"quantity"`
	PaymentSent uint64 `json:"paymentSent"`
}

func (s Server) handleBuyListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingId(r)
	if err != nil {
		http.Error(w, "Invalid listing id", http.StatusBadRequest)
		return
	}

	var req buyListingRequest
	if !decode(w, r, &req) {
		return
	}

	receipt, err := s.registry.BuyListing(id, entity.Identity(req.Buyer), req.Quantity, req.PaymentSent)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, receipt)
}

type buyBatchRequest struct {
	Buyer       string   `json:"buyer"`
	ListingIds  []uint64 `json:"listingIds"`
	Quantities  []uint64 `json:"quantities"`
	PaymentSent uint64   `json:"paymentSent"`
}

func (s Server) handleBuyBatch(w http.ResponseWriter, r *http.Request) {
	var req buyBatchRequest
	if !decode(w, r, &req) {
		return
	}

	receipts, err := s.registry.BuyListingsBatch(entity.Identity(req.Buyer), req.ListingIds, req.Quantities, req.PaymentSent)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, receipts)
}

type adminRequest struct {
	Caller string `json:"caller"`
}

func (s Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.registry.Pause(entity.Identity(req.Caller)); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.registry.Unpause(entity.Identity(req.Caller)); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]bool{"paused": false})
}

type setFeeRequest struct {
	Caller   string `json:"caller"`
	FeeBps   uint   `json:"feeBps"`
	Receiver string `json:"receiver"`
}

func (s Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	var req setFeeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.registry.SetFee(entity.Identity(req.Caller), req.FeeBps, entity.Identity(req.Receiver)); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]uint{"feeBps": req.FeeBps})
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func listingId(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["listingId"], 10, 64)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJson(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidListing), errors.Is(err, ledger.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, ledger.ErrSellerCannotBuyOwnListing):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrIncorrectPaymentAmount):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidQuantity), errors.Is(err, ledger.ErrInvalidTokenType), errors.Is(err, ledger.ErrMismatchedInputLengths):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrOperationRejected):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
