// Package api exposes the order commands and queries over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nsridhar76/go-orderflow/internal/domain"
	"github.com/nsridhar76/go-orderflow/internal/service"
)

// traceHeader carries the caller's trace id; a fresh one is minted when the
// header is absent.
const traceHeader = "X-Trace-Id"

// Server holds the HTTP handlers over the order service.
type Server struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", s.handleCreateOrder)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", s.handleGetOrder)
			r.Get("/history", s.handleHistory)
			r.Post("/approve", s.handleApproveOrder)
			r.Post("/ship", s.handleShipOrder)
			r.Post("/payment-capture", s.handleCapturePayment)
		})
	})
	return r
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.CreateOrderCommand
	if !s.decode(w, r, &cmd) {
		return
	}
	result, err := s.svc.CreateOrder(r.Context(), traceID(r), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleApproveOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.ApproveOrderCommand
	if !s.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "orderID")
	result, err := s.svc.ApproveOrder(r.Context(), traceID(r), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShipOrder(w http.ResponseWriter, r *http.Request) {
	var cmd service.ShipOrderCommand
	if !s.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "orderID")
	if cmd.Carrier == "" || cmd.TrackingNumber == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "carrier and trackingNumber are required"})
		return
	}
	result, err := s.svc.ShipOrder(r.Context(), traceID(r), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCapturePayment(w http.ResponseWriter, r *http.Request) {
	var cmd service.CapturePaymentCommand
	if !s.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "orderID")
	result, err := s.svc.CapturePayment(r.Context(), traceID(r), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, version, err := s.svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderResponse{Order: order, Version: version})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.History(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{History: records})
}

type orderResponse struct {
	Order   domain.Order `json:"order"`
	Version int64        `json:"version"`
}

type historyResponse struct {
	History []domain.TransitionRecord `json:"history"`
}

type errorBody struct {
	Error string `json:"error"`
}

func traceID(r *http.Request) string {
	if id := r.Header.Get(traceHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps the domain error taxonomy onto HTTP statuses. A publish
// failure maps to 502: the transition committed but the events did not make
// it to the transport.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPublishFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
