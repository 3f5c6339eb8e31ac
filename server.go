package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/device"
	"i4.energy/across/ltem/geo"
	"i4.energy/across/ltem/info"
	"i4.energy/across/ltem/network"
)

// Modem is the part of *device.Device the daemon uses.
type Modem interface {
	Invoker() (action.Invoker, error)
	State() device.State
	ReadyState() device.ReadyState
	Level() device.FunctionalLevel
	ModemInfo() device.ModemInfo
	SetModemInfo(device.ModemInfo)
	Reset(ctx context.Context, restart bool) error
}

var _ Modem = (*device.Device)(nil)

// Server handles incoming HTTP requests for interacting with the
// configured modem instance
type Server struct {
	Logger *slog.Logger
	Modem  Modem
	// Lock serializes modem access with the pump and the console
	Lock sync.Locker
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /geofences", s.handleAddGeofence)
	mux.HandleFunc("GET /geofences/{id}", s.handleQueryGeofence)
	mux.HandleFunc("DELETE /geofences/{id}", s.handleDeleteGeofence)
	mux.HandleFunc("GET /modem", s.handleModem)
	mux.HandleFunc("GET /network", s.handleNetwork)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a driver error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, device.ErrNotStarted),
		errors.Is(err, device.ErrDestroyed),
		errors.Is(err, device.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	}
	switch action.CodeOf(err) {
	case action.BadRequest:
		return http.StatusBadRequest
	case action.Timeout:
		return http.StatusGatewayTimeout
	case action.Fatal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Modem operation failed", "op", op, "error", err)
	} else {
		s.Logger.Info("Modem operation rejected", "op", op, "error", err)
	}
	s.sendError(w, err.Error(), status)
}

// invoker locks the modem and returns its invoker. The returned func
// releases the lock.
func (s *Server) invoker() (action.Invoker, func(), error) {
	s.Lock.Lock()
	inv, err := s.Modem.Invoker()
	if err != nil {
		s.Lock.Unlock()
		return nil, nil, err
	}
	return inv, s.Lock.Unlock, nil
}

func geofenceID(r *http.Request) (uint8, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 8)
	if err != nil {
		return 0, errors.New("geofence id must be 0..255")
	}
	return uint8(id), nil
}

// GeofenceRequest is the body of POST /geofences
type GeofenceRequest struct {
	ID    uint8   `json:"id"`
	Shape string  `json:"shape"`
	Mode  int     `json:"mode"`
	Lat1  float64 `json:"lat1"`
	Lon1  float64 `json:"lon1"`
	Lat2  float64 `json:"lat2"`
	Lon2  float64 `json:"lon2"`
	Lat3  float64 `json:"lat3"`
	Lon3  float64 `json:"lon3"`
	Lat4  float64 `json:"lat4"`
	Lon4  float64 `json:"lon4"`
	// Radius is an alias for lat2 on circle-radius fences
	Radius float64 `json:"radius"`
}

func (req GeofenceRequest) geofence() (geo.Geofence, error) {
	shape, err := geo.ParseShape(req.Shape)
	if err != nil {
		return geo.Geofence{}, err
	}
	g := geo.Geofence{
		ID: req.ID, Mode: geo.Mode(req.Mode), Shape: shape,
		Lat1: req.Lat1, Lon1: req.Lon1,
		Lat2: req.Lat2, Lon2: req.Lon2,
		Lat3: req.Lat3, Lon3: req.Lon3,
		Lat4: req.Lat4, Lon4: req.Lon4,
	}
	if shape == geo.CircleRadius && req.Radius != 0 {
		g.Lat2 = req.Radius
	}
	return g, nil
}

// handleAddGeofence creates a geofence on the modem
func (s *Server) handleAddGeofence(w http.ResponseWriter, r *http.Request) {
	var req GeofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := req.geofence()
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, unlock, err := s.invoker()
	if err != nil {
		s.fail(w, "add geofence", err)
		return
	}
	err = geo.Add(r.Context(), inv, g)
	unlock()
	if err != nil {
		s.fail(w, "add geofence", err)
		return
	}

	s.Logger.Info("Geofence added", "id", g.ID, "shape", g.Shape.String())
	s.sendJSON(w, map[string]any{"id": g.ID, "shape": g.Shape.String()}, http.StatusCreated)
}

// handleDeleteGeofence removes a geofence from the modem
func (s *Server) handleDeleteGeofence(w http.ResponseWriter, r *http.Request) {
	id, err := geofenceID(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, unlock, err := s.invoker()
	if err != nil {
		s.fail(w, "delete geofence", err)
		return
	}
	err = geo.Delete(r.Context(), inv, id)
	unlock()
	if err != nil {
		s.fail(w, "delete geofence", err)
		return
	}

	s.Logger.Info("Geofence deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleQueryGeofence reports the position relative to a geofence
func (s *Server) handleQueryGeofence(w http.ResponseWriter, r *http.Request) {
	id, err := geofenceID(r)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, unlock, err := s.invoker()
	if err != nil {
		s.fail(w, "query geofence", err)
		return
	}
	pos, err := geo.Query(r.Context(), inv, id)
	unlock()
	if err != nil {
		s.fail(w, "query geofence", err)
		return
	}

	s.sendJSON(w, map[string]any{"id": id, "position": pos.String()}, http.StatusOK)
}

// ModemResponse is the body of GET /modem
type ModemResponse struct {
	Info device.ModemInfo `json:"info"`
	RSSI *int             `json:"rssi,omitempty"`
	Bars int              `json:"bars"`
}

// handleModem reports the modem identity and signal strength
func (s *Server) handleModem(w http.ResponseWriter, r *http.Request) {
	inv, unlock, err := s.invoker()
	if err != nil {
		s.fail(w, "modem info", err)
		return
	}
	defer unlock()

	m, err := info.Cached(r.Context(), inv, s.Modem)
	if err != nil {
		s.fail(w, "modem info", err)
		return
	}
	resp := ModemResponse{Info: m}
	rssi, err := info.RSSI(r.Context(), inv)
	if err != nil {
		s.fail(w, "signal strength", err)
		return
	}
	if rssi != info.RSSIUnknown {
		resp.RSSI = &rssi
	}
	resp.Bars = info.Bars(rssi, 5)

	s.sendJSON(w, resp, http.StatusOK)
}

// NetworkResponse is the body of GET /network
type NetworkResponse struct {
	Operator     network.OperatorStatus `json:"operator"`
	Registration string                 `json:"registration"`
	Registered   bool                   `json:"registered"`
	Contexts     []network.PDPContext   `json:"contexts"`
}

// handleNetwork reports operator, registration and PDP contexts
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	inv, unlock, err := s.invoker()
	if err != nil {
		s.fail(w, "network status", err)
		return
	}
	defer unlock()

	var resp NetworkResponse
	if resp.Operator, err = network.Operator(r.Context(), inv); err != nil {
		s.fail(w, "operator", err)
		return
	}
	reg, err := network.Registration(r.Context(), inv)
	if err != nil {
		s.fail(w, "registration", err)
		return
	}
	resp.Registration = reg.String()
	resp.Registered = reg.Registered()
	if resp.Contexts, err = network.Contexts(r.Context(), inv); err != nil {
		s.fail(w, "pdp contexts", err)
		return
	}

	s.sendJSON(w, resp, http.StatusOK)
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	State device.State           `json:"state"`
	Ready device.ReadyState      `json:"ready_state"`
	Level device.FunctionalLevel `json:"level"`
}

// handleHealth reports the device lifecycle state
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.Lock.Lock()
	resp := HealthResponse{
		State: s.Modem.State(),
		Ready: s.Modem.ReadyState(),
		Level: s.Modem.Level(),
	}
	s.Lock.Unlock()

	status := http.StatusOK
	if resp.State != device.Running {
		status = http.StatusServiceUnavailable
	}
	s.sendJSON(w, resp, status)
}
