// Package server is the HTTP print agent in front of the dispatcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"label-dispatch/internal/dispatch"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/printer"
)

const maxBodyBytes = 4 << 20

// Dispatcher is the print surface the agent exposes
type Dispatcher interface {
	SendToPairedPrinter(p dispatch.Payload) dispatch.Outcome
	TestPrint(address string) dispatch.Outcome
	AvailablePrinters() []printer.Device
	Encode(p dispatch.Payload) ([]byte, error)
}

type Server struct {
	d   Dispatcher
	mux *http.ServeMux
}

func New(d Dispatcher) *Server {
	s := &Server{d: d, mux: http.NewServeMux()}
	s.mux.HandleFunc("/print", s.handlePrint)
	s.mux.HandleFunc("/encode", s.handleEncode)
	s.mux.HandleFunc("/test-print", s.handleTestPrint)
	s.mux.HandleFunc("/printers", s.handlePrinters)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Print agent listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// PrintRequest is the JSON body of /print and /encode. Template is a
// template document (JSON or YAML in a string).
type PrintRequest struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Template json.RawMessage   `json:"template,omitempty"`
	Context  label.DataContext `json:"context"`

	Item        *label.Item  `json:"item,omitempty"`
	Store       *label.Store `json:"store,omitempty"`
	Format      string       `json:"format,omitempty"`
	IncludeQR   bool         `json:"includeQr,omitempty"`
	IncludeLogo bool         `json:"includeLogo,omitempty"`
	LogoPath    string       `json:"logoPath,omitempty"`
}

// Payload converts the request into a dispatch payload
func (r PrintRequest) Payload() (dispatch.Payload, error) {
	switch r.Type {
	case "text":
		return dispatch.Text{Content: r.Text}, nil
	case "template":
		if len(r.Template) == 0 {
			return nil, errors.New("template is required")
		}
		doc := []byte(r.Template)
		var s string
		if json.Unmarshal(r.Template, &s) == nil {
			doc = []byte(s)
		}
		t, elements, err := label.ParseTemplate(doc)
		if err != nil {
			return nil, err
		}
		return dispatch.TemplateJob{Template: t, Elements: elements, Context: r.Context}, nil
	case "item":
		if r.Item == nil {
			return nil, errors.New("item is required")
		}
		return dispatch.ItemLabel{
			Item:        *r.Item,
			Store:       r.Store,
			Format:      r.Format,
			IncludeQR:   r.IncludeQR,
			IncludeLogo: r.IncludeLogo,
			LogoPath:    r.LogoPath,
		}, nil
	}
	return nil, fmt.Errorf("unknown payload type %q", r.Type)
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	out := s.d.SendToPairedPrinter(p)
	writeJSON(w, outcomeStatus(out), out)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	data, err := s.d.Encode(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) handleTestPrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}
	logger.Info("Test print via API", zap.String("address", req.Address))
	out := s.d.TestPrint(req.Address)
	writeJSON(w, outcomeStatus(out), out)
}

func (s *Server) handlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	printers := s.d.AvailablePrinters()
	if printers == nil {
		printers = []printer.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"printers": printers})
}

func decodePayload(w http.ResponseWriter, r *http.Request) (dispatch.Payload, bool) {
	var req PrintRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return nil, false
	}
	p, err := req.Payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return p, true
}

func outcomeStatus(o dispatch.Outcome) int {
	switch o.Kind {
	case dispatch.Success:
		return http.StatusOK
	case dispatch.BluetoothDisabled:
		return http.StatusServiceUnavailable
	case dispatch.NoPairedPrinter:
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
