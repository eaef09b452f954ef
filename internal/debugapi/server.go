// Package debugapi implements the read-only introspection HTTP server of
// spec §4.I: a small set of GET endpoints over the Model Manager's
// registry for external tooling to poll, routed with gorilla/mux the way
// the teacher's embedded server routes its own endpoints.
package debugapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fmigo/fmigo/internal/arch"
	"github.com/fmigo/fmigo/internal/modeldescr"
	"github.com/fmigo/fmigo/internal/modelmanager"
	"github.com/fmigo/fmigo/internal/status"
)

// Server is the debug introspection HTTP server. It holds no state of its
// own beyond a reference to the Model Manager it reports on.
type Server struct {
	manager *modelmanager.Manager
	log     arch.Logger
	router  *mux.Router
}

// New builds a Server backed by manager, routing GET /fmus, GET
// /fmus/{id}, and GET /fmus/{id}/variables.
func New(manager *modelmanager.Manager, log arch.Logger) *Server {
	s := &Server{manager: manager, log: log, router: mux.NewRouter()}
	s.router.HandleFunc("/fmus", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/fmus/{id}", s.handleDescribe).Methods(http.MethodGet)
	s.router.HandleFunc("/fmus/{id}/variables", s.handleVariables).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler, delegating to the mux router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type fmuSummary struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids := s.manager.LoadedIDs()
	summaries := make([]fmuSummary, 0, len(ids))
	for _, id := range ids {
		fmuType, _ := s.manager.GetTypeOfLoaded(id)
		summaries = append(summaries, fmuSummary{ID: id, Variant: fmuType.String()})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

type fmuDescription struct {
	ID                string                   `json:"id"`
	Variant           string                   `json:"variant"`
	FMIVersion        string                   `json:"fmiVersion"`
	GUID              string                   `json:"guid"`
	ContinuousStates  int                      `json:"continuousStates"`
	EventIndicators   int                      `json:"eventIndicators"`
	ProvidesJacobian  bool                     `json:"providesJacobian"`
	VariableCounts    modeldescr.VariableCounts `json:"variableCounts"`
}

func (s *Server) describeLocked(id string) (*modeldescr.ModelDescription, string, bool) {
	fmuType, st := s.manager.GetTypeOfLoaded(id)
	if st != status.OK {
		return nil, "", false
	}
	var desc *modeldescr.ModelDescription
	switch fmuType {
	case modeldescr.ME10:
		if b := s.manager.GetBareFMUv1ME(id); b != nil {
			desc = b.Description()
			b.Release()
		}
	case modeldescr.CS10:
		if b := s.manager.GetBareFMUv1CS(id); b != nil {
			desc = b.Description()
			b.Release()
		}
	default:
		if b := s.manager.GetBareFMUv2(id); b != nil {
			desc = b.Description()
			b.Release()
		}
	}
	if desc == nil {
		return nil, "", false
	}
	return desc, fmuType.String(), true
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	desc, variant, ok := s.describeLocked(id)
	if !ok {
		http.Error(w, "fmu not found", http.StatusNotFound)
		return
	}
	out := fmuDescription{
		ID:               id,
		Variant:          variant,
		FMIVersion:       desc.FMIVersion(),
		GUID:             desc.GUID(),
		ContinuousStates: desc.NumberOfContinuousStates(),
		EventIndicators:  desc.NumberOfEventIndicators(),
		ProvidesJacobian: desc.ProvidesJacobian(),
		VariableCounts:   desc.NumberOfVariablesByType(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	desc, _, ok := s.describeLocked(id)
	if !ok {
		http.Error(w, "fmu not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(desc.GetModelVariables())
}
