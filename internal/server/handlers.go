package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/rolegraph"
	"github.com/hyperjump/rolegraph/internal/search"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := models.ValidateStruct(query); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("search request", zap.String("search_term", query.SearchTerm), zap.String("role", query.Role))

	start := time.Now()
	response, err := s.engine.Search(r.Context(), query)
	if s.metrics != nil {
		roleName := query.Role
		if roleName == "" {
			roleName = s.state.Config().SelectedRole
		}
		s.metrics.SearchDuration.WithLabelValues(roleName).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Warn("search failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, search.ErrUnknownRole) || errors.Is(err, models.ErrInvalidQuery) {
			status = http.StatusBadRequest
		}
		s.respondJSON(w, status, response)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type roleGraphNode struct {
	ID    uint64 `json:"id"`
	Label string `json:"label"`
	Rank  uint64 `json:"rank"`
}

type roleGraphEdge struct {
	Source uint64 `json:"source"`
	Target uint64 `json:"target"`
	Rank   uint64 `json:"rank"`
}

type roleGraphResponse struct {
	Status string          `json:"status"`
	Nodes  []roleGraphNode `json:"nodes"`
	Edges  []roleGraphEdge `json:"edges"`
}

func (s *Server) handleRoleGraph(w http.ResponseWriter, r *http.Request) {
	roleName := r.URL.Query().Get("role")
	if roleName == "" {
		roleName = s.state.Config().SelectedRole
	}

	graphSync, ok := s.state.RoleGraph(roleName)
	if !ok {
		s.respondError(w, http.StatusNotFound, "role has no knowledge graph")
		return
	}

	var nodes []roleGraphNode
	var edges []roleGraphEdge
	graphSync.With(func(g *rolegraph.RoleGraph) {
		for _, n := range g.Nodes() {
			label, _ := g.TermForConcept(n.ID)
			nodes = append(nodes, roleGraphNode{ID: uint64(n.ID), Label: label, Rank: n.Rank})
		}
		for _, e := range g.Edges() {
			edges = append(edges, roleGraphEdge{Source: uint64(e.Src), Target: uint64(e.Dst), Rank: e.Weight})
		}
	})

	s.respondJSON(w, http.StatusOK, roleGraphResponse{Status: "Success", Nodes: nodes, Edges: edges})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
