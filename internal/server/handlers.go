package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/entgraph/internal/graph"
	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/search"
	"github.com/roach88/entgraph/internal/store"
)

type insertRecordRequest struct {
	Type string      `json:"type" validate:"required"`
	Data ir.Document `json:"data"`
	ID   string      `json:"id"`
}

type updateRecordRequest struct {
	Data ir.Document `json:"data" validate:"required"`
}

type upsertEdgeRequest struct {
	FromID   string      `json:"from_id" validate:"required"`
	Relation string      `json:"relation" validate:"required"`
	ToID     string      `json:"to_id" validate:"required"`
	Metadata ir.Document `json:"metadata"`
}

type deleteEdgeRequest struct {
	FromID   string `json:"from_id" validate:"required"`
	Relation string `json:"relation" validate:"required"`
	ToID     string `json:"to_id" validate:"required"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

type versionResponse struct {
	Version int `json:"version"`
}

// listRecords handles GET /data?type&limit&offset
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := optionalInt(q, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := optionalInt(q, "offset")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := actorFrom(r).ListRecords(r.Context(), store.ListOptions{
		Type:   q.Get("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, recs)
}

// insertRecord handles POST /data
func (s *Server) insertRecord(w http.ResponseWriter, r *http.Request) {
	var req insertRecordRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := actorFrom(r).InsertRecord(r.Context(), req.Type, req.Data, req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

// getRecord handles GET /data/{id}
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := actorFrom(r).GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// updateRecord handles PATCH /data/{id}
func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRecordRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := actorFrom(r).UpdateRecord(r.Context(), chi.URLParam(r, "id"), req.Data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// deleteRecord handles DELETE /data/{id}
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	deleted, err := actorFrom(r).DeleteRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deletedResponse{Deleted: deleted})
}

// listEdges handles GET /rels?from_id&to_id&relation
func (s *Server) listEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	edges, err := actorFrom(r).ListEdges(r.Context(), store.EdgeFilter{
		FromID:   q.Get("from_id"),
		ToID:     q.Get("to_id"),
		Relation: q.Get("relation"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, edges)
}

// upsertEdge handles POST /rels
func (s *Server) upsertEdge(w http.ResponseWriter, r *http.Request) {
	var req upsertEdgeRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	edge, err := actorFrom(r).UpsertEdge(r.Context(), req.FromID, req.Relation, req.ToID, req.Metadata)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, edge)
}

// deleteEdge handles DELETE /rels/delete
func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	var req deleteEdgeRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := actorFrom(r).DeleteEdge(r.Context(), req.FromID, req.Relation, req.ToID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deletedResponse{Deleted: deleted})
}

// traverse handles GET /traverse?from_id|to_id&relation&type
//
// relation may list several comma-separated labels for a multi-hop walk.
func (s *Server) traverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs, err := actorFrom(r).Traverse(r.Context(), graph.Request{
		FromID:    q.Get("from_id"),
		ToID:      q.Get("to_id"),
		Relations: graph.ParseRelations(q.Get("relation")),
		Type:      q.Get("type"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, recs)
}

// version handles GET /meta/version
func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	v, err := actorFrom(r).Version(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, versionResponse{Version: v})
}

// indexes handles GET /meta/indexes
func (s *Server) indexes(w http.ResponseWriter, r *http.Request) {
	idx, err := actorFrom(r).Indexes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, idx)
}

// queryListGet handles GET /query/list. where is a JSON-encoded object.
func (s *Server) queryListGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := queryir.Request{
		Type:    q.Get("type"),
		OrderBy: q.Get("orderBy"),
		Order:   q.Get("order"),
	}
	if raw := q.Get("where"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Where); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid where: %v", err))
			return
		}
	}
	var err error
	if req.Limit, err = optionalInt(q, "limit"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Offset, err = optionalInt(q, "offset"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runQueryList(w, r, req)
}

// queryListPost handles POST /query/list
func (s *Server) queryListPost(w http.ResponseWriter, r *http.Request) {
	var req queryir.Request
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runQueryList(w, r, req)
}

func (s *Server) runQueryList(w http.ResponseWriter, r *http.Request, req queryir.Request) {
	recs, err := actorFrom(r).QueryList(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, recs)
}

// queryFind handles POST /query/find. No match is a 200 with a null body.
func (s *Server) queryFind(w http.ResponseWriter, r *http.Request) {
	var req queryir.Request
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := actorFrom(r).QueryFind(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// querySearch handles POST /query/search
func (s *Server) querySearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits, err := actorFrom(r).Search(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, hits)
}

// optionalInt parses a non-negative integer query parameter. Absent means nil.
func optionalInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &n, nil
}
