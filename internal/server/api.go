package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auditview/internal/featured"
	"auditview/internal/filter"
	"auditview/internal/query"
	"auditview/internal/record"
	"auditview/internal/sysmetrics"
)

// ParamLimit overrides the stored page size for one request.
const ParamLimit = "limit"

// maxBodyBytes bounds request bodies; the API only accepts tiny documents.
const maxBodyBytes = 4 << 10

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/records/{id}", s.handleRecord)
	mux.HandleFunc("GET /api/featured", s.handleFeaturedList)
	mux.HandleFunc("PUT /api/featured/{id}", s.handleFeaturedSet(true))
	mux.HandleFunc("DELETE /api/featured/{id}", s.handleFeaturedSet(false))
	mux.HandleFunc("POST /api/featured/{id}/toggle", s.handleFeaturedToggle)
	mux.HandleFunc("GET /api/settings/page-size", s.handlePageSizeGet)
	mux.HandleFunc("PUT /api/settings/page-size", s.handlePageSizePut)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// RecordView is a record annotated with its featured mark.
type RecordView struct {
	record.Record
	Featured bool `json:"featured"`
}

// PatternErrorView describes a pattern that was ignored.
type PatternErrorView struct {
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
	Error   string `json:"error"`
}

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Status        string             `json:"status"`
	Total         int                `json:"total"`
	Limit         int                `json:"limit"`
	Query         string             `json:"query"`
	Records       []RecordView       `json:"records"`
	PatternErrors []PatternErrorView `json:"pattern_errors,omitempty"`
}

// NewRecordsResponse renders one page of res for state.
func NewRecordsResponse(state query.State, res query.Result, limit int, marks *featured.Set) RecordsResponse {
	resp := RecordsResponse{
		Status:  res.Status.String(),
		Total:   res.Total(),
		Limit:   limit,
		Query:   state.Values().Encode(),
		Records: annotate(res.Page(limit), marks),
	}
	for _, perr := range res.PatternErrors {
		var pe *filter.PatternError
		if errors.As(perr, &pe) {
			resp.PatternErrors = append(resp.PatternErrors, PatternErrorView{
				Field:   pe.Field.String(),
				Pattern: pe.Pattern,
				Error:   pe.Err.Error(),
			})
		}
	}
	return resp
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	state := query.StateFromValues(params)

	limit, err := s.pageSize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state.PageSize = limit

	marks, err := s.prefs.Featured(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := s.Engine().Evaluate(state)
	resp := NewRecordsResponse(state, res, limit, marks)
	writeJSON(w, http.StatusOK, resp)
}

// pageSize is the limit parameter when present, else the stored
// preference.
func (s *Server) pageSize(r *http.Request) (int, error) {
	if raw := r.URL.Query().Get(ParamLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", errBadRequest, raw)
		}
		return n, nil
	}
	return s.prefs.PageSize(r.Context())
}

func annotate(records []record.Record, marks *featured.Set) []RecordView {
	out := make([]RecordView, len(records))
	for i, rec := range records {
		out[i] = RecordView{Record: rec, Featured: marks.Has(rec.ID)}
	}
	return out
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, ok := s.Engine().Record(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Code: "not_found", Message: fmt.Sprintf("record %d not found", id)})
		return
	}
	marks, err := s.prefs.Featured(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordView{Record: rec, Featured: marks.Has(id)})
}

// FeaturedResponse is the body of GET /api/featured. Records holds the
// marked ids that exist in the current dataset, in id order.
type FeaturedResponse struct {
	IDs     []int64      `json:"ids"`
	Records []RecordView `json:"records"`
}

func (s *Server) handleFeaturedList(w http.ResponseWriter, r *http.Request) {
	marks, err := s.prefs.Featured(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	engine := s.Engine()
	resp := FeaturedResponse{IDs: marks.IDs(), Records: []RecordView{}}
	for _, id := range resp.IDs {
		if rec, ok := engine.Record(id); ok {
			resp.Records = append(resp.Records, RecordView{Record: rec, Featured: true})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// FeaturedMark reports the state of one id after a change.
type FeaturedMark struct {
	ID       int64 `json:"id"`
	Featured bool  `json:"featured"`
}

func (s *Server) handleFeaturedSet(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if on {
			err = s.prefs.AddFeatured(r.Context(), id)
		} else {
			err = s.prefs.RemoveFeatured(r.Context(), id)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, FeaturedMark{ID: id, Featured: on})
	}
}

func (s *Server) handleFeaturedToggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	on, err := s.prefs.ToggleFeatured(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FeaturedMark{ID: id, Featured: on})
}

// PageSizeBody is the body of the page-size endpoints.
type PageSizeBody struct {
	PageSize int `json:"page_size"`
}

func (s *Server) handlePageSizeGet(w http.ResponseWriter, r *http.Request) {
	n, err := s.prefs.PageSize(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageSizeBody{PageSize: n})
}

func (s *Server) handlePageSizePut(w http.ResponseWriter, r *http.Request) {
	var body PageSizeBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.prefs.SetPageSize(r.Context(), body.PageSize); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Dataset  query.Stats        `json:"dataset"`
	Featured int                `json:"featured"`
	Process  sysmetrics.Process `json:"process"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	marks, err := s.prefs.Featured(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Dataset:  s.Engine().Stats(),
		Featured: marks.Len(),
		Process:  s.metrics.Sample(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"instance_id": s.instanceID,
	})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid record id %q", errBadRequest, raw)
	}
	return id, nil
}
