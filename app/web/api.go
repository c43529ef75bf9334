package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/go-pkgz/lgr"

	"jobtrack/app/csvcodec"
	"jobtrack/app/scrape"
	"jobtrack/app/store"
)

// APIRecord represents a job record in JSON API responses
type APIRecord struct {
	ID      string    `json:"id"`
	Company string    `json:"company"`
	Role    string    `json:"role"`
	Link    string    `json:"link,omitempty"`
	Notes   string    `json:"notes,omitempty"`
	Applied bool      `json:"applied"`
	Date    time.Time `json:"date,omitzero"`
}

// APIRecordsResponse is the JSON response for /api/v1/records
type APIRecordsResponse struct {
	Records []APIRecord  `json:"records"`
	Totals  store.Totals `json:"totals"`
}

// APIStatusResponse is the JSON response for /api/v1/status
type APIStatusResponse struct {
	Totals    store.Totals `json:"totals"`
	Version   string       `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
}

// APIImportResponse is the JSON response for /api/v1/import
type APIImportResponse struct {
	Imported int          `json:"imported"`
	Totals   store.Totals `json:"totals"`
}

// APIPeekResponse is the JSON response for /api/v1/peek
type APIPeekResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// addRecordRequest is the JSON request body for POST /api/v1/records
type addRecordRequest struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Link    string `json:"link"`
	Notes   string `json:"notes"`
	Applied bool   `json:"applied"`
}

// toAPIRecord converts store.JobRecord to APIRecord
func toAPIRecord(rec store.JobRecord) APIRecord {
	return APIRecord{
		ID:      rec.ID,
		Company: rec.Company,
		Role:    rec.Role,
		Link:    rec.Link,
		Notes:   rec.Notes,
		Applied: rec.Applied,
		Date:    rec.Date,
	}
}

// handleAPIStatus returns JSON totals - designed for CLI/jq consumption
func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	resp := APIStatusResponse{
		Totals:    s.store.Totals(),
		Version:   s.version,
		Timestamp: time.Now(),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPIRecords returns the collection as JSON, honoring search and
// unapplied query params
func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	onlyUnapplied := r.URL.Query().Get("unapplied") == "true"

	records := s.store.Filtered(search, onlyUnapplied)
	apiRecords := make([]APIRecord, 0, len(records))
	for _, rec := range records {
		apiRecords = append(apiRecords, toAPIRecord(rec))
	}

	s.writeJSON(w, http.StatusOK, APIRecordsResponse{Records: apiRecords, Totals: s.store.Totals()})
}

// handleAPIAddRecord adds a record from a JSON body
func (s *Server) handleAPIAddRecord(w http.ResponseWriter, r *http.Request) {
	var req addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, ok := s.store.Add(req.Company, req.Role, req.Link, req.Notes, req.Applied)
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "company and role are required")
		return
	}

	s.writeJSON(w, http.StatusCreated, toAPIRecord(rec))
}

// handleAPIToggleRecord flips the applied flag and returns the updated record
func (s *Server) handleAPIToggleRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.ToggleApplied(id) {
		s.writeJSONError(w, http.StatusNotFound, "record not found")
		return
	}

	for _, rec := range s.store.All() {
		if rec.ID == id {
			s.writeJSON(w, http.StatusOK, toAPIRecord(rec))
			return
		}
	}
	s.writeJSONError(w, http.StatusNotFound, "record not found")
}

// handleAPIDeleteRecord removes a record
func (s *Server) handleAPIDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !s.store.Remove(r.PathValue("id")) {
		s.writeJSONError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAPIClear removes all records
func (s *Server) handleAPIClear(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearAll()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleAPIImport imports records from a raw CSV request body
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	count := s.store.ImportBatch(csvcodec.Parse(string(data)))
	log.Printf("[INFO] imported %d records via API", count)

	s.writeJSON(w, http.StatusOK, APIImportResponse{Imported: count, Totals: s.store.Totals()})
}

// handleAPIPeek fetches the page title of a job posting link
func (s *Server) handleAPIPeek(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("u")
	if rawURL == "" {
		s.writeJSONError(w, http.StatusBadRequest, "u query parameter required")
		return
	}
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeJSONError(w, http.StatusBadRequest, "http(s) URL required")
		return
	}

	title, err := scrape.Title(r.Context(), s.peekClient, rawURL)
	if err != nil {
		log.Printf("[WARN] failed to peek %s: %v", rawURL, err)
		s.writeJSONError(w, http.StatusBadGateway, "failed to fetch page title")
		return
	}

	s.writeJSON(w, http.StatusOK, APIPeekResponse{URL: rawURL, Title: title})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
