package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"jobtrack/app/csvcodec"
	"jobtrack/app/web/enums"
)

// handleDashboard renders the main dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := s.newTemplateData(r)
	data.Records = s.store.Filtered("", data.FilterMode == enums.FilterModeUnapplied)
	data.Totals = s.store.Totals()
	data.CurrentYear = time.Now().Year()

	s.render(w, "base.html", "base", data)
}

// handleRecordsPartial returns the records list partial for HTMX requests
func (s *Server) handleRecordsPartial(w http.ResponseWriter, r *http.Request) {
	data := s.recordsData(r)
	data.IsOOB = true // enable OOB for stats updates

	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records partial: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// recordsData builds the template data for the records partial, applying
// the search term and the cookie-selected filter
func (s *Server) recordsData(r *http.Request) TemplateData {
	data := s.newTemplateData(r)
	data.Search = r.FormValue("search")
	data.Records = s.store.Filtered(data.Search, data.FilterMode == enums.FilterModeUnapplied)
	data.Totals = s.store.Totals()
	return data
}

// renderRecordsWithStats renders the records template with OOB stats updates
func (s *Server) renderRecordsWithStats(w http.ResponseWriter, data TemplateData) error {
	tmpl, ok := s.templates["partials/records.html"]
	if !ok {
		return fmt.Errorf("partials template not found")
	}

	var recordsHTML bytes.Buffer
	if err := tmpl.ExecuteTemplate(&recordsHTML, "records", data); err != nil {
		return fmt.Errorf("failed to render records template: %w", err)
	}

	var statsHTML bytes.Buffer
	if data.IsOOB {
		if err := tmpl.ExecuteTemplate(&statsHTML, "stats-updates", data); err != nil {
			return fmt.Errorf("failed to render stats updates: %w", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(recordsHTML.Bytes()); err != nil {
		log.Printf("[ERROR] failed to write records HTML: %v", err)
	}
	if statsHTML.Len() > 0 {
		if _, err := w.Write(statsHTML.Bytes()); err != nil {
			log.Printf("[ERROR] failed to write stats HTML: %v", err)
		}
	}
	return nil
}

// handleAddRecord adds a record from the dashboard form. Invalid submissions
// are dropped without an error, the re-rendered list makes the outcome visible.
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.store.Add(r.FormValue("company"), r.FormValue("role"), r.FormValue("link"),
		r.FormValue("notes"), r.FormValue("applied") != ""); !ok {
		log.Printf("[WARN] record submission dropped, company and role are required")
	}

	data := s.recordsData(r)
	data.IsOOB = true
	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records after add: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleToggleRecord flips the applied flag of a record
func (s *Server) handleToggleRecord(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); !s.store.ToggleApplied(id) {
		log.Printf("[WARN] toggle ignored, no record %s", id)
	}

	data := s.recordsData(r)
	data.IsOOB = true
	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records after toggle: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleDeleteRecord removes a record
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); !s.store.Remove(id) {
		log.Printf("[WARN] delete ignored, no record %s", id)
	}

	data := s.recordsData(r)
	data.IsOOB = true
	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records after delete: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleClear removes all records
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAll()

	data := s.recordsData(r)
	data.IsOOB = true
	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records after clear: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleImport imports records from an uploaded CSV file
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		log.Printf("[WARN] import without file: %v", err)
		http.Error(w, "CSV file required", http.StatusBadRequest)
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[WARN] failed to read import file: %v", err)
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	count := s.store.ImportBatch(csvcodec.Parse(string(data)))
	log.Printf("[INFO] imported %d records", count)

	tmplData := s.recordsData(r)
	tmplData.IsOOB = true
	if err := s.renderRecordsWithStats(w, tmplData); err != nil {
		log.Printf("[ERROR] failed to render records after import: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleFilterToggle flips between showing all records and unapplied only
func (s *Server) handleFilterToggle(w http.ResponseWriter, r *http.Request) {
	newMode := enums.FilterModeUnapplied
	if s.getFilterMode(r) == enums.FilterModeUnapplied {
		newMode = enums.FilterModeAll
	}
	s.setFilterCookie(w, newMode)

	data := s.newTemplateData(r)
	data.FilterMode = newMode
	data.Search = r.FormValue("search")
	data.Records = s.store.Filtered(data.Search, newMode == enums.FilterModeUnapplied)
	data.Totals = s.store.Totals()
	data.IsOOB = true

	if err := s.renderRecordsWithStats(w, data); err != nil {
		log.Printf("[ERROR] failed to render records after filter toggle: %v", err)
		http.Error(w, "Failed to render records", http.StatusInternalServerError)
	}
}

// handleThemeToggle flips between dark and light themes
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	newTheme := enums.ThemeLight
	if s.getTheme(r) == enums.ThemeLight {
		newTheme = enums.ThemeDark
	}
	s.setThemeCookie(w, newTheme)

	// the client script flips the css class, a full refresh follows on next load
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(newTheme.String())); err != nil {
		log.Printf("[WARN] failed to write theme response: %v", err)
	}
}

// handleExport streams the full collection as a CSV download
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	name := fmt.Sprintf("job-tracker-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	records := s.store.All()
	if _, err := w.Write([]byte(csvcodec.Serialize(records))); err != nil {
		log.Printf("[WARN] failed to write export: %v", err)
	}
	log.Printf("[INFO] exported %d records", len(records))
}
