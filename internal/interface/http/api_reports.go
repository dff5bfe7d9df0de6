package http

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/internal/infrastructure/export"
	"github.com/lhtc/classpoint/internal/infrastructure/importer"
	"github.com/lhtc/classpoint/internal/interface/http/handlers"
	"github.com/lhtc/classpoint/pkg/logger"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, handlers.HealthStatus{
			Healthy:   true,
			Message:   "OK",
			Uptime:    s.Uptime().Round(time.Second).String(),
			Timestamp: timeutil.Now().UTC(),
			Version:   s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleLive handles GET /live
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleLeaderboard handles GET /api/v1/leaderboard?class_id=&period=&limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.leaderboard(r)
	if err != nil {
		s.writeError(w, r, "Leaderboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) leaderboard(r *http.Request) (*query.LeaderboardResult, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return nil, err
	}
	period := r.URL.Query().Get("period")
	if period != "" && period != query.PeriodAll && !s.featureOn(config.FeatureLeaderboardPeriods) {
		return nil, shared.Invalid("http", "Leaderboard", "period leaderboards are disabled")
	}
	return s.deps.Leaderboard.Handle(r.Context(), query.LeaderboardQuery{
		ClassID: r.URL.Query().Get("class_id"),
		Limit:   limit,
		Period:  period,
	})
}

// handleStatistics handles GET /api/v1/statistics?class_id=
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Statistics.Handle(r.Context(), query.ClassStatisticsQuery{
		ClassID: r.URL.Query().Get("class_id"),
	})
	if err != nil {
		s.writeError(w, r, "Statistics", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ──────────────────────────────────────────────────────────────────────────────
// CSV export
// ──────────────────────────────────────────────────────────────────────────────

// handleExportRoster handles GET /api/v1/export/roster?class_id=
// Students are listed by roster order.
func (s *Server) handleExportRoster(w http.ResponseWriter, r *http.Request) {
	if !s.featureOn(config.FeatureExport) {
		writeFeatureDisabled(w, r, config.FeatureExport)
		return
	}

	state, err := s.deps.State.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, "ExportRoster", err)
		return
	}
	class := state.ActiveClass()
	if id := r.URL.Query().Get("class_id"); id != "" {
		if class, err = state.FindClass(id); err != nil {
			s.writeError(w, r, "ExportRoster", err)
			return
		}
	}

	students := state.StudentsInClass(class.ID)
	query.SortStudents(students, query.SortByOrder, query.SortAsc)

	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, class.Name, students); err != nil {
		s.writeError(w, r, "ExportRoster", err)
		return
	}
	s.writeCSV(w, "roster", class, buf.Bytes())
}

// handleExportLeaderboard handles GET /api/v1/export/leaderboard?class_id=&period=&limit=
func (s *Server) handleExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.featureOn(config.FeatureExport) {
		writeFeatureDisabled(w, r, config.FeatureExport)
		return
	}

	res, err := s.leaderboard(r)
	if err != nil {
		s.writeError(w, r, "ExportLeaderboard", err)
		return
	}

	rows := make([]export.LeaderboardRow, 0, len(res.Entries))
	for _, e := range res.Entries {
		level, _ := student.ParseLevel(e.Level)
		rows = append(rows, export.LeaderboardRow{
			Rank:      e.Rank,
			StudentID: e.StudentID,
			Name:      e.Name,
			Points:    e.Score,
			Level:     level,
		})
	}

	var buf bytes.Buffer
	if err := export.WriteLeaderboard(&buf, rows); err != nil {
		s.writeError(w, r, "ExportLeaderboard", err)
		return
	}
	s.writeCSV(w, "leaderboard", classroom.ClassGroup{ID: res.ClassID, Name: res.ClassName}, buf.Bytes())
}

func (s *Server) writeCSV(w http.ResponseWriter, kind string, class classroom.ClassGroup, data []byte) {
	name := export.FileName(kind, timeutil.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("export write failed", logger.String("kind", kind), logger.ClassID(class.ID), logger.Err(err))
	}
}

func writeFeatureDisabled(w http.ResponseWriter, r *http.Request, feature string) {
	writeJSONError(w, r, http.StatusForbidden, "feature_disabled", "Feature "+feature+" is disabled", nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER IMPORT
// ══════════════════════════════════════════════════════════════════════════════

type importResponse struct {
	Imported int                `json:"imported"`
	Students []query.StudentDTO `json:"students"`
}

// handleImport handles POST /api/v1/import?class_id=&format=
// The body is a YAML, JSON or CSV roster. Without ?format the Content-Type
// decides.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.featureOn(config.FeatureImport) {
		writeFeatureDisabled(w, r, config.FeatureImport)
		return
	}

	format, err := importFormat(r)
	if err != nil {
		s.writeError(w, r, "ImportStudents", err)
		return
	}
	if s.config.MaxImportBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxImportBytes)
	}

	roster, err := importer.Parse(r.Body, format)
	if err != nil {
		s.writeError(w, r, "ImportStudents", err)
		return
	}

	created, err := s.deps.Students.Import(r.Context(), command.ImportStudentsCommand{
		ClassID: r.URL.Query().Get("class_id"),
		Records: roster.Records(),
	})
	if err != nil {
		s.writeError(w, r, "ImportStudents", err)
		return
	}

	out := importResponse{Imported: len(created), Students: make([]query.StudentDTO, 0, len(created))}
	for _, st := range created {
		out.Students = append(out.Students, query.NewStudentDTO(st))
	}
	writeJSON(w, r, http.StatusCreated, out)
}

func importFormat(r *http.Request) (importer.Format, error) {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		switch importer.Format(f) {
		case importer.FormatYAML, importer.FormatJSON, importer.FormatCSV:
			return importer.Format(f), nil
		case "yml":
			return importer.FormatYAML, nil
		}
		return "", shared.Invalid("http", "ImportStudents", "format must be yaml, json or csv")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		return importer.FormatCSV, nil
	case "application/json":
		return importer.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return importer.FormatYAML, nil
	}
	return "", shared.Invalid("http", "ImportStudents", "set ?format or a roster Content-Type")
}

// ──────────────────────────────────────────────────────────────────────────────
// Storage
// ──────────────────────────────────────────────────────────────────────────────

// RecoverDTO reports a snapshot recovery.
type RecoverDTO struct {
	Recovered bool     `json:"recovered"`
	BackupID  string   `json:"backup_id,omitempty"`
	Problems  []string `json:"problems,omitempty"`
	Students  int      `json:"students"`
	Classes   int      `json:"classes"`
}

// handleRecoverSnapshot handles POST /api/v1/snapshot/recover?confirm=yes
func (s *Server) handleRecoverSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r, "confirm"); err != nil {
		s.writeError(w, r, "RecoverSnapshot", err)
		return
	}
	res, err := s.deps.Recovery.Recover(r.Context())
	if err != nil {
		s.writeError(w, r, "RecoverSnapshot", err)
		return
	}
	if res.Recovered {
		s.logger.Warn("snapshot recovered through the API",
			logger.String("backup_id", res.BackupID),
			logger.String("user", handlers.UserFromContext(r.Context())),
		)
	}
	writeJSON(w, r, http.StatusOK, RecoverDTO{
		Recovered: res.Recovered,
		BackupID:  res.BackupID,
		Problems:  res.Problems,
		Students:  len(res.State.Students),
		Classes:   len(res.State.Classes),
	})
}
