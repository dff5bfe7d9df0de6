package http

import (
	"net/http"

	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/classroom"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type classNameRequest struct {
	Name string `json:"name"`
}

type clearClassResponse struct {
	Class   query.ClassDTO `json:"class"`
	Removed int            `json:"removed"`
}

func classDTO(c classroom.ClassGroup) query.ClassDTO {
	return query.ClassDTO{ID: c.ID, Name: c.Name}
}

// handleListClasses handles GET /api/v1/classes
func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListClasses.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, "ListClasses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCreateClass handles POST /api/v1/classes
func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req classNameRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "CreateClass", err)
		return
	}
	c, err := s.deps.Classes.Create(r.Context(), command.CreateClassCommand{Name: req.Name})
	if err != nil {
		s.writeError(w, r, "CreateClass", err)
		return
	}
	dto := classDTO(c)
	dto.Active = true
	writeJSON(w, r, http.StatusCreated, dto)
}

// handleRenameClass handles PUT /api/v1/classes/{id}
func (s *Server) handleRenameClass(w http.ResponseWriter, r *http.Request) {
	var req classNameRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "RenameClass", err)
		return
	}
	c, err := s.deps.Classes.Rename(r.Context(), command.RenameClassCommand{ClassID: r.PathValue("id"), Name: req.Name})
	if err != nil {
		s.writeError(w, r, "RenameClass", err)
		return
	}
	writeJSON(w, r, http.StatusOK, classDTO(c))
}

// handleDeleteClass handles DELETE /api/v1/classes/{id}?confirm=yes
func (s *Server) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r, "confirm"); err != nil {
		s.writeError(w, r, "DeleteClass", err)
		return
	}
	c, err := s.deps.Classes.Delete(r.Context(), command.ClassIDCommand{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, "DeleteClass", err)
		return
	}
	writeJSON(w, r, http.StatusOK, classDTO(c))
}

// handleSelectClass handles POST /api/v1/classes/{id}/select
func (s *Server) handleSelectClass(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Classes.Select(r.Context(), command.ClassIDCommand{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, "SelectClass", err)
		return
	}
	dto := classDTO(c)
	dto.Active = true
	writeJSON(w, r, http.StatusOK, dto)
}

// handleClearClass handles POST /api/v1/classes/{id}/clear?confirm=yes&confirm_again=yes
func (s *Server) handleClearClass(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r, "confirm", "confirm_again"); err != nil {
		s.writeError(w, r, "ClearClass", err)
		return
	}
	res, err := s.deps.Classes.Clear(r.Context(), command.ClassIDCommand{ClassID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, "ClearClass", err)
		return
	}
	writeJSON(w, r, http.StatusOK, clearClassResponse{Class: classDTO(res.Class), Removed: res.Removed})
}
