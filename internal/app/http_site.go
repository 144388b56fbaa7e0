package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"storefront/cms/internal/rbac"
	"storefront/cms/internal/store"
)

// =============================================================================
// Pages
// =============================================================================

func (s *HTTPServer) handlePages(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			if !s.allow(w, r, session, rbac.ActionRead) {
				return
			}
			if slug := r.URL.Query().Get("slug"); slug != "" {
				page, err := s.service.GetPageBySlug(r.Context(), slug)
				if err != nil {
					s.fail(w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, page)
				return
			}
			items, err := s.service.ListPages(r.Context())
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
		case http.MethodPost:
			if !s.allow(w, r, session, rbac.ActionWrite) {
				return
			}
			var body CreatePageInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			result, err := s.service.CreatePage(r.Context(), session, body)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, result)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	pageID := rest[0]
	if len(rest) == 1 {
		switch r.Method {
		case http.MethodGet:
			if !s.allow(w, r, session, rbac.ActionRead) {
				return
			}
			page, err := s.service.GetPage(r.Context(), pageID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, page)
		case http.MethodPut:
			if !s.allow(w, r, session, rbac.ActionWrite) {
				return
			}
			var body UpdatePageInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			page, err := s.service.UpdatePage(r.Context(), session, pageID, body)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, page)
		case http.MethodDelete:
			if !s.allow(w, r, session, rbac.ActionWrite) {
				return
			}
			if err := s.service.DeletePage(r.Context(), session, pageID); err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case r.Method == http.MethodPut && len(rest) == 2 && rest[1] == "content":
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		raw, err := readBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.SavePageContent(r.Context(), session, pageID, raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 2 && rest[1] == "sections":
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			SectionID string `json:"sectionId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.SectionID == "" {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "sectionId is required", nil)
			return
		}
		result, err := s.service.InsertSection(r.Context(), session, pageID, body.SectionID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 2 && rest[1] == "detach":
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		result, err := s.service.DetachPage(r.Context(), session, pageID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodGet && len(rest) == 2 && rest[1] == "revisions":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		limit, err := intParam(r.URL.Query().Get("limit"), 50)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
			return
		}
		items, err := s.service.Revisions(r.Context(), pageID, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case r.Method == http.MethodPost && len(rest) == 4 && rest[1] == "revisions" && rest[3] == "restore":
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		result, err := s.service.RestoreRevision(r.Context(), session, pageID, rest[2])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodGet && len(rest) == 2 && rest[1] == "render":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		res, warnings, err := s.service.RenderPage(r.Context(), session, pageID, r.URL.Query().Get("format"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		disposition := "inline"
		if res.MimeType == "application/pdf" {
			disposition = "attachment"
		}
		w.Header().Set("Content-Type", res.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, res.Filename))
		w.Header().Set("X-Content-Warnings", strconv.Itoa(len(warnings)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Data)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// =============================================================================
// Sections
// =============================================================================

type sectionBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Blocks      json.RawMessage `json:"blocks"`
}

func (s *HTTPServer) handleSections(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			if !s.allow(w, r, session, rbac.ActionRead) {
				return
			}
			items, err := s.service.ListSections(r.Context(), r.URL.Query().Get("category"))
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
		case http.MethodPost:
			if !s.allow(w, r, session, rbac.ActionWrite) {
				return
			}
			var body sectionBody
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			result, err := s.service.CreateSection(r.Context(), session, SectionInput{
				Name:        body.Name,
				Description: body.Description,
				Category:    body.Category,
				Blocks:      body.Blocks,
			})
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, result)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	sectionID := rest[0]
	if len(rest) == 2 && rest[1] == "blocks" && r.Method == http.MethodPut {
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			Blocks json.RawMessage `json:"blocks"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if len(body.Blocks) == 0 {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "blocks is required", nil)
			return
		}
		result, err := s.service.ReplaceSectionBlocks(r.Context(), session, sectionID, body.Blocks)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		section, err := s.service.GetSection(r.Context(), sectionID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, section)
	case http.MethodPut:
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		var body store.SectionMeta
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		section, err := s.service.UpdateSection(r.Context(), session, sectionID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, section)
	case http.MethodDelete:
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		if err := s.service.DeleteSection(r.Context(), sectionID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// =============================================================================
// Landing pages
// =============================================================================

func (s *HTTPServer) handleLanding(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if r.Method != http.MethodPost || len(rest) > 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	action := ""
	if len(rest) == 1 {
		action = rest[0]
	}

	switch action {
	case "preview":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		var body LandingRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.AssembleLanding(r.Context(), body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "":
		if !s.allow(w, r, session, rbac.ActionWrite) {
			return
		}
		var body LandingRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.CreateLanding(r.Context(), session, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	case "duplicates":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		var body struct {
			TemplateID string   `json:"templateId"`
			SectionIDs []string `json:"sectionIds"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		warnings, err := s.service.LandingDuplicates(r.Context(), body.TemplateID, body.SectionIDs)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// =============================================================================
// Presets, preview and site settings
// =============================================================================

func (s *HTTPServer) handlePresets(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.service.ListPresets()})

	case r.Method == http.MethodPost && len(rest) == 2 && rest[1] == "preview":
		if !s.allow(w, r, session, rbac.ActionPreview) {
			return
		}
		preview, err := s.service.PreviewPreset(r.Context(), session, rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)

	case r.Method == http.MethodPost && len(rest) == 2 && rest[1] == "activate":
		if !s.allow(w, r, session, rbac.ActionPublishSite) {
			return
		}
		result, err := s.service.ActivatePreset(r.Context(), session, rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handlePreview(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		preview, err := s.service.CurrentPreview(r.Context(), session)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"preview": preview})
	case http.MethodDelete:
		if err := s.service.ClearPreview(r.Context(), session); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSite(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	switch {
	case r.Method == http.MethodGet && rest[0] == "settings":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		state, err := s.service.SiteState(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	case r.Method == http.MethodGet && rest[0] == "effective":
		if !s.allow(w, r, session, rbac.ActionRead) {
			return
		}
		view, err := s.service.EffectiveSettings(r.Context(), session)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case r.Method == http.MethodPost && rest[0] == "rollback":
		if !s.allow(w, r, session, rbac.ActionPublishSite) {
			return
		}
		state, err := s.service.RollbackSite(r.Context(), session)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}
