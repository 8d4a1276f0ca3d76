package server

import (
	"encoding/json"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stickersmash/pkg/buildinfo"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/mapview"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

type response struct {
	View   any            `json:"view,omitempty"`
	Alerts []errors.Alert `json:"alerts,omitempty"`
}

type errorResponse struct {
	Error  string         `json:"error"`
	Code   errors.Code    `json:"code,omitempty"`
	Alerts []errors.Alert `json:"alerts,omitempty"`
}

type locationView struct {
	Screen     screen.AboutView    `json:"screen"`
	Permission location.Permission `json:"permission"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, view any) {
	writeJSON(w, http.StatusOK, response{View: view, Alerts: stateFrom(r.Context()).takeAlerts()})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{
		Error:  errors.UserMessage(err),
		Code:   errors.GetCode(err),
		Alerts: stateFrom(r.Context()).takeAlerts(),
	})
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidImage:
		return http.StatusBadRequest
	case errors.ErrCodePermissionDenied:
		return http.StatusForbidden
	case errors.ErrCodeNotMounted:
		return http.StatusConflict
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}

// =============================================================================
// About
// =============================================================================

func (s *Server) locationView(w http.ResponseWriter, r *http.Request, st location.Status) {
	s.reply(w, r, locationView{
		Screen:     screen.ViewFor(st),
		Permission: s.about.Permission(),
	})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	s.locationView(w, r, s.about.Status())
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	s.locationView(w, r, s.about.TryAgain(r.Context()))
}

func (s *Server) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		s.fail(w, r, errors.New(errors.ErrCodeUnsupported, "permission decisions are not recorded"))
		return
	}
	var body struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body"))
		return
	}
	p, err := location.ParsePermission(body.Decision)
	if err != nil || p == location.PermissionUndetermined {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "decision must be granted or denied, got %q", body.Decision))
		return
	}
	if err := s.consent.Save(r.Context(), p); err != nil {
		s.fail(w, r, err)
		return
	}
	s.locationView(w, r, s.about.TryAgain(r.Context()))
}

func (s *Server) handleClearPermission(w http.ResponseWriter, r *http.Request) {
	if s.consent == nil {
		s.fail(w, r, errors.New(errors.ErrCodeUnsupported, "permission decisions are not recorded"))
		return
	}
	if err := s.consent.Clear(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenSettings(w http.ResponseWriter, r *http.Request) {
	opened := s.about.OpenSettings(r.Context())
	s.reply(w, r, map[string]bool{"opened": opened})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	ready, ok := s.about.Status().(location.Ready)
	if !ok {
		s.fail(w, r, errors.New(errors.ErrCodeNotMounted, "location is not ready"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := mapview.WritePNG(w, mapview.ForFix(ready.Fix), mapWidth, mapHeight); err != nil {
		s.logger.Error("render map", "err", err)
	}
}

// =============================================================================
// Home
// =============================================================================

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, s.home.View())
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.home.PickImage(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, r, s.home.View())
}

func (s *Server) handleUseThisPhoto(w http.ResponseWriter, r *http.Request) {
	s.home.UseThisPhoto()
	s.reply(w, r, s.home.View())
}

func (s *Server) handleOpenPicker(w http.ResponseWriter, r *http.Request) {
	s.home.AddSticker()
	s.reply(w, r, s.home.View())
}

func (s *Server) handleClosePicker(w http.ResponseWriter, r *http.Request) {
	s.home.CloseStickerPicker()
	s.reply(w, r, s.home.View())
}

func (s *Server) handleSticker(w http.ResponseWriter, r *http.Request) {
	ref, ok, err := readUpload(r, "sticker")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "missing sticker upload"))
		return
	}
	if err := s.home.SelectSticker(ref); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, r, s.home.View())
}

func (s *Server) handleStickerOffset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body"))
		return
	}
	if err := s.home.MoveSticker(image.Pt(body.X, body.Y)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, r, s.home.View())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.home.Reset(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, r, s.home.View())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target := s.home.Surface().Target()
	if target == nil {
		s.fail(w, r, errors.New(errors.ErrCodeNotMounted, "composition is not mounted"))
		return
	}
	size := target.Size()
	img, err := target.Rasterize(size.X, size.Y)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.MIMEJPEG)
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(export.DOMQuality)); err != nil {
		s.logger.Error("encode preview", "err", err)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.home.Save(r.Context())
	st := stateFrom(r.Context())
	st.mu.Lock()
	downloaded := st.downloaded
	st.mu.Unlock()
	if downloaded {
		// The attachment status is already sent.
		if err != nil {
			s.logger.Error("download interrupted", "err", err, "request_id", middleware.GetReqID(r.Context()))
		}
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if artifact == nil {
		s.fail(w, r, errors.New(errors.ErrCodeNotMounted, "composition is not mounted"))
		return
	}
	// Strategies that persist elsewhere answer with the artifact metadata.
	s.reply(w, r, artifact)
}
