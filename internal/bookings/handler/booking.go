package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"defensebook/internal/bookings/service"
	"defensebook/pkg/auth"
	apperrors "defensebook/pkg/errors"
	httputil "defensebook/pkg/http"
	"defensebook/pkg/logger"
	"defensebook/pkg/model"
	"defensebook/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	loc     *time.Location
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, loc *time.Location, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		loc:     loc,
		log:     log,
	}
}

func currentActor(r *http.Request) auth.CurrentActor {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return auth.AsCurrentActor(actor)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, handler string, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.log.Warn("Invalid request body", "handler", handler, "error", err)
		h.writeError(w, handler, apperrors.InvalidInput("Invalid request body"))
		return false
	}
	return true
}

func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date, err := httputil.ExtractDate(r, "date", h.loc)
	if err != nil {
		h.writeError(w, "ListSlots", err)
		return
	}

	day, err := h.service.ListSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, "ListSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, day); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := h.service.Calendar(r.Context())
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	if err := httputil.WriteList(w, days, len(days)); err != nil {
		h.log.Error("failed to write list response", "handler", "Calendar", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.List(r.Context(), currentActor(r))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, bookings, len(bookings)); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), sanitizer.NormalizeID(ps.ByName("id")))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingCreate
	if !h.decode(w, r, "Create", &req) {
		return
	}

	booking, err := h.service.Create(r.Context(), currentActor(r), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookingStatusUpdate
	if !h.decode(w, r, "UpdateStatus", &req) {
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), currentActor(r), sanitizer.NormalizeID(ps.ByName("id")), &req)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), currentActor(r), sanitizer.NormalizeID(ps.ByName("id"))); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.ListSlots)
	router.GET("/api/v1/slots/calendar", h.Calendar)
	router.GET("/api/v1/bookings", h.List)
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id/status", h.UpdateStatus)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
}
