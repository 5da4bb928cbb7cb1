package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"clubledger/internal/delivery/http/helpers"
	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/domain"
)

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *EventController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrEventClosed):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyOptedIn):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name  string    `json:"name"`
	Price *float64  `json:"price"`
	EndAt time.Time `json:"endAt"`
}

// Validate implements helpers.Validator.
func (c *CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Price == nil {
		errs = append(errs, "price is required")
	} else if *c.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	if c.EndAt.IsZero() {
		errs = append(errs, "endAt is required")
	}
	return errs
}

// CreateEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CreateEventRequest true "Event"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), req.Name, *req.Price, req.EndAt)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// CloneEventRequest is the request body for POST /events/clone.
type CloneEventRequest struct {
	SourceEventID string    `json:"sourceEventId"`
	NewEndAt      time.Time `json:"newEndAt"`
	Name          *string   `json:"name"`
	Price         *float64  `json:"price"`
}

// Validate implements helpers.Validator.
func (c *CloneEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.SourceEventID) == "" {
		errs = append(errs, "sourceEventId is required")
	}
	if c.NewEndAt.IsZero() {
		errs = append(errs, "newEndAt is required")
	}
	return errs
}

// CloneEvent godoc
// @Summary Clone an event with a new end time
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.CloneEventRequest true "Clone parameters"
// @Success 201 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/clone [post]
func (c *EventController) CloneEvent(w http.ResponseWriter, r *http.Request) {
	var req CloneEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CloneEvent(r.Context(), req.SourceEventID, req.NewEndAt, req.Name, req.Price)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "source event not found")
			return
		}
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEventRequest is the request body for PUT /events/{eventID}.
type UpdateEventRequest struct {
	Name  *string    `json:"name"`
	Price *float64   `json:"price"`
	EndAt *time.Time `json:"endAt"`
}

// UpdateEvent godoc
// @Summary Update an open event
// @Description Updates name, price, or end time. Closed events cannot be updated.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body controllers.UpdateEventRequest true "Fields to update"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, domain.EventUpdate{
		Name:  req.Name,
		Price: req.Price,
		EndAt: req.EndAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEventClosed) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "cannot update a closed event")
			return
		}
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CloseEvent godoc
// @Summary Close an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/close [post]
func (c *EventController) CloseEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.CloseEvent(r.Context(), eventID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Description Admins see all events, optionally filtered by month. Members see today's open events only. Each event carries its opt-in count.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param month query string false "Filter by month (YYYY-MM), admin only"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	roles, _ := middleware.RolesFromContext(r.Context())

	var events []*domain.EventWithOptInCount
	var err error
	if slices.Contains(roles, middleware.RoleAdmin) {
		var month *domain.MonthKey
		if raw := r.URL.Query().Get("month"); raw != "" {
			parsed, perr := domain.ParseMonthKey(raw)
			if perr != nil {
				helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, perr.Error())
				return
			}
			month = &parsed
		}
		events, err = c.Service.ListEvents(r.Context(), month)
	} else {
		events, err = c.Service.ListTodaysOpenEvents(r.Context())
	}
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// OptIn godoc
// @Summary Opt in to an open event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 201 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/optin [post]
func (c *EventController) OptIn(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	participation, err := c.Service.OptIn(r.Context(), eventID, userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, participation)
}

// EventParticipant is one row of the participants list.
type EventParticipant struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	OptedInAt time.Time `json:"optedInAt"`
}

// ListParticipants godoc
// @Summary List the participants of an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants [get]
func (c *EventController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	participants, err := c.Service.ListParticipants(r.Context(), eventID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	result := make([]EventParticipant, 0, len(participants))
	for _, p := range participants {
		result = append(result, EventParticipant{
			UserID:    p.User.ID,
			Name:      p.User.Name,
			Email:     p.User.Email,
			OptedInAt: p.Participation.OptedInAt,
		})
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
