package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"clubledger/internal/delivery/http/helpers"
	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/domain"
)

type UserController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewUserController(logger *slog.Logger, svc domain.EventService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// MyParticipation is one row of a user's participation list.
type MyParticipation struct {
	EventID   string    `json:"eventId"`
	EventName string    `json:"eventName"`
	Price     float64   `json:"price"`
	EventDate string    `json:"eventDate"`
	OptedInAt time.Time `json:"optedInAt"`
}

// GetMyParticipations godoc
// @Summary List the caller's event participations
// @Description Returns every event the caller opted in to, ordered by event date.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/participations [get]
func (c *UserController) GetMyParticipations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	participations, err := c.Service.MyParticipations(r.Context(), userID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "list participations failed", "userID", userID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	result := make([]MyParticipation, 0, len(participations))
	for _, p := range participations {
		result = append(result, MyParticipation{
			EventID:   p.Event.ID,
			EventName: p.Event.Name,
			Price:     p.Event.Price,
			EventDate: p.Event.EndAt.Format("2006-01-02"),
			OptedInAt: p.Participation.OptedInAt,
		})
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
