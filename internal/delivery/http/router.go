package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "clubledger/docs"
	"clubledger/internal/delivery/http/controllers"
	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	paymentController *controllers.PaymentController,
	userController *controllers.UserController,
) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(verifier)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(middleware.RoleAdmin)(h))
	}
	member := func(h http.HandlerFunc) http.HandlerFunc {
		return authed(middleware.RequireRole(middleware.RoleMember)(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Events
	mux.HandleFunc("POST /events", admin(eventController.CreateEvent))
	mux.HandleFunc("POST /events/clone", admin(eventController.CloneEvent))
	mux.HandleFunc("PUT /events/{eventID}", admin(eventController.UpdateEvent))
	mux.HandleFunc("POST /events/{eventID}/close", admin(eventController.CloseEvent))
	mux.HandleFunc("GET /events", authed(eventController.ListEvents))
	mux.HandleFunc("POST /events/{eventID}/optin", member(eventController.OptIn))
	mux.HandleFunc("GET /events/{eventID}/participants", admin(eventController.ListParticipants))

	// Payments
	mux.HandleFunc("GET /payments/monthly", admin(paymentController.GetMonthlySummary))
	mux.HandleFunc("GET /payments/me", authed(paymentController.GetMyPaymentHistory))
	mux.HandleFunc("GET /payments/me/monthly", authed(paymentController.GetMyMonthlyStatement))
	mux.HandleFunc("PUT /payments/monthly/status", admin(paymentController.UpdatePaymentStatus))
	mux.HandleFunc("POST /payments/monthly/reminders", admin(paymentController.SendReminders))

	// Users
	mux.HandleFunc("GET /users/me/participations", member(userController.GetMyParticipations))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
