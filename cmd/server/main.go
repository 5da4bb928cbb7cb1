package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"clubledger/config"
	"clubledger/internal/adapters/auth"
	"clubledger/internal/adapters/email"
	"clubledger/internal/audit"
	deliveryhttp "clubledger/internal/delivery/http"
	"clubledger/internal/delivery/http/controllers"
	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/repository/postgres"
	"clubledger/internal/services"
)

const (
	serviceTimeout = 5 * time.Second
	tokenExpiry    = 24 * time.Hour
	bcryptCost     = 12
	auditBuffer    = 100
)

// @title ClubLedger API
// @version 1.0
// @description Event signup and monthly payment tracking for clubs.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("database connection", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		logger.Error("pinging database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	auditWorker := audit.NewWorker(audit.NewSQLRecorder(db), auditBuffer)
	auditWorker.Start()
	defer auditWorker.Shutdown()

	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	participationRepo := postgres.NewParticipationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	tokenIssuer, tokenVerifier := auth.NewJWTCodec(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(bcryptCost)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SESRegion,
			AccessKeyID:     cfg.Mailer.SESKeyID,
			SecretAccessKey: cfg.Mailer.SESSecret,
		},
	})
	if err != nil {
		logger.Error("mailer setup", "error", err)
		os.Exit(1)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())

	authService := services.NewAuthService(userRepo, roleRepo, hasher, tokenIssuer, tokenExpiry)
	eventService := services.NewEventService(eventRepo, participationRepo, serviceTimeout)
	billingService := services.NewBillingService(eventRepo, participationRepo, paymentRepo, userRepo, emailService, serviceTimeout)

	authController := controllers.NewAuthController(logger, authService)
	eventController := controllers.NewEventController(logger, eventService)
	paymentController := controllers.NewPaymentController(logger, billingService, auditWorker)
	userController := controllers.NewUserController(logger, eventService)

	mux := deliveryhttp.NewRouter(tokenVerifier, authController, eventController, paymentController, userController)
	handler := middleware.CORS(cfg.CORSOrigins, middleware.LoggingMiddleware(logger, mux))

	logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
