package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xbrain-api/internal/application/auth"
	"github.com/xbrain-api/internal/application/otp"
	"github.com/xbrain-api/internal/application/registration"
	"github.com/xbrain-api/internal/application/specialization"
	"github.com/xbrain-api/internal/application/user"
	"github.com/xbrain-api/internal/config"
	"github.com/xbrain-api/internal/infrastructure/cache"
	jwtinfra "github.com/xbrain-api/internal/infrastructure/jwt"
	"github.com/xbrain-api/internal/infrastructure/smtp"
	"github.com/xbrain-api/internal/infrastructure/sns"
	"github.com/xbrain-api/internal/transport/http/handler"
	appmiddleware "github.com/xbrain-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     UserRepository
	WalletRepo   WalletRepository
	SpecRepo     SpecializationRepository
	UserSpecRepo UserSpecializationRepository
	CertRepo     CertificateRepository
	Cache        cache.Store
	S3Store      ObjectStore
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
	JWTProvider  *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(deps.Cache, deps.Mailer, otp.Config{
		Length:      cfg.OTPLength,
		Validity:    cfg.OTPValidity,
		ResendDelay: cfg.OTPResendDelay,
		MaxResends:  cfg.OTPMaxResends,
	})
	regSvc := registration.NewService(registration.ServiceDeps{
		UserRepo:   deps.UserRepo,
		Cache:      deps.Cache,
		OTP:        otpSvc,
		Mailer:     deps.Mailer,
		SMSSender:  deps.SMSSender,
		ImageStore: deps.S3Store,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		Cache:       deps.Cache,
		JWTProvider: deps.JWTProvider,
		Config: auth.Config{
			MaxAttempts:     cfg.MaxLoginAttempts,
			LockoutDuration: cfg.LockoutDuration,
		},
	})
	specSvc := specialization.NewService(deps.SpecRepo, deps.UserSpecRepo, deps.UserRepo)
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:        deps.UserRepo,
		WalletRepo:      deps.WalletRepo,
		JoinRepo:        deps.UserSpecRepo,
		SpecRepo:        deps.SpecRepo,
		CertificateRepo: deps.CertRepo,
		ImageStore:      deps.S3Store,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(regSvc, authSvc, userSvc)
	userH := handler.NewUserHandler(userSvc)
	specH := handler.NewSpecializationHandler(specSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/verify-email", authH.VerifyEmail)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/resend-otp", authH.ResendOTP)
		r.Post("/auth/token/refresh", authH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/me", userH.UpdateMe)
			r.Get("/users/me/certificates", userH.ListCertificates)
			r.Post("/users/me/certificates", userH.AddCertificate)

			r.Get("/specializations", specH.List)
			r.Get("/users/me/specializations", specH.GetMine)
			r.Put("/users/me/specializations", specH.ReplaceMine)
			r.Post("/users/me/specializations/skip", specH.Skip)
		})
	})

	return r
}
