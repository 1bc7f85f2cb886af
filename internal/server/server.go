package server

import (
	"github.com/esusuhq/esusu-engine/internal/service"
	"github.com/esusuhq/esusu-engine/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Server struct {
	service   *service.Service
	logger    *utils.Logger
	validate  *validator.Validate
	jwtSecret string
}

func NewServer(svc *service.Service, logger *utils.Logger, jwtSecret string) *Server {
	return &Server{
		service:   svc,
		logger:    logger,
		validate:  validator.New(),
		jwtSecret: jwtSecret,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticator)

		r.Get("/cycles", s.handleListCycles)
		r.Get("/cycles/{cycleID}", s.handleGetCycle)
		r.Get("/cycles/{cycleID}/numbers", s.handleTakenNumbers)
		r.Post("/cycles/{cycleID}/join", s.handleJoinCycle)
		r.Post("/cycles/{cycleID}/opt-out", s.handleSubmitOptOut)

		r.Get("/me/participations", s.handleMyParticipations)
		r.Get("/me/opt-out", s.handleOptOutInfo)
		r.Get("/me/opt-out/requests", s.handleMyOptOutRequests)
		r.Delete("/me/opt-out/requests/{requestID}", s.handleCancelOptOut)

		r.Put("/participations/{participationID}/bank-details", s.handleUpdateBankDetails)
		r.Post("/participations/{participationID}/pick-number", s.handlePickNumber)
		r.Get("/participations/{participationID}/payments", s.handleMyPayments)
		r.Get("/participations/{participationID}/payout", s.handleMyPayout)

		r.Post("/payments/{paymentID}/mark-paid", s.handleMarkPaymentAsPaid)
		r.Post("/payments/{paymentID}/proof", s.handleUploadProof)

		r.Get("/pool/picks", s.handleListPoolPicks)
		r.Post("/pool/pick", s.handlePickPoolNumber)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)

			r.Get("/admin/users", s.handleListUsers)
			r.Post("/admin/users/{userID}/suspend", s.handleSuspendUser)
			r.Post("/admin/users/{userID}/activate", s.handleActivateUser)
			r.Post("/admin/users/{userID}/make-admin", s.handleMakeUserAdmin)
			r.Post("/admin/users/{userID}/remove-admin", s.handleRemoveAdmin)
			r.Delete("/admin/users/{userID}", s.handleDeleteUser)

			r.Post("/admin/cycles", s.handleCreateCycle)
			r.Put("/admin/cycles/{cycleID}", s.handleUpdateCycle)
			r.Post("/admin/cycles/{cycleID}/start", s.handleStartCycle)
			r.Post("/admin/cycles/{cycleID}/close", s.handleCloseCycle)
			r.Post("/admin/cycles/{cycleID}/cancel", s.handleCancelCycle)
			r.Delete("/admin/cycles/{cycleID}", s.handleDeleteCycle)
			r.Post("/admin/cycles/{cycleID}/payments/generate", s.handleGeneratePayments)

			r.Get("/admin/payments/awaiting-verification", s.handleAwaitingVerification)
			r.Post("/admin/payments/{paymentID}/verify", s.handleVerifyPayment)

			r.Get("/admin/payouts/pending", s.handlePendingPayouts)
			r.Get("/admin/payouts/overdue", s.handleOverduePayouts)
			r.Post("/admin/payouts/{payoutID}/process", s.handleProcessPayout)

			r.Get("/admin/opt-out/requests", s.handlePendingOptOuts)
			r.Post("/admin/opt-out/requests/{requestID}/review", s.handleReviewOptOut)

			r.Post("/admin/pool/reset", s.handleResetPool)
			r.Put("/admin/pool/total-numbers", s.handleUpdateTotalNumbers)
			r.Put("/admin/settings/penalty-percent", s.handleUpdatePenaltyPercent)

			r.Get("/admin/cycles/{cycleID}/reports/summary", s.handleCycleSummary)
			r.Get("/admin/cycles/{cycleID}/reports/defaulters", s.handleDefaulters)
			r.Get("/admin/cycles/{cycleID}/reports/trend", s.handleCollectionTrend)
		})
	})

	return r
}
