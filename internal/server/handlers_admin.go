package server

import (
	"net/http"

	"github.com/esusuhq/esusu-engine/internal/service"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Users", users)
}

func (s *Server) handleSuspendUser(w http.ResponseWriter, r *http.Request) {
	targetID, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.service.SuspendUser(r.Context(), actorFrom(r).UserID, targetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "User suspended", nil)
}

func (s *Server) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	targetID, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.service.ActivateUser(r.Context(), actorFrom(r).UserID, targetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "User activated", nil)
}

func (s *Server) handleMakeUserAdmin(w http.ResponseWriter, r *http.Request) {
	targetID, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.service.MakeUserAdmin(r.Context(), actorFrom(r).UserID, targetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "User granted admin privileges", nil)
}

func (s *Server) handleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	targetID, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.service.RemoveAdminPrivileges(r.Context(), actorFrom(r).UserID, targetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Admin privileges removed", nil)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID, ok := s.pathUUID(w, r, "userID")
	if !ok {
		return
	}
	if err := s.service.DeleteUser(r.Context(), actorFrom(r).UserID, targetID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "User deleted", nil)
}

func (s *Server) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	var req service.CycleInput
	if !s.decode(w, r, &req) {
		return
	}
	cycle, err := s.service.CreateCycle(r.Context(), actorFrom(r).UserID, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusCreated, "Cycle created", cycle)
}

func (s *Server) handleUpdateCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	var req service.CycleInput
	if !s.decode(w, r, &req) {
		return
	}
	cycle, err := s.service.UpdateCycle(r.Context(), actorFrom(r).UserID, cycleID, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle updated", cycle)
}

func (s *Server) handleStartCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	if err := s.service.StartCycle(r.Context(), actorFrom(r).UserID, cycleID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle started", nil)
}

func (s *Server) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	if err := s.service.CloseCycle(r.Context(), actorFrom(r).UserID, cycleID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle closed", nil)
}

func (s *Server) handleCancelCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	if err := s.service.CancelCycle(r.Context(), actorFrom(r).UserID, cycleID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle cancelled", nil)
}

func (s *Server) handleDeleteCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	if err := s.service.DeleteCycle(r.Context(), actorFrom(r).UserID, cycleID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle deleted", nil)
}

func (s *Server) handleGeneratePayments(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	count, err := s.service.GenerateCyclePayments(r.Context(), actorFrom(r).UserID, cycleID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusCreated, "Payment schedule generated", map[string]int{"payments_created": count})
}

func (s *Server) handleAwaitingVerification(w http.ResponseWriter, r *http.Request) {
	payments, err := s.service.PaymentsAwaitingVerification(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Payments awaiting verification", payments)
}

type verifyPaymentRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := s.pathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	payment, err := s.service.VerifyPayment(r.Context(), actorFrom(r).UserID, paymentID, req.Approved, req.Notes)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if req.Approved {
		s.respond(w, http.StatusOK, "Payment verified", payment)
		return
	}
	s.respond(w, http.StatusOK, "Proof rejected; member must re-upload", payment)
}

func (s *Server) handlePendingPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.service.PendingPayouts(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Pending payouts", payouts)
}

func (s *Server) handleOverduePayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.service.OverduePayouts(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Overdue payouts", payouts)
}

type processPayoutRequest struct {
	TransferReference string `json:"transfer_reference" validate:"required"`
	Notes             string `json:"notes"`
}

func (s *Server) handleProcessPayout(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := s.pathUUID(w, r, "payoutID")
	if !ok {
		return
	}
	var req processPayoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	payout, err := s.service.ProcessPayout(r.Context(), actorFrom(r).UserID, payoutID, req.TransferReference, req.Notes)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Payout processed", payout)
}

func (s *Server) handlePendingOptOuts(w http.ResponseWriter, r *http.Request) {
	requests, err := s.service.PendingOptOutRequests(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Pending opt-out requests", requests)
}

type reviewOptOutRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

func (s *Server) handleReviewOptOut(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	var req reviewOptOutRequest
	if !s.decode(w, r, &req) {
		return
	}
	request, err := s.service.ReviewOptOutRequest(r.Context(), actorFrom(r).UserID, requestID, req.Approved, req.Notes)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Opt-out request reviewed", request)
}

func (s *Server) handleResetPool(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetNumberGame(r.Context(), actorFrom(r).UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Number game reset", nil)
}

type updateTotalNumbersRequest struct {
	TotalNumbers int `json:"total_numbers" validate:"required,min=1"`
}

func (s *Server) handleUpdateTotalNumbers(w http.ResponseWriter, r *http.Request) {
	var req updateTotalNumbersRequest
	if !s.decode(w, r, &req) {
		return
	}
	settings, err := s.service.UpdateTotalNumbers(r.Context(), actorFrom(r).UserID, req.TotalNumbers)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Pool size updated", settings)
}

type updatePenaltyRequest struct {
	PenaltyPercent int `json:"penalty_percent" validate:"min=0,max=100"`
}

func (s *Server) handleUpdatePenaltyPercent(w http.ResponseWriter, r *http.Request) {
	var req updatePenaltyRequest
	if !s.decode(w, r, &req) {
		return
	}
	settings, err := s.service.UpdatePenaltyPercent(r.Context(), actorFrom(r).UserID, req.PenaltyPercent)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Penalty percent updated", settings)
}

func (s *Server) handleCycleSummary(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	summary, err := s.service.CycleFinancialSummary(r.Context(), actorFrom(r).UserID, cycleID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle financial summary", summary)
}

func (s *Server) handleDefaulters(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	defaulters, err := s.service.Defaulters(r.Context(), actorFrom(r).UserID, cycleID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Defaulters", defaulters)
}

func (s *Server) handleCollectionTrend(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	trend, err := s.service.CollectionTrend(r.Context(), actorFrom(r).UserID, cycleID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Collection trend", trend)
}
