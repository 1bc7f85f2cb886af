package server

import (
	"net/http"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/esusuhq/esusu-engine/internal/service"
)

func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles := s.service.ListCycles(r.Context(), models.CycleUpcoming, models.CycleActive)
	s.respond(w, http.StatusOK, "Cycles", cycles)
}

func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	cycle, err := s.service.GetCycle(r.Context(), cycleID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Cycle", cycle)
}

func (s *Server) handleTakenNumbers(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	s.respond(w, http.StatusOK, "Taken numbers", s.service.TakenNumbers(r.Context(), cycleID))
}

type joinCycleRequest struct {
	ContributionMode string                   `json:"contribution_mode" validate:"required"`
	BankDetails      service.BankDetailsInput `json:"bank_details" validate:"required"`
}

func (s *Server) handleJoinCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	var req joinCycleRequest
	if !s.decode(w, r, &req) {
		return
	}

	participation, err := s.service.JoinCycle(r.Context(), actorFrom(r).UserID, cycleID,
		models.ContributionMode(req.ContributionMode), req.BankDetails)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusCreated, "You have joined the cycle", participation)
}

func (s *Server) handleMyParticipations(w http.ResponseWriter, r *http.Request) {
	participations := s.service.MyParticipations(r.Context(), actorFrom(r).UserID)
	s.respond(w, http.StatusOK, "Your participations", participations)
}

func (s *Server) handleUpdateBankDetails(w http.ResponseWriter, r *http.Request) {
	participationID, ok := s.pathUUID(w, r, "participationID")
	if !ok {
		return
	}
	var req service.BankDetailsInput
	if !s.decode(w, r, &req) {
		return
	}

	details, err := s.service.UpdateBankDetails(r.Context(), actorFrom(r).UserID, participationID, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Bank details updated", details)
}

type pickNumberRequest struct {
	Number int `json:"number" validate:"required,min=1"`
}

func (s *Server) handlePickNumber(w http.ResponseWriter, r *http.Request) {
	participationID, ok := s.pathUUID(w, r, "participationID")
	if !ok {
		return
	}
	var req pickNumberRequest
	if !s.decode(w, r, &req) {
		return
	}

	payout, err := s.service.PickNumber(r.Context(), actorFrom(r).UserID, participationID, req.Number)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Number picked", payout)
}

func (s *Server) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	participationID, ok := s.pathUUID(w, r, "participationID")
	if !ok {
		return
	}
	payments := s.service.MyPayments(r.Context(), actorFrom(r).UserID, participationID)
	s.respond(w, http.StatusOK, "Your payments", payments)
}

func (s *Server) handleMyPayout(w http.ResponseWriter, r *http.Request) {
	participationID, ok := s.pathUUID(w, r, "participationID")
	if !ok {
		return
	}
	payout, err := s.service.MyPayout(r.Context(), actorFrom(r).UserID, participationID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Your payout", payout)
}

func (s *Server) handleMarkPaymentAsPaid(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := s.pathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	payment, err := s.service.MarkPaymentAsPaid(r.Context(), actorFrom(r).UserID, paymentID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Payment marked as paid", payment)
}

type uploadProofRequest struct {
	ProofOfPayment string `json:"proof_of_payment" validate:"required"`
}

func (s *Server) handleUploadProof(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := s.pathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	var req uploadProofRequest
	if !s.decode(w, r, &req) {
		return
	}

	payment, err := s.service.UploadPaymentProof(r.Context(), actorFrom(r).UserID, paymentID, req.ProofOfPayment)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Proof of payment uploaded", payment)
}

func (s *Server) handleOptOutInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetOptOutInfo(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Opt-out eligibility", info)
}

type optOutRequestBody struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

func (s *Server) handleSubmitOptOut(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := s.pathUUID(w, r, "cycleID")
	if !ok {
		return
	}
	var req optOutRequestBody
	if !s.decode(w, r, &req) {
		return
	}

	request, err := s.service.SubmitOptOutRequest(r.Context(), actorFrom(r).UserID, cycleID, req.Reason)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusCreated, "Opt-out request submitted", request)
}

func (s *Server) handleMyOptOutRequests(w http.ResponseWriter, r *http.Request) {
	requests := s.service.MyOptOutRequests(r.Context(), actorFrom(r).UserID)
	s.respond(w, http.StatusOK, "Your opt-out requests", requests)
}

func (s *Server) handleCancelOptOut(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.pathUUID(w, r, "requestID")
	if !ok {
		return
	}
	if err := s.service.CancelOptOutRequest(r.Context(), requestID, actorFrom(r).UserID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Opt-out request cancelled", nil)
}

func (s *Server) handleListPoolPicks(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, "Number picks", s.service.ListPoolPicks(r.Context()))
}

func (s *Server) handlePickPoolNumber(w http.ResponseWriter, r *http.Request) {
	var req pickNumberRequest
	if !s.decode(w, r, &req) {
		return
	}
	pick, err := s.service.PickPoolNumber(r.Context(), actorFrom(r).UserID, req.Number)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respond(w, http.StatusOK, "Number picked", pick)
}
