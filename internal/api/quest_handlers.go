package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "id is required")
		return
	}

	creator, _ := callerFromRequest(r)
	quest, err := s.ledger.Quests.Create(r.Context(), ledger.CreateQuestParams{
		Creator:        creator,
		ID:             req.ID,
		Title:          req.Title,
		Description:    req.Description,
		RewardAmount:   req.RewardAmount,
		BadgeID:        req.BadgeID,
		ExpiresAt:      req.ExpiresAt,
		MaxCompletions: req.MaxCompletions,
	})
	if err != nil {
		respondLedgerError(w, err, "failed to create quest")
		return
	}

	respondJSON(w, http.StatusCreated, quest)
}

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	status := models.QuestStatus(r.URL.Query().Get("status"))

	quests, err := s.ledger.Quests.ListQuests(r.Context(), status)
	if err != nil {
		respondLedgerError(w, err, "failed to list quests")
		return
	}

	total, err := s.ledger.Quests.QuestCount(r.Context())
	if err != nil {
		respondLedgerError(w, err, "failed to count quests")
		return
	}

	respondJSON(w, http.StatusOK, models.QuestListResponse{
		Quests: quests,
		Total:  total,
	})
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))

	quest, err := s.ledger.Quests.GetQuest(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err, "failed to get quest")
		return
	}

	respondJSON(w, http.StatusOK, quest)
}

func (s *Server) handleCancelQuest(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))

	quest, err := s.ledger.Quests.Cancel(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err, "failed to cancel quest")
		return
	}

	respondJSON(w, http.StatusOK, quest)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))
	user, _ := callerFromRequest(r)

	record, err := s.ledger.Completions.Complete(r.Context(), user, id)
	if err != nil {
		respondLedgerError(w, err, "failed to complete quest")
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

func (s *Server) handleHasCompleted(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))
	user := models.Principal(chi.URLParam(r, "user"))

	done, err := s.ledger.Completions.HasCompleted(r.Context(), user, id)
	if err != nil {
		respondLedgerError(w, err, "failed to check completion")
		return
	}

	respondJSON(w, http.StatusOK, models.CompletionStatusResponse{
		User:      user,
		QuestID:   id,
		Completed: done,
	})
}

func (s *Server) handleUserCompletions(w http.ResponseWriter, r *http.Request) {
	user := models.Principal(chi.URLParam(r, "user"))

	ids, err := s.ledger.Completions.UserCompletions(r.Context(), user)
	if err != nil {
		respondLedgerError(w, err, "failed to list completions")
		return
	}

	respondJSON(w, http.StatusOK, ids)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.Completions.Leaderboard(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		respondLedgerError(w, err, "failed to build leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePendingPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.ledger.Payouts.Pending(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		respondLedgerError(w, err, "failed to list payouts")
		return
	}
	if payouts == nil {
		payouts = []models.Payout{}
	}

	respondJSON(w, http.StatusOK, payouts)
}

func (s *Server) handleAckPayout(w http.ResponseWriter, r *http.Request) {
	var p models.Payout
	if !decodeJSON(w, r, &p) {
		return
	}

	if err := s.ledger.Payouts.Ack(r.Context(), p); err != nil {
		respondLedgerError(w, err, "failed to ack payout")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "payout acknowledged",
	})
}
