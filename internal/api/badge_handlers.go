package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/quest-ledger/internal/models"
)

func (s *Server) handleMintBadge(w http.ResponseWriter, r *http.Request) {
	var req models.MintBadgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	badge, err := s.ledger.Badges.Mint(r.Context(), req.To, req.BadgeID, req.QuestID, req.Metadata)
	if err != nil {
		respondLedgerError(w, err, "failed to mint badge")
		return
	}

	respondJSON(w, http.StatusCreated, badge)
}

func (s *Server) handleTotalBadges(w http.ResponseWriter, r *http.Request) {
	total, err := s.ledger.Badges.TotalBadges(r.Context())
	if err != nil {
		respondLedgerError(w, err, "failed to count badges")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"total": total,
	})
}

func (s *Server) handleGetBadge(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))

	badge, err := s.ledger.Badges.GetBadge(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err, "failed to get badge")
		return
	}

	respondJSON(w, http.StatusOK, badge)
}

func (s *Server) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	id := models.Symbol(chi.URLParam(r, "id"))

	owner, err := s.ledger.Badges.OwnerOf(r.Context(), id)
	if err != nil {
		respondLedgerError(w, err, "failed to get badge owner")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"badge_id": id,
		"owner":    owner,
	})
}

func (s *Server) handleTransferBadge(w http.ResponseWriter, r *http.Request) {
	var req models.TransferBadgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := models.Symbol(chi.URLParam(r, "id"))
	from, _ := callerFromRequest(r)

	badge, err := s.ledger.Badges.Transfer(r.Context(), from, req.To, id)
	if err != nil {
		respondLedgerError(w, err, "failed to transfer badge")
		return
	}

	respondJSON(w, http.StatusOK, badge)
}

func (s *Server) handleUserBadges(w http.ResponseWriter, r *http.Request) {
	user := models.Principal(chi.URLParam(r, "user"))

	ids, err := s.ledger.Badges.UserBadges(r.Context(), user)
	if err != nil {
		respondLedgerError(w, err, "failed to list badges")
		return
	}

	respondJSON(w, http.StatusOK, ids)
}
