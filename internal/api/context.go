package api

import (
	"net/http"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// callerFromRequest returns the principal proven by the request token
func callerFromRequest(r *http.Request) (models.Principal, bool) {
	return ledger.CallerFromContext(r.Context())
}
