package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/oseayemenre/bookshelf/internal/models"
)

const pingTimeout = 5 * time.Second

// HandleTestConnection godoc
//
//	@Summary		Test database connection
//	@Description	Pings the configured database
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	models.ConnectionResponse
//	@Failure		500	{object}	models.ConnectionResponse
//	@Router			/test-connection [get]
func (a *Api) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Error(fmt.Sprintf("error pinging database: %v", err), "service", "HandleTestConnection")
		respondWithSuccess(w, http.StatusInternalServerError, models.ConnectionResponse{
			Status:  "error",
			Message: "Failed to connect to the database",
			Error:   err.Error(),
		})
		return
	}

	respondWithSuccess(w, http.StatusOK, models.ConnectionResponse{
		Status:  "success",
		Message: "Successfully connected to the database",
	})
}
