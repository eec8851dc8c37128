package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshmart/grocery-api/internal/dto"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{Code: code, Message: message})
}

// internalError hides backend details from the client and logs the
// originating operation with identifiers only.
func internalError(c *gin.Context, log *slog.Logger, op string, err error) {
	log.Error("storage failure", "op", op, "error", err)
	respondError(c, http.StatusInternalServerError, "storage_unavailable", "unexpected backend failure, try again later")
}
