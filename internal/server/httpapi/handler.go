package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
	"github.com/gin-gonic/gin"
)

// SyncRunner is the service behind POST /api/v1/sync.
type SyncRunner interface {
	Sync(ctx context.Context, accountID models.ID, req *syncproto.Request) (*syncproto.Response, error)
}

type SyncHandler struct {
	svc          SyncRunner
	maxItems     int
	maxBodyBytes int64
	logger       logging.Logger
}

func NewSyncHandler(svc SyncRunner, maxItems int, maxBodyBytes int64, l logging.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, maxItems: maxItems, maxBodyBytes: maxBodyBytes, logger: l.With("module", "sync_handler")}
}

func (h *SyncHandler) Sync(c *gin.Context) {
	accountID := AccountIDFromContext(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, syncproto.ErrorResponse{Error: "unauthorized"})
		return
	}

	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	var req syncproto.Request
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, syncproto.ErrorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, syncproto.ErrorResponse{Error: "invalid json body"})
		return
	}

	if h.maxItems > 0 && len(req.SyncQueue) > h.maxItems {
		c.JSON(http.StatusBadRequest, syncproto.ErrorResponse{
			Error: fmt.Sprintf("sync_queue has %d items, at most %d allowed", len(req.SyncQueue), h.maxItems),
		})
		return
	}

	resp, err := h.svc.Sync(c.Request.Context(), accountID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrBatchRejected):
		c.JSON(http.StatusUnprocessableEntity, syncproto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, syncproto.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error(c.Request.Context(), "sync failed", "account", AccountIDFromContext(c), "error", err.Error())
		c.JSON(http.StatusInternalServerError, syncproto.ErrorResponse{Error: common.ErrorInternal.Error()})
	}
}
