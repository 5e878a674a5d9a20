package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	clickdomain "github.com/smallbiznis/journalpay/internal/click/domain"
	"go.uber.org/zap"
)

// ClickPrepare answers the gateway's prepare callback. The gateway reads the
// protocol code from the body, so the HTTP status is always 200.
func (s *Server) ClickPrepare(c *gin.Context) {
	var req clickdomain.PrepareRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		s.log.Warn("click prepare: malformed body", zap.Error(err))
		respondClick(c, clickdomain.PrepareResponse{
			Error:     clickdomain.CodeSignFailed,
			ErrorNote: clickdomain.NoteSignFailed,
		}, clickdomain.CodeSignFailed)
		return
	}

	resp := s.clickSvc.Prepare(c.Request.Context(), req)
	respondClick(c, resp, resp.Error)
}

func (s *Server) ClickComplete(c *gin.Context) {
	var req clickdomain.CompleteRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		s.log.Warn("click complete: malformed body", zap.Error(err))
		respondClick(c, clickdomain.CompleteResponse{
			Error:     clickdomain.CodeSignFailed,
			ErrorNote: clickdomain.NoteSignFailed,
		}, clickdomain.CodeSignFailed)
		return
	}

	resp := s.clickSvc.Complete(c.Request.Context(), req)
	respondClick(c, resp, resp.Error)
}

func respondClick(c *gin.Context, body any, code int) {
	c.Set("click_error", code)
	c.JSON(http.StatusOK, body)
}
