package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	articledomain "github.com/smallbiznis/journalpay/internal/article/domain"
	"github.com/smallbiznis/journalpay/internal/payable"
)

type submitArticleRequest struct {
	JournalID string `json:"journal_id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Abstract  string `json:"abstract"`
	Keywords  string `json:"keywords"`
}

type reviewNotesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) SubmitArticle(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	journalID, err := parseSnowflakeID(req.JournalID)
	if err != nil {
		AbortWithError(c, articledomain.ErrJournalRequired)
		return
	}

	resp, err := s.articleSvc.Submit(c.Request.Context(), articledomain.SubmitRequest{
		AuthorID:  actor.ID,
		JournalID: journalID,
		Title:     strings.TrimSpace(req.Title),
		Category:  strings.TrimSpace(req.Category),
		Abstract:  strings.TrimSpace(req.Abstract),
		Keywords:  strings.TrimSpace(req.Keywords),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetArticle(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	article, err := s.articleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canView(actor, &article.AuthorID, article.AssignedEditorID) {
		AbortWithError(c, articledomain.ErrNotFound)
		return
	}

	payments, err := s.clickSvc.History(c.Request.Context(), payable.Ref{Type: payable.TypeArticle, ID: article.ID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article, "payments": payments})
}

func (s *Server) RequestArticleRevision(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req reviewNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Notes) == "" {
		AbortWithError(c, newValidationError("notes", "notes_required", "notes are required"))
		return
	}

	article, err := s.articleSvc.RequestRevision(c.Request.Context(), id, req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}

func (s *Server) RejectArticle(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req reviewNotesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	article, err := s.articleSvc.Reject(c.Request.Context(), id, req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}

func (s *Server) AcceptArticle(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	article, err := s.articleSvc.Accept(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}

func (s *Server) SubmitArticleRevision(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	article, err := s.articleSvc.SubmitRevision(c.Request.Context(), id, actor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}
