package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/notecloud/backend/internal/common"
	"github.com/notecloud/backend/internal/server/models"
)

type noteRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Color   int64  `json:"color"`
}

type noteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Color     int64     `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNoteResponse(n models.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Color:     n.Color,
		CreatedAt: n.CreatedAt,
	}
}

func (s *HTTPServer) handleListNotes(c *gin.Context) {
	notes, err := s.notes.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error(c.Request.Context(), "listing notes failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	result := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		result = append(result, toNoteResponse(n))
	}
	c.JSON(http.StatusOK, result)
}

func (s *HTTPServer) handleSaveNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note := &models.Note{ID: req.ID, Title: req.Title, Content: req.Content, Color: req.Color}
	saved, err := s.notes.Save(c.Request.Context(), currentUserID(c), note)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "saving note failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toNoteResponse(*saved))
}

func (s *HTTPServer) handleDeleteNote(c *gin.Context) {
	err := s.notes.Delete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "deleting note failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
