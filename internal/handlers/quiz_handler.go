package handlers

import (
	"errors"
	"net/http"
	"time"

	"storyquiz-service/internal/models"
	"storyquiz-service/internal/service"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	Service *service.QuizService
}

func NewQuizHandler(s *service.QuizService) *QuizHandler {
	return &QuizHandler{Service: s}
}

// POST /api/quiz/generate
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req struct {
		UserID  string `json:"userId" binding:"required"`
		StoryID string `json:"storyId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "userId and storyId are required")
		return
	}

	view, err := h.Service.GetOrCreateQuiz(c.Request.Context(), req.UserID, req.StoryID)
	if err != nil {
		status, code := statusForError(err)
		ErrorResponse(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quiz":    view,
	})
}

// GET /api/quiz/:storyId?userId=
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	storyID := c.Param("storyId")
	userID := c.Query("userId")
	if userID == "" {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "userId query parameter is required")
		return
	}

	view, err := h.Service.GetQuiz(c.Request.Context(), userID, storyID)
	if err != nil {
		status, code := statusForError(err)
		ErrorResponse(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quiz":    view,
	})
}

// POST /api/quiz/submit
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req struct {
		UserID    string   `json:"userId" binding:"required"`
		StoryID   string   `json:"storyId" binding:"required"`
		Answers   []string `json:"answers" binding:"required"`
		TimeTaken int      `json:"timeTaken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "userId, storyId, answers and timeTaken are required")
		return
	}

	result, err := h.Service.Submit(c.Request.Context(), req.UserID, req.StoryID, req.Answers, req.TimeTaken)
	if err != nil {
		// A missing quiz on the submit path is a bad submission, not a 404.
		if errors.Is(err, models.ErrNotFound) {
			ErrorResponse(c, http.StatusBadRequest, "NOT_FOUND", err.Error())
			return
		}
		status, code := statusForError(err)
		ErrorResponse(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// GET /api/quiz/user/:id/results
func (h *QuizHandler) GetUserResults(c *gin.Context) {
	quizzes, err := h.Service.GetUserResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, code := statusForError(err)
		ErrorResponse(c, status, code, err.Error())
		return
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": quizzes,
	})
}

// GET /health
func (h *QuizHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"service":   "storyquiz-service",
		"timestamp": time.Now(),
	})
}
