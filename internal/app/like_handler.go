package app

import (
	"net/http"

	"eventfeed/internal/middleware"
	"eventfeed/internal/service"
	"eventfeed/internal/util"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likeService service.LikeService
}

func NewLikeHandler(likeService service.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// LikeComment handles liking a comment
// POST /api/v1/comments/:id/like
func (h *LikeHandler) LikeComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.likeService.LikeComment(userID, commentID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment liked successfully", nil)
}

// UnlikeComment handles removing a like from a comment
// DELETE /api/v1/comments/:id/like
func (h *LikeHandler) UnlikeComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.likeService.UnlikeComment(userID, commentID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment unliked successfully", nil)
}

// GetLikeCount handles getting the live like count for a comment
// GET /api/v1/comments/:id/likes/count
func (h *LikeHandler) GetLikeCount(c *gin.Context) {
	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	count, err := h.likeService.GetLikeCount(commentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Like count retrieved successfully", gin.H{"count": count})
}

// CheckUserLiked handles checking whether the caller liked a comment
// GET /api/v1/comments/:id/likes/me
func (h *LikeHandler) CheckUserLiked(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	liked, err := h.likeService.CheckUserLiked(userID, commentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Like state retrieved successfully", gin.H{"liked": liked})
}
