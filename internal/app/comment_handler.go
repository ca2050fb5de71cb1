package app

import (
	"net/http"
	"strconv"
	"strings"

	"eventfeed/internal/middleware"
	"eventfeed/internal/service"
	"eventfeed/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CreateComment handles comment creation, JSON or multipart with attachments
// POST /api/v1/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req service.CreateCommentRequest
	var files []*util.FileData

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		postID, err := strconv.ParseUint(c.PostForm("post_id"), 10, 64)
		if err != nil {
			util.BadRequest(c, "Valid post_id is required")
			return
		}
		req.PostID = postID
		req.Content = c.PostForm("content")

		if parentStr := c.PostForm("parent_id"); parentStr != "" {
			parentID, err := strconv.ParseUint(parentStr, 10, 64)
			if err != nil {
				util.BadRequest(c, "Invalid parent_id")
				return
			}
			req.ParentID = &parentID
		}

		form, err := c.MultipartForm()
		if err != nil {
			util.BadRequest(c, "Invalid multipart form")
			return
		}
		for _, header := range form.File["files"] {
			file, err := header.Open()
			if err != nil {
				util.BadRequest(c, "Failed to read uploaded file")
				return
			}
			data, err := util.ReadFileFromReader(file, header.Filename)
			file.Close()
			if err != nil {
				util.BadRequest(c, "Failed to read uploaded file")
				return
			}
			files = append(files, data)
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BadRequest(c, bindErrorMessage(err))
			return
		}
	}

	comment, err := h.commentService.CreateComment(userID, req, files)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Comment created successfully", gin.H{"comment": comment})
}

// GetComment handles getting a comment by ID
// GET /api/v1/comments/:id
func (h *CommentHandler) GetComment(c *gin.Context) {
	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	comment, err := h.commentService.GetCommentByID(commentID, middleware.OptionalUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment retrieved successfully", gin.H{"comment": comment})
}

// GetCommentsByPost handles cursor-paginated comments for a post
// GET /api/v1/posts/:id/comments?cursor=&limit=&sort=
func (h *CommentHandler) GetCommentsByPost(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cursor := c.Query("cursor")
	limit := parseLimit(c)
	sortType := service.ParseSortType(c.Query("sort"))

	page, err := h.commentService.GetCommentsByPost(postID, cursor, limit, sortType, middleware.OptionalUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comments retrieved successfully", page)
}

// GetReplies handles cursor-paginated direct replies to a comment
// GET /api/v1/comments/:id/replies?cursor=&limit=
func (h *CommentHandler) GetReplies(c *gin.Context) {
	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, err := h.commentService.GetReplies(commentID, c.Query("cursor"), parseLimit(c), middleware.OptionalUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Replies retrieved successfully", page)
}

// GetAllReplies handles the flattened view over a comment's whole subtree
// GET /api/v1/comments/:id/replies/all?cursor=&limit=
func (h *CommentHandler) GetAllReplies(c *gin.Context) {
	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, err := h.commentService.GetAllRepliesFlattened(commentID, c.Query("cursor"), parseLimit(c), middleware.OptionalUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Replies retrieved successfully", page)
}

// UpdateComment handles comment update
// PUT /api/v1/comments/:id
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, bindErrorMessage(err))
		return
	}

	comment, err := h.commentService.UpdateComment(userID, commentID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment updated successfully", gin.H{"comment": comment})
}

// DeleteComment handles comment deletion
// DELETE /api/v1/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	commentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(userID, commentID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment deleted successfully", nil)
}

// GetCommentCount handles getting comment count for a post
// GET /api/v1/posts/:id/comments/count
func (h *CommentHandler) GetCommentCount(c *gin.Context) {
	postID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	count, err := h.commentService.GetCommentCount(postID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment count retrieved successfully", gin.H{"count": count})
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(c, "Valid "+name+" is required")
		return 0, false
	}
	return id, true
}

// parseLimit reads the limit query parameter; the service clamps out-of-range
// values to its default.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		return 0
	}
	return limit
}
