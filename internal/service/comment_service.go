package service

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"eventfeed/internal/model"
	"eventfeed/internal/repository"
	"eventfeed/internal/util"
)

// AttachmentUploader stores an attachment and returns its delivery metadata.
// The Cloudinary client satisfies it.
type AttachmentUploader interface {
	UploadAttachment(data []byte, filename string) (*util.UploadResult, error)
}

type CommentService interface {
	CreateComment(userID uint64, req CreateCommentRequest, files []*util.FileData) (*model.Comment, error)
	GetCommentByID(commentID uint64, viewerID *uint64) (*model.Comment, error)
	GetCommentsByPost(postID uint64, cursor string, limit int, sortType SortType, viewerID *uint64) (*CommentPage, error)
	GetReplies(commentID uint64, cursor string, limit int, viewerID *uint64) (*CommentPage, error)
	GetAllRepliesFlattened(commentID uint64, cursor string, limit int, viewerID *uint64) (*CommentPage, error)
	UpdateComment(userID, commentID uint64, req UpdateCommentRequest) (*model.Comment, error)
	DeleteComment(userID, commentID uint64) error
	GetCommentCount(postID uint64) (int64, error)
}

type CreateCommentRequest struct {
	PostID   uint64  `json:"post_id" binding:"required"`
	ParentID *uint64 `json:"parent_id,omitempty"` // For replies
	Content  string  `json:"content"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CommentPage is one page of a cursor-paginated listing. NextCursor is nil
// exactly when HasNext is false.
type CommentPage struct {
	Comments   []*model.Comment `json:"comments"`
	NextCursor *string          `json:"next_cursor"`
	HasNext    bool             `json:"has_next"`
	Size       int              `json:"size"`
}

const defaultPageLimit = 20

type commentService struct {
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	counters    *CounterResolver
	uploader    AttachmentUploader
	notifier    NotificationService
	broadcaster *Broadcaster
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	counters *CounterResolver,
	uploader AttachmentUploader,
	notifier NotificationService,
	broadcaster *Broadcaster,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		postRepo:    postRepo,
		counters:    counters,
		uploader:    uploader,
		notifier:    notifier,
		broadcaster: broadcaster,
	}
}

// CreateComment persists a new comment (optionally a reply, optionally with
// attachments), notifies the parent comment's author and the post owner, and
// fans the comment out to live subscribers. Fan-out and notifications are
// best-effort and cannot fail the create.
func (s *commentService) CreateComment(userID uint64, req CreateCommentRequest, files []*util.FileData) (*model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(files) == 0 {
		// Text-or-media: empty content is allowed only alongside attachments
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > model.MaxContentLength {
		return nil, ErrContentTooLong
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	post, err := s.postRepo.FindByID(req.PostID)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var parent *model.Comment
	if req.ParentID != nil {
		parent, err = s.commentRepo.FindByID(*req.ParentID)
		if err != nil {
			return nil, ErrParentNotFound
		}
		if parent.PostID != req.PostID {
			return nil, ErrParentMismatch
		}
	}

	// Upload attachments before anything is persisted. A single failed
	// upload aborts the whole create so no orphaned comment row is left
	// behind.
	records, err := s.uploadAttachments(files)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:   req.PostID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  content,
	}

	if err := s.commentRepo.Create(comment, records); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.commentRepo.FindByID(comment.ID)
	if err != nil {
		// The row exists; fall back to what we have
		created = comment
		created.User = *user
	}
	s.counters.Enrich(created, &userID)

	// Notify the parent comment's author for replies and the post owner for
	// every comment, skipping self-notification in both cases.
	if parent != nil && parent.UserID != userID {
		s.notifier.NotifyCommentReply(parent.UserID, userID, user.DisplayName(), created.ID, post.ID, content)
	}
	if post.UserID != userID {
		s.notifier.NotifyPostComment(post.UserID, userID, user.DisplayName(), created.ID, post.ID, content)
	}

	if s.broadcaster != nil {
		s.broadcaster.PublishComment(created)
	}

	return created, nil
}

func (s *commentService) uploadAttachments(files []*util.FileData) ([]*model.FileRecord, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: uploads are not configured", ErrUploadFailed)
	}

	records := make([]*model.FileRecord, 0, len(files))
	for _, file := range files {
		result, err := s.uploader.UploadAttachment(file.Data, file.Filename)
		if err != nil {
			log.Printf("Failed to upload attachment %s: %v", file.Filename, err)
			return nil, fmt.Errorf("%w: %s", ErrUploadFailed, file.Filename)
		}
		records = append(records, &model.FileRecord{
			FileName: result.FileName,
			URL:      result.URL,
			FileType: result.FileType,
		})
	}
	return records, nil
}

// GetCommentByID gets a single comment with derived counters resolved
func (s *commentService) GetCommentByID(commentID uint64, viewerID *uint64) (*model.Comment, error) {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}
	s.counters.Enrich(comment, viewerID)
	return comment, nil
}

// GetCommentsByPost returns one page of a post's top-level comments under
// the requested sort order.
func (s *commentService) GetCommentsByPost(postID uint64, cursor string, limit int, sortType SortType, viewerID *uint64) (*CommentPage, error) {
	limit = clampLimit(limit)

	if _, err := s.postRepo.FindByID(postID); err != nil {
		return nil, ErrPostNotFound
	}

	var comments []*model.Comment
	var err error
	if sortType == SortTopLiked {
		comments, err = s.topLevelByTopLiked(postID, cursor, limit)
	} else {
		comments, err = s.topLevelByLatest(postID, cursor, limit)
	}
	if err != nil {
		return nil, err
	}

	return s.buildPage(comments, limit, sortType, viewerID), nil
}

func (s *commentService) topLevelByLatest(postID uint64, cursor string, limit int) ([]*model.Comment, error) {
	if cursor == "" {
		return s.commentRepo.FindTopLevelByPostLatest(postID, limit+1)
	}
	before, beforeID, err := DecodeLatestCursor(cursor)
	if err != nil {
		return nil, err
	}
	return s.commentRepo.FindTopLevelByPostLatestCursor(postID, before, beforeID, limit+1)
}

func (s *commentService) topLevelByTopLiked(postID uint64, cursor string, limit int) ([]*model.Comment, error) {
	if cursor == "" {
		return s.commentRepo.FindTopLevelByPostTopLiked(postID, limit+1)
	}
	likeCount, beforeID, err := DecodeTopLikedCursor(cursor)
	if err != nil {
		return nil, err
	}
	return s.commentRepo.FindTopLevelByPostTopLikedCursor(postID, likeCount, beforeID, limit+1)
}

// GetReplies returns one page of a comment's direct replies, newest first.
func (s *commentService) GetReplies(commentID uint64, cursor string, limit int, viewerID *uint64) (*CommentPage, error) {
	limit = clampLimit(limit)

	if _, err := s.commentRepo.FindByID(commentID); err != nil {
		return nil, ErrCommentNotFound
	}

	var replies []*model.Comment
	var err error
	if cursor == "" {
		replies, err = s.commentRepo.FindRepliesLatest(commentID, limit+1)
	} else {
		var before time.Time
		var beforeID uint64
		before, beforeID, err = DecodeLatestCursor(cursor)
		if err != nil {
			return nil, err
		}
		replies, err = s.commentRepo.FindRepliesLatestCursor(commentID, before, beforeID, limit+1)
	}
	if err != nil {
		return nil, err
	}

	return s.buildPage(replies, limit, SortLatest, viewerID), nil
}

// GetAllRepliesFlattened returns one page over all descendants of a comment,
// direct and nested, as a single newest-first list.
//
// The reply relationship is a tree, so a single cursor-bounded SQL query
// cannot express "all descendants before position X" without recursive query
// support. The whole subtree is materialized through repeated parent-keyed
// lookups and paginated in memory, with per-level fetches capped at
// maxSubtreeFetch. Very large threads are truncated at that cap.
func (s *commentService) GetAllRepliesFlattened(commentID uint64, cursor string, limit int, viewerID *uint64) (*CommentPage, error) {
	limit = clampLimit(limit)

	if _, err := s.commentRepo.FindByID(commentID); err != nil {
		return nil, ErrCommentNotFound
	}

	all, err := s.collectAllReplies(commentID)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if cursor != "" {
		before, beforeID, err := DecodeLatestCursor(cursor)
		if err != nil {
			return nil, err
		}
		filtered := all[:0]
		for _, c := range all {
			if c.CreatedAt.Before(before) || (c.CreatedAt.Equal(before) && c.ID < beforeID) {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}

	if len(all) > limit+1 {
		all = all[:limit+1]
	}

	return s.buildPage(all, limit, SortLatest, viewerID), nil
}

// collectAllReplies walks the subtree rooted at commentID depth-first
// through the parent index, never through in-memory back-pointers.
func (s *commentService) collectAllReplies(commentID uint64) ([]*model.Comment, error) {
	direct, err := s.commentRepo.FindRepliesLatest(commentID, maxSubtreeFetch)
	if err != nil {
		return nil, fmt.Errorf("load replies for comment %d: %w", commentID, err)
	}

	all := make([]*model.Comment, 0, len(direct))
	all = append(all, direct...)
	for _, reply := range direct {
		nested, err := s.collectAllReplies(reply.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, nested...)
	}
	return all, nil
}

// buildPage trims a limit+1 result set to one page, resolves counters and
// encodes the resume cursor from the last retained row.
func (s *commentService) buildPage(comments []*model.Comment, limit int, sortType SortType, viewerID *uint64) *CommentPage {
	hasNext := len(comments) > limit
	if hasNext {
		comments = comments[:limit]
	}

	s.counters.EnrichAll(comments, viewerID)

	var nextCursor *string
	if hasNext && len(comments) > 0 {
		last := comments[len(comments)-1]
		var encoded string
		if sortType == SortTopLiked {
			encoded = EncodeTopLikedCursor(last.LikeCount, last.ID)
		} else {
			encoded = EncodeLatestCursor(last.CreatedAt, last.ID)
		}
		nextCursor = &encoded
	}

	return &CommentPage{
		Comments:   comments,
		NextCursor: nextCursor,
		HasNext:    hasNext,
		Size:       len(comments),
	}
}

// UpdateComment updates a comment's content. Only the author may update;
// UpdatedAt is set here and nowhere else.
func (s *commentService) UpdateComment(userID, commentID uint64, req UpdateCommentRequest) (*model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > model.MaxContentLength {
		return nil, ErrContentTooLong
	}

	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}

	if comment.UserID != userID {
		return nil, ErrNotOwner
	}

	now := time.Now()
	comment.Content = content
	comment.UpdatedAt = &now

	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.counters.Enrich(comment, &userID)
	return comment, nil
}

// DeleteComment removes a comment and, through the storage cascade, its
// whole reply subtree with all likes and attachments.
func (s *commentService) DeleteComment(userID, commentID uint64) error {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return ErrCommentNotFound
	}

	if comment.UserID != userID {
		return ErrNotOwner
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// GetCommentCount gets the total comment count for a post, replies included
func (s *commentService) GetCommentCount(postID uint64) (int64, error) {
	return s.commentRepo.CountByPostID(postID)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit >= 100 {
		return defaultPageLimit
	}
	return limit
}
