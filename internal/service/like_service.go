package service

import (
	"fmt"

	"eventfeed/internal/model"
	"eventfeed/internal/repository"
)

type LikeService interface {
	LikeComment(userID, commentID uint64) error
	UnlikeComment(userID, commentID uint64) error
	GetLikeCount(commentID uint64) (int64, error)
	CheckUserLiked(userID, commentID uint64) (bool, error)
}

type likeService struct {
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	notifier    NotificationService
}

func NewLikeService(
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
) LikeService {
	return &likeService{
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// LikeComment records a like. Liking an already-liked comment is a no-op,
// so retried requests cannot inflate the count.
func (s *likeService) LikeComment(userID, commentID uint64) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return ErrUserNotFound
	}

	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return ErrCommentNotFound
	}

	existing, err := s.likeRepo.FindByUserAndComment(userID, commentID)
	if err == nil && existing != nil {
		return nil
	}

	like := &model.Like{
		UserID:    userID,
		CommentID: commentID,
	}
	if err := s.likeRepo.Create(like); err != nil {
		return fmt.Errorf("failed to like comment: %w", err)
	}

	if comment.UserID != userID {
		s.notifier.NotifyCommentLiked(comment.UserID, userID, user.DisplayName(), comment.ID)
	}
	return nil
}

// UnlikeComment removes a like. Unliking a comment that was never liked is
// a no-op.
func (s *likeService) UnlikeComment(userID, commentID uint64) error {
	if _, err := s.commentRepo.FindByID(commentID); err != nil {
		return ErrCommentNotFound
	}
	return s.likeRepo.DeleteByUserAndComment(userID, commentID)
}

func (s *likeService) GetLikeCount(commentID uint64) (int64, error) {
	if _, err := s.commentRepo.FindByID(commentID); err != nil {
		return 0, ErrCommentNotFound
	}
	return s.likeRepo.CountByComment(commentID)
}

func (s *likeService) CheckUserLiked(userID, commentID uint64) (bool, error) {
	like, err := s.likeRepo.FindByUserAndComment(userID, commentID)
	if err != nil {
		return false, nil
	}
	return like != nil, nil
}
