package repository

import (
	"eventfeed/internal/model"

	"gorm.io/gorm"
)

type LikeRepository interface {
	Create(like *model.Like) error
	FindByUserAndComment(userID, commentID uint64) (*model.Like, error)
	CountByComment(commentID uint64) (int64, error)
	CountByComments(commentIDs []uint64) (map[uint64]int64, error)
	FindUserLikedComments(userID uint64, commentIDs []uint64) (map[uint64]bool, error)
	DeleteByUserAndComment(userID, commentID uint64) error
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(like *model.Like) error {
	return r.db.Create(like).Error
}

// FindByUserAndComment finds a like by user and comment (to check if the
// user already liked).
func (r *likeRepository) FindByUserAndComment(userID, commentID uint64) (*model.Like, error) {
	var like model.Like
	err := r.db.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// CountByComment counts likes for a comment. Never cached: the count must
// reflect concurrent likes on the very next read.
func (r *likeRepository) CountByComment(commentID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Like{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}

// CountByComments counts likes for multiple comments in one query
func (r *likeRepository) CountByComments(commentIDs []uint64) (map[uint64]int64, error) {
	if len(commentIDs) == 0 {
		return map[uint64]int64{}, nil
	}
	var results []struct {
		CommentID uint64
		Count     int64
	}
	err := r.db.Model(&model.Like{}).
		Select("comment_id, count(*) as count").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]int64)
	for _, row := range results {
		m[row.CommentID] = row.Count
	}
	for _, id := range commentIDs {
		if _, ok := m[id]; !ok {
			m[id] = 0
		}
	}
	return m, nil
}

// FindUserLikedComments returns which of the comments the user has liked
func (r *likeRepository) FindUserLikedComments(userID uint64, commentIDs []uint64) (map[uint64]bool, error) {
	if len(commentIDs) == 0 {
		return map[uint64]bool{}, nil
	}
	var likes []model.Like
	err := r.db.Select("comment_id").
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]bool)
	for _, like := range likes {
		m[like.CommentID] = true
	}
	return m, nil
}

// DeleteByUserAndComment deletes a like by user and comment (unlike)
func (r *likeRepository) DeleteByUserAndComment(userID, commentID uint64) error {
	return r.db.Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&model.Like{}).Error
}
