package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"eventfeed/internal/model"
	"eventfeed/internal/util"

	"gorm.io/gorm"
)

// CommentRepository is the thread store. Every list query is ordered and
// cursor-filtered in SQL; callers pass limit+1 to detect a further page.
type CommentRepository interface {
	Create(comment *model.Comment, files []*model.FileRecord) error
	FindByID(id uint64) (*model.Comment, error)
	FindTopLevelByPostLatest(postID uint64, limit int) ([]*model.Comment, error)
	FindTopLevelByPostLatestCursor(postID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error)
	FindTopLevelByPostTopLiked(postID uint64, limit int) ([]*model.Comment, error)
	FindTopLevelByPostTopLikedCursor(postID uint64, likeCount int64, beforeID uint64, limit int) ([]*model.Comment, error)
	FindRepliesLatest(parentID uint64, limit int) ([]*model.Comment, error)
	FindRepliesLatestCursor(parentID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error)
	Update(comment *model.Comment) error
	Delete(id uint64) error
	CountByPostID(postID uint64) (int64, error)
	CountByParentID(parentID uint64) (int64, error)
}

type commentRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	commentCachePrefix     = "comment:"
	commentCacheExpiration = 15 * time.Minute

	// Correlated subquery so ordering always reflects the live like count.
	likeCountExpr = "(SELECT COUNT(*) FROM likes WHERE likes.comment_id = comments.id)"
)

func NewCommentRepository(db *gorm.DB, redis *util.RedisClient) CommentRepository {
	return &commentRepository{
		db:    db,
		redis: redis,
	}
}

// Create persists a comment together with its attachment records in one
// transaction, so a failure leaves neither behind.
func (r *commentRepository) Create(comment *model.Comment, files []*model.FileRecord) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		for _, file := range files {
			file.CommentID = &comment.ID
			if err := tx.Create(file).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, file := range files {
		comment.Files = append(comment.Files, *file)
	}
	return nil
}

// FindByID finds a comment by ID with author, parent and attachments loaded
func (r *commentRepository) FindByID(id uint64) (*model.Comment, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getFromCache(fmt.Sprintf("%s%d", commentCachePrefix, id))
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var comment model.Comment
	err := r.db.Preload("User").Preload("Parent").Preload("Parent.User").Preload("Files").
		Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.cacheComment(&comment)
	}

	return &comment, nil
}

// FindTopLevelByPostLatest returns the newest top-level comments of a post,
// ties broken by id descending.
func (r *commentRepository) FindTopLevelByPostLatest(postID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Files").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// FindTopLevelByPostLatestCursor resumes the LATEST ordering strictly after
// the (before, beforeID) position.
func (r *commentRepository) FindTopLevelByPostLatestCursor(postID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Files").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Where("created_at < ? OR (created_at = ? AND id < ?)", before, before, beforeID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// FindTopLevelByPostTopLiked returns top-level comments ordered by live like
// count, ties broken by id descending (newest among equals, and the same
// tuple the cursor comparison uses).
func (r *commentRepository) FindTopLevelByPostTopLiked(postID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Files").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order(likeCountExpr + " DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// FindTopLevelByPostTopLikedCursor resumes the TOP_LIKED ordering using
// lexicographic comparison on the (like count, id) tuple.
func (r *commentRepository) FindTopLevelByPostTopLikedCursor(postID uint64, likeCount int64, beforeID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Files").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Where(likeCountExpr+" < ? OR ("+likeCountExpr+" = ? AND id < ?)", likeCount, likeCount, beforeID).
		Order(likeCountExpr + " DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// FindRepliesLatest returns the newest direct replies of a comment.
func (r *commentRepository) FindRepliesLatest(parentID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Parent").Preload("Parent.User").Preload("Files").
		Where("parent_id = ?", parentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// FindRepliesLatestCursor resumes the reply listing strictly after the
// (before, beforeID) position.
func (r *commentRepository) FindRepliesLatestCursor(parentID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").Preload("Parent").Preload("Parent.User").Preload("Files").
		Where("parent_id = ?", parentID).
		Where("created_at < ? OR (created_at = ? AND id < ?)", before, before, beforeID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// Update updates a comment and invalidates its cache entry
func (r *commentRepository) Update(comment *model.Comment) error {
	if err := r.db.Save(comment).Error; err != nil {
		return err
	}

	if r.redis != nil {
		r.invalidateCommentCache(comment.ID)
	}

	return nil
}

// Delete removes a comment. The database cascades to replies, likes and
// attachment records, so every comment in the subtree must be dropped from
// the cache as well — the IDs are collected before the rows are gone.
func (r *commentRepository) Delete(id uint64) error {
	ids, err := r.collectSubtreeIDs(id)
	if err != nil {
		return err
	}

	if err := r.db.Delete(&model.Comment{}, id).Error; err != nil {
		return err
	}

	if r.redis != nil {
		for _, cid := range ids {
			r.invalidateCommentCache(cid)
		}
	}

	return nil
}

// collectSubtreeIDs walks the reply tree level by level and returns the root
// together with every descendant.
func (r *commentRepository) collectSubtreeIDs(rootID uint64) ([]uint64, error) {
	ids := []uint64{rootID}
	frontier := []uint64{rootID}
	for len(frontier) > 0 {
		var children []uint64
		err := r.db.Model(&model.Comment{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// CountByPostID counts all comments on a post, replies included
func (r *commentRepository) CountByPostID(postID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// CountByParentID counts direct replies of a comment
func (r *commentRepository) CountByParentID(parentID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// Cache helpers
func (r *commentRepository) cacheComment(comment *model.Comment) {
	commentJSON, err := json.Marshal(comment)
	if err != nil {
		return
	}
	r.redis.Set(fmt.Sprintf("%s%d", commentCachePrefix, comment.ID), string(commentJSON), commentCacheExpiration)
}

func (r *commentRepository) getFromCache(key string) (*model.Comment, error) {
	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var comment model.Comment
	if err := json.Unmarshal([]byte(cached), &comment); err != nil {
		return nil, err
	}

	return &comment, nil
}

func (r *commentRepository) invalidateCommentCache(id uint64) {
	r.redis.Delete(fmt.Sprintf("%s%d", commentCachePrefix, id))
}
