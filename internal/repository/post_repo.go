package repository

import (
	"eventfeed/internal/model"

	"gorm.io/gorm"
)

type PostRepository interface {
	FindByID(id uint64) (*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// FindByID finds a post by ID with its owner loaded
func (r *postRepository) FindByID(id uint64) (*model.Post, error) {
	var post model.Post
	err := r.db.Preload("User").Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}
