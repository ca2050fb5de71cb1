package repository

import (
	"time"

	"eventfeed/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(notification *model.Notification) error
	FindByID(id uint64) (*model.Notification, error)
	FindByUserID(userID uint64, limit, offset int) ([]*model.Notification, error)
	CountUnreadByUserID(userID uint64) (int64, error)
	MarkAsRead(id uint64) error
	MarkAllAsRead(userID uint64) error
	Delete(id uint64) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(notification *model.Notification) error {
	return r.db.Create(notification).Error
}

func (r *notificationRepository) FindByID(id uint64) (*model.Notification, error) {
	var notification model.Notification
	err := r.db.Preload("Sender").Where("id = ?", id).First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) FindByUserID(userID uint64, limit, offset int) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.Preload("Sender").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnreadByUserID(userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(id uint64) error {
	now := time.Now()
	return r.db.Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now}).Error
}

func (r *notificationRepository) MarkAllAsRead(userID uint64) error {
	now := time.Now()
	return r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now}).Error
}

func (r *notificationRepository) Delete(id uint64) error {
	return r.db.Delete(&model.Notification{}, id).Error
}
