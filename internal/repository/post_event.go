package repository

import (
	"Postpilot/internal/model"
	"time"

	"gorm.io/gorm"
)

func appendEvent(tx *gorm.DB, postID uint64, typ model.PostEventType, message string, data model.JSONMap, now time.Time) (*model.PostEvent, error) {
	event := &model.PostEvent{
		ScheduledPostID: postID,
		Type:            typ,
		Message:         message,
		Data:            data,
		CreatedAt:       now.UTC(),
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}
