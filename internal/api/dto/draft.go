package dto

import (
	"Postpilot/internal/model"
	"time"
)

type DraftDTO struct {
	ID           uint64            `json:"id"`
	SourceItemID *uint64           `json:"source_item_id,omitempty"`
	Text         string            `json:"text"`
	Status       model.DraftStatus `json:"status"`
	Meta         map[string]any    `json:"meta,omitempty"`
	SourceTitle  string            `json:"source_title,omitempty"`
	SourceURL    string            `json:"source_url,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type DraftListDTO struct {
	PageDTO
	Status string `form:"status" validate:"omitempty,oneof=DRAFT APPROVED REJECTED SCHEDULED POSTED"`
}
