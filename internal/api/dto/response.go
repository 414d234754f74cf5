package dto

// Response envelope of every API answer
type Response struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// PageDTO offset pagination
type PageDTO struct {
	Offset int `form:"offset" validate:"gte=0"`
	Limit  int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// PageResult list payload with the total before pagination
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
