package dto

// DueRemindersQuery bounds a dispatcher poll.
type DueRemindersQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=1000"`
}

// NotificationListQuery pages through the caller's notifications.
type NotificationListQuery struct {
	Page     int  `form:"page" validate:"omitempty,min=1"`
	PageSize int  `form:"page_size" validate:"omitempty,min=1,max=100"`
	Unread   bool `form:"unread"`
}
