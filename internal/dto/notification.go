package dto

// SendNotificationRequest targets one recipient or every student enrolled in a course.
type SendNotificationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required_without=CourseID"`
	CourseID    string `json:"course_id" validate:"required_without=RecipientID"`
	Title       string `json:"title" validate:"required,max=200"`
	Message     string `json:"message" validate:"required,max=4000"`
}

// SendNotificationResponse reports how many rows were stored.
type SendNotificationResponse struct {
	Delivered int `json:"delivered"`
}

// UnreadCountResponse is the badge count.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
