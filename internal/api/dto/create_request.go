package dto

// CreateRequest is the JSON body for creating a reminder. The date uses the
// DD.MM.YYYY format.
type CreateRequest struct {
	Subject string `json:"subject" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Text    string `json:"text" validate:"required"`
}
