package models

// CardRequest is the payload posted to the card validation backend.
// Date is nil when the entered date could not be parsed and encodes as null.
type CardRequest struct {
	Card string  `json:"card"`
	CVV  string  `json:"cvv"`
	Date *string `json:"date"`
}

// CardResponse is what came back from the backend. Body fields the server
// did not send are left empty.
type CardResponse struct {
	StatusCode int
	Success    string
	Failed     string
	WrongInput WrongInput
}

// Notification is the modal shown after a submission resolves
type Notification struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	Icon        string `json:"icon"`
	ConfirmText string `json:"confirmButtonText"`
}

// SuccessNotification builds the modal for an accepted card
func SuccessNotification(text string) Notification {
	return Notification{Title: "Success!", Text: text, Icon: "success", ConfirmText: "Cool"}
}

// ErrorNotification builds the modal for a rejected card
func ErrorNotification(text string) Notification {
	return Notification{Title: "Error!", Text: text, Icon: "error", ConfirmText: "Cool"}
}
