package domain

// HistoryMessage is one earlier turn of the conversation
type HistoryMessage struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content"`
}

// ChatRequest is the inbound chat message
type ChatRequest struct {
	Message      string           `json:"message" validate:"required,max=4000"`
	History      []HistoryMessage `json:"history" validate:"max=50,dive"`
	SalesRepName string           `json:"sales_rep_name" validate:"max=200"`
}

// ChatResponse carries the reply shown to the user
type ChatResponse struct {
	Reply string `json:"reply"`
}

// StatusResponse is returned by the root endpoint
type StatusResponse struct {
	Message string `json:"message"`
}
