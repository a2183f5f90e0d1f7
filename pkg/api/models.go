package api

// CheckRequest is the body of POST /check.
type CheckRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}
