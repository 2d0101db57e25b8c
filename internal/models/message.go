package models

// Message represents a confirmed chat message in a thread. ID is the ULID of
// the submission it confirms; Timestamp is in Unix milliseconds.
type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread"`
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"`
}

// Pending represents a submitted message whose send has not completed.
type Pending struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SubmittedAt int64  `json:"submitted_at"`
}

// Entry is one row of the derived message view.
type Entry struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Sending bool   `json:"sending,omitempty"`
}

// Failure records a submission that was rolled back.
type Failure struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Error    string `json:"error"`
	FailedAt int64  `json:"failed_at"`
}
