package models

// ReviewEvent is the pull-request-review webhook shape delivered by the
// code-hosting platform: one review submission plus its inline comments.
type ReviewEvent struct {
	Review   Review          `json:"review"`
	Comments []ReviewComment `json:"comments"`
}

// Review is the review object of a pull-request-review event.
type Review struct {
	ID    int64      `json:"id"`
	User  ReviewUser `json:"user"`
	State string     `json:"state"`
	Body  string     `json:"body"`
}

// ReviewUser identifies the review author.
type ReviewUser struct {
	Login string `json:"login"`
}

// ReviewComment is one inline comment attached to a review. Path and Line
// are zero when the comment carries no file context.
type ReviewComment struct {
	ID   int64  `json:"id"`
	Path string `json:"path,omitempty"`
	Line int    `json:"line,omitempty"`
	Body string `json:"body"`
}
