package history

import "time"

// WalkSession is one authenticated walk through the feedback loop, keyed by
// the preference ID the API issued for it.
type WalkSession struct {
	PreferenceID string
	AIID         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Completed    bool
}

// FeedbackEvent is one submitted feedback decision and the candidate image
// the API answered with.
type FeedbackEvent struct {
	ID           string
	PreferenceID string
	Iteration    int
	Feedback     string
	Style        string
	ImageKey     string
	ImageURL     string
	Timestamp    time.Time
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
