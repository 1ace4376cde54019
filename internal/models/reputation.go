// v0
// internal/models/reputation.go
package models

// Review is feedback left on one of a creator's models.
type Review struct {
	ModelID   string `json:"modelId"`
	VoterID   string `json:"voterId"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// UserReputation is the running trust state of one participant.
type UserReputation struct {
	UserID       string   `json:"userId"`
	Score        float64  `json:"score"`
	TotalVotes   int      `json:"totalVotes"`
	ModelsShared int      `json:"modelsShared"`
	Reviews      []Review `json:"reviews"`
}

// Clone copies the review slice so callers can hold the value freely.
func (u UserReputation) Clone() UserReputation {
	cp := u
	cp.Reviews = append([]Review(nil), u.Reviews...)
	return cp
}

// Vote is one rating of a model. Votes are stored per model and never edited.
type Vote struct {
	ModelID   string `json:"modelId"`
	VoterID   string `json:"voterId"`
	Rating    int    `json:"rating"`
	Review    string `json:"review"`
	Timestamp int64  `json:"timestamp"`
}

const (
	MinRating = 1
	MaxRating = 5
)
