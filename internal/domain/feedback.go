package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Review is one entry of GET /feedback/user/{id}.
type Review struct {
	ID             string
	ReviewerName   string
	Rating         *int
	ReviewContent  string
	CommentContent string
	CreatedAt      string
}

func (r *Review) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID               string          `json:"id"`
		ReviewerName     string          `json:"reviewerName"`
		ReviewerUsername string          `json:"reviewerUsername"`
		UserName         string          `json:"userName"`
		Rating           json.RawMessage `json:"rating"`
		ReviewContent    string          `json:"reviewContent"`
		CommentContent   string          `json:"commentContent"`
		CreatedAt        string          `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Review{
		ID:             raw.ID,
		ReviewerName:   raw.ReviewerName,
		ReviewContent:  raw.ReviewContent,
		CommentContent: raw.CommentContent,
		CreatedAt:      raw.CreatedAt,
		Rating:         parseRating(raw.Rating),
	}
	if r.ReviewerName == "" {
		r.ReviewerName = raw.ReviewerUsername
	}
	if r.ReviewerName == "" {
		r.ReviewerName = raw.UserName
	}
	return nil
}

// parseRating accepts 4, 4.6 and "4".
func parseRating(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		v := int(math.Round(f))
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return &v
		}
	}
	return nil
}

// DisplayRating clamps the rating into 0..5.
func (r Review) DisplayRating() int {
	if r.Rating == nil {
		return 0
	}
	return max(0, min(*r.Rating, 5))
}

// NewFeedback is the body of POST /feedback/.
type NewFeedback struct {
	UserID         string `json:"userId"`
	Rating         int    `json:"rating"`
	ReviewContent  string `json:"reviewContent"`
	CommentContent string `json:"commentContent"`
}
