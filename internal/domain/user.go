package domain

import "github.com/google/uuid"

// UserSummary is one hit of GET /users/search.
type UserSummary struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	ProfileImage      *string   `json:"profileImage,omitempty"`
	Bio               string    `json:"bio"`
	IsFreelancer      bool      `json:"isFreelancer"`
	Skills            []string  `json:"skills"`
	HourlyRate        *float64  `json:"hourlyRate,omitempty"`
	Rating            float64   `json:"rating"`
	CompletedProjects int       `json:"completedProjects"`
}

// UserInfo is GET /users/info?userId=.
type UserInfo struct {
	Name           string   `json:"name"`
	TasksCompleted int      `json:"tasksCompleted"`
	Rating         *float64 `json:"rating,omitempty"`
}
