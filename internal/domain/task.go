package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type TaskCategory string

const (
	CategoryDelivery  TaskCategory = "delivery"
	CategoryCleaning  TaskCategory = "cleaning"
	CategoryWriting   TaskCategory = "writing"
	CategoryDesign    TaskCategory = "design"
	CategoryEducation TaskCategory = "education"
	CategoryOther     TaskCategory = "other"
)

var categoryNames = map[TaskCategory]string{
	CategoryDelivery:  "Ремонт",
	CategoryCleaning:  "Уборка",
	CategoryWriting:   "Разработка",
	CategoryDesign:    "Дизайн",
	CategoryEducation: "Обучение",
	CategoryOther:     "Разное",
}

func (c TaskCategory) DisplayName() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return string(c)
}

type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "inProgress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	StartDate    string       `json:"startDate"`
	EndDate      *string      `json:"endDate,omitempty"`
	Category     TaskCategory `json:"category"`
	Status       TaskStatus   `json:"status"`
	HasResponses bool         `json:"hasResponses"`
	IsRemote     bool         `json:"isRemote"`
	Price        float64      `json:"price"`

	OwnerID        string `json:"ownerId,omitempty"`
	OwnerUsername  string `json:"ownerUsername,omitempty"`
	AuthorName     string `json:"authorName,omitempty"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	CreateDate     string `json:"create_date,omitempty"`
	ProposalsCount *int   `json:"proposalsCount,omitempty"`
	IsProposalSent *bool  `json:"isProposalSent,omitempty"`
}

// UnmarshalJSON accepts the several owner field spellings the backend has used.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var aux struct {
		plain
		OwnerIDSnake       *string `json:"owner_id"`
		CreatedBy          *string `json:"createdBy"`
		CreatedBySnake     *string `json:"created_by"`
		UserID             *string `json:"userId"`
		UserIDSnake        *string `json:"user_id"`
		OwnerUsernameSnake *string `json:"owner_username"`
		CreatedByUsername  *string `json:"createdByUsername"`
		CreatedByUserSnake *string `json:"created_by_username"`
		AuthorNameSnake    *string `json:"author_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ID == "" || aux.Title == "" {
		return fmt.Errorf("task: id and title are required")
	}

	*t = Task(aux.plain)
	if t.OwnerID == "" {
		t.OwnerID = firstNonEmpty(aux.OwnerIDSnake, aux.CreatedBy, aux.CreatedBySnake, aux.UserID, aux.UserIDSnake)
	}
	if t.OwnerUsername == "" {
		t.OwnerUsername = firstNonEmpty(aux.OwnerUsernameSnake, aux.CreatedByUsername, aux.CreatedByUserSnake)
	}
	if t.AuthorName == "" {
		t.AuthorName = firstNonEmpty(aux.AuthorNameSnake)
	}
	return nil
}

// DisplayOwnerName prefers the author name, then username, then id.
func (t Task) DisplayOwnerName() string {
	switch {
	case t.AuthorName != "":
		return t.AuthorName
	case t.OwnerUsername != "":
		return t.OwnerUsername
	default:
		return t.OwnerID
	}
}

func (t Task) FormattedPrice() string {
	return fmt.Sprintf("%d ₽", int(t.Price))
}

// Matches reports whether the local search query hits the task.
func (t Task) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Category.DisplayName()), q) ||
		strings.Contains(strings.ToLower(t.FormattedPrice()), q) ||
		(t.IsRemote && strings.Contains("удаленно", q)) ||
		(!t.HasResponses && strings.Contains("без откликов", q))
}

// NewTask is the body of POST /tasks/.
type NewTask struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Location     string       `json:"location"`
	Price        float64      `json:"price"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Category     TaskCategory `json:"category"`
	Status       TaskStatus   `json:"status"`
	HasResponses bool         `json:"hasResponses"`
	IsRemote     bool         `json:"isRemote"`
}

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
