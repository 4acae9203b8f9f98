package domain

type Contract struct {
	ID                 string   `json:"id"`
	TaskID             *string  `json:"taskId,omitempty"`
	FreelancerID       *string  `json:"freelancerId,omitempty"`
	HirerID            *string  `json:"hirerId,omitempty"`
	Amount             *float64 `json:"amount,omitempty"`
	Status             *string  `json:"status,omitempty"`
	CreatedAt          *string  `json:"createdAt,omitempty"`
	UpdatedAt          *string  `json:"updatedAt,omitempty"`
	Notes              *string  `json:"notes,omitempty"`
	IsContractAccepted *bool    `json:"isContractAccepted,omitempty"`
	FreelancerName     *string  `json:"freelancerName,omitempty"`
	HirerName          *string  `json:"hirerName,omitempty"`
}

func (c Contract) FormattedDate() string {
	if c.CreatedAt == nil {
		return ""
	}
	return FormatTimestamp(*c.CreatedAt)
}

// NewContract is the body of POST /contracts/.
type NewContract struct {
	TaskID       string  `json:"taskId"`
	FreelancerID string  `json:"freelancerId"`
	HirerID      string  `json:"hirerId"`
	Amount       float64 `json:"amount"`
}

// Proposal is a freelancer's response to a task.
type Proposal struct {
	ID                string `json:"id"`
	TaskID            string `json:"taskId"`
	SenderID          string `json:"senderId"`
	SenderName        string `json:"senderName"`
	CoverLetter       string `json:"coverLetter"`
	CreatedAt         string `json:"createdAt"`
	IsContractOffered *bool  `json:"isContractOffered,omitempty"`
}
