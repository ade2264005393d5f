package model

import "time"

// Contact holds the homeowner's contact details.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// Lead is a contact request derived from an assessment.
type Lead struct {
	ID          string    `json:"id"`
	Contact     Contact   `json:"contact"`
	Fingerprint string    `json:"fingerprint"`
	Action      Action    `json:"action"`
	RuleID      string    `json:"rule_id"`
	HealthScore int       `json:"health_score"`
	Urgency     Urgency   `json:"urgency"`
	Budget      float64   `json:"budget"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReminderStatus tracks whether a reminder was delivered.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
)

// Reminder is a scheduled maintenance nudge for a lead.
type Reminder struct {
	ID        string         `json:"id"`
	LeadID    string         `json:"lead_id"`
	Task      TaskType       `json:"task"`
	Title     string         `json:"title"`
	DueAt     time.Time      `json:"due_at"`
	Status    ReminderStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
