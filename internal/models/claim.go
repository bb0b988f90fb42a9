package models

import "time"

// ClaimStatus is the review state of a claim.
type ClaimStatus string

const (
	StatusPending    ClaimStatus = "Pending"
	StatusInProgress ClaimStatus = "In Progress"
	StatusResolved   ClaimStatus = "Resolved"
)

// Valid reports whether s is a known status. Transitions between statuses are not restricted.
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Claim is an accident claim submitted by a verified user.
type Claim struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	IncidentDate     time.Time   `json:"date"`
	AccidentImages   []string    `json:"accident_images"`
	PoliceReport     string      `json:"police_report,omitempty"`
	InsuranceReceipt string      `json:"insurance_receipt,omitempty"`
	Status           ClaimStatus `json:"status"`
	Progress         int         `json:"progress"`
	Version          int         `json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	Owner            *Owner      `json:"users,omitempty"`
}

// Owner is the expanded subset of the user who owns a record.
type Owner struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	CarNumber   string `json:"car_number,omitempty"`
}

// ClaimSummary is the public progress view of a claim shown on the landing page.
type ClaimSummary struct {
	ID        string      `json:"id"`
	Status    ClaimStatus `json:"status"`
	Progress  int         `json:"progress"`
	CreatedAt time.Time   `json:"created_at"`
}

// ClaimUpdate is an append-only audit entry written for each admin claim edit.
type ClaimUpdate struct {
	ID          string      `json:"id"`
	ClaimID     string      `json:"claim_id"`
	UpdatedBy   string      `json:"updated_by"`
	NewStatus   ClaimStatus `json:"new_status"`
	NewProgress int         `json:"new_progress"`
	Note        string      `json:"note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
