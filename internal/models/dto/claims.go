package dto

import "github.com/ong-aas/claims-portal/internal/models"

type ClaimRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Date             string   `json:"date"`
	AccidentImages   []string `json:"accident_images"`
	PoliceReport     string   `json:"police_report"`
	InsuranceReceipt string   `json:"insurance_receipt"`
}

type ClaimEditRequest struct {
	Status   models.ClaimStatus `json:"status"`
	Progress int                `json:"progress"`
	Note     string             `json:"note"`
	Version  int                `json:"version"`
}

type VerifyUserRequest struct {
	Version int `json:"version"`
}

type PostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Media   string `json:"media"`
	Version int    `json:"version"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

// AdminMutation pairs the mutated record with freshly recomputed dashboard counters.
type AdminMutation struct {
	Item  any          `json:"item,omitempty"`
	Stats models.Stats `json:"stats"`
}
