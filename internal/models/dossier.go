// internal/models/dossier.go
package models

import "time"

// Dossier is the server-tracked client-product-eligibility record.
type Dossier struct {
	ID          string                 `json:"id"`
	ClientID    string                 `json:"clientId"`
	ProductID   string                 `json:"productId"`
	ExpertID    string                 `json:"expertId,omitempty"`
	CurrentStep int                    `json:"currentStep"`
	Progress    int                    `json:"progress"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}
