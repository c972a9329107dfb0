package domain

import "time"

// CtRecord is an operator-entered commission-tracking figure, the "reported"
// side of reconciliation. The amount is stored exactly as entered and parsed
// at match time; an unparsable amount becomes a MissingReported verdict
// rather than an error.
type CtRecord struct {
	ID        string    `json:"id"`
	Period    time.Time `json:"period"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
