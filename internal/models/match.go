package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusRejected  MatchStatus = "rejected"
)

// RankedMatch is one scored catalog entry in ranking order.
type RankedMatch struct {
	BusinessID  string  `json:"businessId"`
	CompanyName string  `json:"companyName"`
	Score       float64 `json:"score"`
}

// MatchRecord is a persisted customer/business pairing.
type MatchRecord struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customerId"`
	BusinessID  string      `json:"businessId"`
	CompanyName string      `json:"companyName,omitempty"`
	Score       float64     `json:"score"`
	Status      MatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// MatchView joins a match with the business it points at, as shown on the
// matching results page.
type MatchView struct {
	MatchRecord
	Services     map[string]interface{} `json:"services"`
	ServiceAreas []string               `json:"serviceAreas"`
}

type TransactionRecord struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	BusinessID string    `json:"businessId"`
	Amount     float64   `json:"amount"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}
