package models

// Pagination mirrors the backend's page envelope so clients can follow it.
type Pagination struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Page     int    `json:"page,omitempty"`
}
