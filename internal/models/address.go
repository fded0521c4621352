package models

type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}
