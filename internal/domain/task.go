package domain

// ExpiryResult summarizes one reservation-expiry sweep.
type ExpiryResult struct {
	Expired  int `json:"expired"`
	Promoted int `json:"promoted"`
	Failed   int `json:"failed"`
}

// NotificationResult summarizes one mailing batch.
type NotificationResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
