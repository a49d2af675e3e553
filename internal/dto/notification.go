package dto

// UnreadCountResponse wraps the unread counter.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// AffectedResponse reports how many rows a bulk operation touched.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}
