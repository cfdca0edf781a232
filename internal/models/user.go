package models

// UserAccount is a profile row. Only approved accounts receive mail.
type UserAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	CompanyID string `json:"companyId"`
	Approved  bool   `json:"approved"`
}

// NotificationPreference holds the per-user mail flags. A user without a row
// has every category disabled.
type NotificationPreference struct {
	UserID         string `json:"userId"`
	DocumentExpiry bool   `json:"documentExpiry"` // email_document_expiry
}
