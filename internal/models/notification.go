package models

// EmailTemplate is a company override for one template type.
type EmailTemplate struct {
	CompanyID    string `json:"companyId"`
	TemplateType string `json:"templateType"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
}

// Message is a rendered email.
type Message struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
