package models

import "cloud.google.com/go/civil"

// DefaultLeadDays applies when a document has no varsel_dager_for_utløp value.
const DefaultLeadDays = 30

// Document is a row of the documents table as the sweep sees it.
type Document struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`    // tittel
	Category  string      `json:"category"` // kategori
	CompanyID string      `json:"companyId"`
	ExpiresOn *civil.Date `json:"expiresOn,omitempty"` // gyldig_til
	LeadDays  *int        `json:"leadDays,omitempty"`  // varsel_dager_for_utløp
}

type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"` // navn
}
