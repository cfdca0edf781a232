package sweep

import (
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/Avisafety/avisafe-sub001/internal/expiry"
	"github.com/Avisafety/avisafe-sub001/internal/models"
	"github.com/Avisafety/avisafe-sub001/internal/templates"
)

// CompanyBatch is the due documents of one company in store order.
type CompanyBatch struct {
	CompanyID string
	Documents []models.Document
}

// dueDocuments keeps the documents whose reminder day is today.
func dueDocuments(docs []models.Document, today civil.Date) []models.Document {
	var due []models.Document
	for _, doc := range docs {
		if expiry.IsDue(doc, today) {
			due = append(due, doc)
		}
	}
	return due
}

// groupByCompany partitions docs in one pass. Companies appear in the order
// their first document was seen.
func groupByCompany(docs []models.Document) []CompanyBatch {
	index := make(map[string]int)
	var batches []CompanyBatch
	for _, doc := range docs {
		i, ok := index[doc.CompanyID]
		if !ok {
			i = len(batches)
			index[doc.CompanyID] = i
			batches = append(batches, CompanyBatch{CompanyID: doc.CompanyID})
		}
		batches[i].Documents = append(batches[i].Documents, doc)
	}
	return batches
}

func documentFields(doc models.Document, companyName, locale string, today civil.Date) templates.Fields {
	fields := templates.Fields{
		templates.TokenDocumentTitle:    doc.Title,
		templates.TokenCompanyName:      companyName,
		templates.TokenDocumentCategory: doc.Category,
	}
	if doc.ExpiresOn != nil {
		fields[templates.TokenExpiryDate] = expiry.FormatLongDate(*doc.ExpiresOn, locale)
		fields[templates.TokenDaysUntilExpiry] = strconv.Itoa(doc.ExpiresOn.DaysSince(today))
	}
	return fields
}
