package templates

const reminderSubject = "Påminnelse: {{document_title}} utløper {{expiry_date}}"

const reminderHTML = `<!DOCTYPE html>
<html lang="no">
<head>
  <meta charset="utf-8">
  <title>Dokument utløper snart</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #1e40af;">Dokument utløper snart</h1>
    <p>Hei,</p>
    <p>Dette er en påminnelse om at følgende dokument for <strong>{{company_name}}</strong> snart utløper:</p>
    <div style="background-color: #f3f4f6; padding: 15px; border-radius: 8px; margin: 20px 0;">
      <p style="margin: 0;"><strong>Dokument:</strong> {{document_title}}</p>
      <p style="margin: 0;"><strong>Kategori:</strong> {{document_category}}</p>
      <p style="margin: 0;"><strong>Utløpsdato:</strong> {{expiry_date}}</p>
      <p style="margin: 0;"><strong>Dager igjen:</strong> {{days_until_expiry}}</p>
    </div>
    <p>Vennligst sørg for at dokumentet fornyes før utløpsdatoen.</p>
    <p style="color: #6b7280; font-size: 12px; margin-top: 30px;">
      Denne e-posten er sendt automatisk fra AviSafe. Du kan endre varslingsinnstillingene dine i AviSafe.
    </p>
  </div>
</body>
</html>`

// defaultTemplate returns the built-in subject and body for a template type.
// document_reminder is the only type so far; other types get it as well.
func defaultTemplate(string) (subject, content string) {
	return reminderSubject, reminderHTML
}
