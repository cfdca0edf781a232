package documentexpirysweep

// Output is written back as process variables.
type Output struct {
	Success          bool   `json:"sweepSuccess"`
	RunID            string `json:"sweepRunId"`
	RunDate          string `json:"sweepRunDate"`
	NothingToDo      bool   `json:"sweepNothingToDo"`
	DocumentsChecked int    `json:"documentsChecked"`
	EmailsSent       int    `json:"emailsSent"`
	EmailsFailed     int    `json:"emailsFailed"`
	EmailsSkipped    int    `json:"emailsSkipped"`
	CompaniesSkipped int    `json:"companiesSkipped"`
	DryRun           bool   `json:"dryRun"`
}

// inputSchema covers the optional date and dryRun job variables. Other process
// variables pass through.
const inputSchema = `{
  "type": "object",
  "properties": {
    "date":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "dryRun": {"type": "boolean"}
  }
}`
