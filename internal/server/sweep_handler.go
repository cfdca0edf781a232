package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/validation"
	"github.com/Avisafety/avisafe-sub001/internal/expiry"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
)

const nothingToDoMessage = "No documents require notification today"

var sweepRequestSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "date":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "dryRun": {"type": "boolean"}
  }
}`)

// sweepRequest is the optional trigger body. Other fields are ignored.
type sweepRequest struct {
	Date   string `json:"date"`
	DryRun bool   `json:"dryRun"`
}

func (s *Server) handleSweep(c *gin.Context) {
	s.writeCORSHeaders(c)
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}

	req, err := s.parseRequest(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	report, err := s.runner.Run(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if report.NothingToDo {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": nothingToDoMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"documentsChecked": report.DocumentsChecked,
		"emailsSent":       report.EmailsSent,
		"emailsFailed":     report.EmailsFailed,
		"emailsSkipped":    report.EmailsSkipped,
		"companiesSkipped": report.CompaniesSkipped,
		"runId":            report.RunID,
		"runDate":          report.RunDate.String(),
		"dryRun":           report.DryRun,
	})
}

// parseRequest reads the optional JSON body. Without a date the run date is
// today in the report timezone.
func (s *Server) parseRequest(c *gin.Context) (sweep.RunRequest, error) {
	req := sweep.RunRequest{Date: expiry.Today(s.now(), s.loc)}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return req, errors.NewInvalidRequestError("unreadable body: " + err.Error())
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}

	if result := sweepRequestSchema.ValidateBytes(body); !result.Valid {
		return req, errors.NewInvalidRequestError(result.Summary())
	}

	var in sweepRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return req, errors.NewInvalidRequestError(err.Error())
	}

	if in.Date != "" {
		date, err := civil.ParseDate(in.Date)
		if err != nil {
			return req, errors.NewInvalidRequestError("date: " + err.Error())
		}
		req.Date = date
	}
	req.DryRun = in.DryRun
	return req, nil
}

func (s *Server) writeCORSHeaders(c *gin.Context) {
	h := c.Writer.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	if se, ok := errors.AsStandardError(err); ok {
		status = errors.HTTPStatus(se.Code)
		body["code"] = se.Code
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("sweep request failed", map[string]interface{}{"error": err})
	} else {
		s.logger.Warn("sweep request rejected", map[string]interface{}{"error": err, "status": status})
	}

	c.JSON(status, body)
}
