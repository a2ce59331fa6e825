// pkg/model/company.go
package model

// RejectReason names the rule that rejected a company name
type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonEmpty          RejectReason = "Empty"
	ReasonExcelError     RejectReason = "Excel error"
	ReasonTestData       RejectReason = "Test data"
	ReasonConfidential   RejectReason = "Confidential"
	ReasonClientOf       RejectReason = "Client of"
	ReasonEmail          RejectReason = "Email"
	ReasonWorkAt         RejectReason = "Work at"
	ReasonPersonalDomain RejectReason = "Personal domain"
	ReasonMalformed      RejectReason = "Malformed"
	ReasonTooShort       RejectReason = "Too short"
	ReasonGeneric        RejectReason = "Generic"
	ReasonHiringFor      RejectReason = "Hiring For"
	ReasonNumberedPrefix RejectReason = "Numbered prefix"
	ReasonAddress        RejectReason = "Address"
	ReasonHTMLEntity     RejectReason = "HTML entity"
	ReasonTooFewAlpha    RejectReason = "Too few alpha"
)

// Verdict classifies a sanitized company name
type Verdict struct {
	Valid  bool
	Reason RejectReason // empty when Valid
}

// Accept returns a positive verdict
func Accept() Verdict {
	return Verdict{Valid: true}
}

// Reject returns a negative verdict with the given reason
func Reject(reason RejectReason) Verdict {
	return Verdict{Valid: false, Reason: reason}
}

// String renders the verdict for logs and CLI output
func (v Verdict) String() string {
	if v.Valid {
		return "valid"
	}
	return "rejected: " + string(v.Reason)
}
