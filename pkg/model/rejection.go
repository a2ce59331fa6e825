// pkg/model/rejection.go
package model

import (
	"time"
)

// NameRejection records a scraped company name that failed validation
type NameRejection struct {
	ID            string       // Row identifier (uuid)
	Source        string       // Feed or pipeline the name came from
	RawValue      string       // Name as scraped
	SanitizedName string       // Name after sanitization
	Reason        RejectReason // Rule that rejected it
	RejectedAt    time.Time
}

// Company is an accepted employer record
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
