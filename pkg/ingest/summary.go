// pkg/ingest/summary.go
package ingest

import (
	"time"

	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

// Summary tracks the outcome of an ingestion run
type Summary struct {
	Source    string
	StartTime time.Time
	EndTime   time.Time

	Read     int64 // names read from the source
	Accepted int64 // names that passed validation
	Inserted int64 // accepted names that were new companies
	Rejected int64
	Pages    int

	ByReason map[model.RejectReason]int64
}

// NewSummary creates a new summary for a source
func NewSummary(source string) *Summary {
	return &Summary{
		Source:    source,
		StartTime: time.Now(),
		ByReason:  make(map[model.RejectReason]int64),
	}
}

// Record counts one normalized name
func (s *Summary) Record(verdict model.Verdict) {
	s.Read++
	if verdict.Valid {
		s.Accepted++
		return
	}
	s.Rejected++
	s.ByReason[verdict.Reason]++
}

// Duplicates returns how many accepted names already existed as companies
func (s *Summary) Duplicates() int64 {
	return s.Accepted - s.Inserted
}

// Duration returns the run time, up to now while the run is in progress
func (s *Summary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Throughput returns names read per second
func (s *Summary) Throughput() float64 {
	seconds := s.Duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(s.Read) / seconds
}

// Complete marks the run as finished and logs the totals
func (s *Summary) Complete(logger *zap.Logger) {
	s.EndTime = time.Now()

	reasons := make([]zap.Field, 0, len(s.ByReason))
	for reason, n := range s.ByReason {
		reasons = append(reasons, zap.Int64(string(reason), n))
	}

	logger.Info("Company ingestion completed",
		zap.String("source", s.Source),
		zap.Duration("duration", s.Duration()),
		zap.Int("pages", s.Pages),
		zap.Int64("read", s.Read),
		zap.Int64("accepted", s.Accepted),
		zap.Int64("inserted", s.Inserted),
		zap.Int64("duplicates", s.Duplicates()),
		zap.Int64("rejected", s.Rejected),
		zap.Float64("throughput", s.Throughput()),
		zap.Dict("rejectReasons", reasons...))
}
