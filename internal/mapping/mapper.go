// Package mapping converts legacy trading state into canonical records.
//
// Every mapper is deterministic apart from envelope timestamps: the same legacy
// input yields the same ids and field values. Mappers never fail; gaps are
// filled with defaults and schema validation is left to the caller.
package mapping

import (
	"regexp"
	"strings"
	"time"

	"intent-trader/internal/models"
	"intent-trader/internal/translog"
)

// Origin stamped on every migrated record.
const (
	OriginCommand = "/migrate-schema"
	OriginAgent   = "schema-migrator"
)

// Default file labels used in transformation log entries.
const (
	DefaultPlanFile      = "trade-plan-state.json"
	DefaultPositionsFile = "my-positions.json"
)

var idCleaner = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// CanonicalID builds "<type>-<identifier>[-<sequence>]" with every character
// outside [A-Za-z0-9-] in identifier replaced by "-".
func CanonicalID(kind, identifier, sequence string) string {
	clean := idCleaner.ReplaceAllString(identifier, "-")
	if sequence != "" {
		return kind + "-" + clean + "-" + sequence
	}
	return kind + "-" + clean
}

// NewEnvelope returns the shared header every canonical builder starts from.
func NewEnvelope(source, id string, now time.Time) models.Envelope {
	return models.Envelope{
		SchemaVersion: models.SchemaVersion,
		ID:            id,
		Source:        source,
		Timestamp:     models.ISOTime(now),
		Origin: &models.Origin{
			SourceCommand: OriginCommand,
			CreatedBy:     OriginAgent,
		},
	}
}

// Mapper carries the per-run state shared by the field mappers: the
// transformation log and the clock.
type Mapper struct {
	log *translog.Log
	now func() time.Time

	// PlanFile and PositionsFile label transformation log entries.
	PlanFile      string
	PositionsFile string
}

// New creates a Mapper recording into log. A nil clock means time.Now.
func New(log *translog.Log, now func() time.Time) *Mapper {
	if log == nil {
		log = translog.NewWithClock(now)
	}
	if now == nil {
		now = time.Now
	}
	return &Mapper{
		log:           log,
		now:           now,
		PlanFile:      DefaultPlanFile,
		PositionsFile: DefaultPositionsFile,
	}
}

// Log returns the transformation log the mapper records into.
func (m *Mapper) Log() *translog.Log {
	return m.log
}

func (m *Mapper) envelope(source, id string) models.Envelope {
	return NewEnvelope(source, id, m.now())
}

// runDate is the current date in compact form, used when no source date exists.
func (m *Mapper) runDate() string {
	return models.CompactDate(m.now())
}

func compactISODate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// nonZero mirrors the legacy "value || null" convention: nil and zero both become nil.
func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	out := *v
	return &out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
