package mapping

import (
	"strconv"
	"strings"
	"time"

	"intent-trader/internal/models"
)

var entryTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseEntryTime(s string) (time.Time, bool) {
	for _, layout := range entryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Position maps one legacy position. Option metadata in a composite symbol is
// folded into the notes.
func (m *Mapper) Position(legacy models.LegacyPosition) models.TradePosition {
	entryDate := models.ISODate(m.now())
	if legacy.Entry != nil && legacy.Entry.Time != "" {
		if t, ok := parseEntryTime(legacy.Entry.Time); ok {
			entryDate = models.ISODate(t)
		} else {
			m.log.Warningf(m.PositionsFile, "Unparseable entry time %q for %s, using run date", legacy.Entry.Time, legacy.Symbol)
		}
	}

	id := legacy.ID
	if id == "" {
		id = CanonicalID("pos", legacy.Symbol+"-"+compactISODate(entryDate), "")
	}

	symbol := legacy.Symbol
	var option OptionDetails
	if strings.ContainsAny(symbol, " \t") {
		option = ParseOptionSymbol(symbol)
		symbol = option.Symbol
	}

	entry := models.PositionEntry{Date: entryDate}
	if legacy.Entry != nil && legacy.Entry.Price != nil {
		entry.Price = *legacy.Entry.Price
	}
	if legacy.Size != nil {
		switch legacy.Size.Unit {
		case "shares":
			entry.Shares = legacy.Size.Initial
		case "contracts":
			entry.Contracts = legacy.Size.Initial
		}
	}

	pos := models.TradePosition{
		Envelope:        m.envelope(models.SourceManual, id),
		Symbol:          symbol,
		Direction:       orDefault(strings.ToLower(legacy.Direction), "long"),
		Entry:           entry,
		Status:          MapPositionStatus(legacy.Status),
		Notes:           legacy.Notes,
		Conviction:      models.Conviction{Level: ConvictionMedium},
		Classifications: Classify(PositionClassificationSource(legacy)),
		IsCorePosition:  legacy.TradeType == "swing",
	}
	if legacy.Risk != nil {
		pos.Stop = nonZero(legacy.Risk.Stop)
	}

	if option.IsOption() {
		if pos.Notes == "" {
			pos.Notes = option.Note()
		} else {
			pos.Notes = pos.Notes + "; " + option.Note()
		}
	}

	ref := legacy.ID
	if ref == "" {
		ref = legacy.Symbol
	}
	m.log.Transformation(m.PositionsFile, "positions["+ref+"]", "tradePosition["+id+"]", "Migrated position to canonical schema")
	return pos
}

// Positions maps every legacy position, preserving order.
func (m *Mapper) Positions(legacy []models.LegacyPosition) []models.TradePosition {
	out := make([]models.TradePosition, 0, len(legacy))
	for _, p := range legacy {
		out = append(out, m.Position(p))
	}
	return out
}

// ConversationContext builds the assistant context, seeded from the session
// manifest when one is available.
func (m *Mapper) ConversationContext(manifest *models.SessionManifest) models.ConversationContext {
	ctx := models.ConversationContext{
		Envelope:       m.envelope(models.SourceSystem, "context-"+m.runDate()),
		FocusedSymbols: []string{},
		RecentCommands: []string{},
		IntentHistory:  []string{},
		SystemState:    MapPhase("ready"),
	}
	if manifest == nil {
		return ctx
	}

	if manifest.Plan != nil {
		if manifest.Plan.Timestamp != "" {
			date, _, _ := strings.Cut(manifest.Plan.Timestamp, "T")
			plan := "plan-" + compactISODate(date)
			ctx.ActivePlan = &plan
		}
		ctx.FocusedSymbols = FocusSymbols(manifest.Plan.FocusIdeas)
	}
	if manifest.SessionID != "" {
		session := "session-" + manifest.SessionID
		ctx.ActiveSession = &session
	}
	ctx.SystemState = MapPhase(orDefault(manifest.CurrentPhase, "ready"))
	return ctx
}

// TransactionLog derives the day's trade entries from legacy positions.
func (m *Mapper) TransactionLog(positions []models.LegacyPosition) models.TransactionLog {
	now := m.now()
	tl := models.TransactionLog{
		Envelope: m.envelope(models.SourceSystem, "log-"+models.CompactDate(now)),
		Date:     models.ISODate(now),
		Entries:  []models.TransactionEntry{},
	}

	for _, p := range positions {
		var entryTime string
		var price *float64
		if p.Entry != nil {
			entryTime = p.Entry.Time
			price = p.Entry.Price
		}
		var related *string
		if p.ID != "" {
			id := p.ID
			related = &id
		}

		if len(p.History) == 0 {
			at := "unknown price"
			if nonZero(price) != nil {
				at = strconv.FormatFloat(*price, 'f', -1, 64)
			}
			tl.Entries = append(tl.Entries, models.TransactionEntry{
				Timestamp: orDefault(entryTime, models.ISOTime(now)),
				Text:      "Entered " + p.Symbol + " " + p.Direction + " position at " + at,
				Type:      "trade",
				RelatedID: related,
			})
			continue
		}

		for _, h := range p.History {
			if h.Action != "created" {
				continue
			}
			tl.Entries = append(tl.Entries, models.TransactionEntry{
				Timestamp: orDefault(h.Time, orDefault(entryTime, models.ISOTime(now))),
				Text:      orDefault(h.Details, "Entered "+p.Symbol+" "+p.Direction+" position"),
				Type:      "trade",
				RelatedID: related,
			})
		}
	}
	return tl
}
