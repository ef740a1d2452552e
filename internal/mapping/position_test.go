package mapping

import (
	"strings"
	"testing"

	"intent-trader/internal/models"
)

// A composite option symbol is split into its base ticker and an option note.
func TestPositionOptionSymbol(t *testing.T) {
	m := newTestMapper()
	pos := m.Position(models.LegacyPosition{
		Symbol:    "SPX 22-May-25 5870P",
		Direction: "short",
		Status:    "active",
		Size:      &models.LegacySize{Unit: "contracts", Initial: f64(2)},
	})

	if pos.Symbol != "SPX" || pos.Direction != "short" || pos.Status != "open" {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.Entry.Contracts == nil || *pos.Entry.Contracts != 2 || pos.Entry.Shares != nil {
		t.Errorf("entry size = %+v", pos.Entry)
	}
	if !strings.Contains(pos.Notes, "Put option: 22-May-25 5870") {
		t.Errorf("notes = %q", pos.Notes)
	}
	if pos.ID != "pos-SPX-22-May-25-5870P-20250515" {
		t.Errorf("id = %q", pos.ID)
	}
	if pos.Source != models.SourceManual || pos.Conviction.Level != "medium" {
		t.Errorf("envelope/conviction: %s %+v", pos.Source, pos.Conviction)
	}
	if pos.Profit.Amount != nil || pos.Profit.Percent != nil || pos.Profit.RMultiple != nil {
		t.Errorf("profit should be null: %+v", pos.Profit)
	}
}

func TestPositionDefaults(t *testing.T) {
	m := newTestMapper()
	pos := m.Position(models.LegacyPosition{
		ID:        "pos-123",
		Symbol:    "AAPL",
		Notes:     "Bought the pullback",
		TradeType: "swing",
		EntryType: "call",
		Entry:     &models.LegacyPositionEntry{Price: f64(190.25), Time: "2025-05-14T14:05:00Z"},
		Size:      &models.LegacySize{Unit: "shares", Initial: f64(100)},
		Risk:      &models.LegacyPositionRisk{Stop: f64(185)},
	})

	if pos.ID != "pos-123" || pos.Direction != "long" {
		t.Errorf("id/direction = %q %q", pos.ID, pos.Direction)
	}
	if pos.Entry.Price != 190.25 || pos.Entry.Date != "2025-05-14" || *pos.Entry.Shares != 100 || pos.Entry.Contracts != nil {
		t.Errorf("entry = %+v", pos.Entry)
	}
	if pos.Stop == nil || *pos.Stop != 185 {
		t.Errorf("stop = %v", pos.Stop)
	}
	if !pos.IsCorePosition || pos.IsRunner {
		t.Errorf("core/runner = %v %v", pos.IsCorePosition, pos.IsRunner)
	}
	want := models.Classifications{IsTrendFollow: true, IsMomentumPlay: true, IsReversal: true}
	if pos.Classifications != want {
		t.Errorf("classifications = %+v, want %+v", pos.Classifications, want)
	}
	if pos.Notes != "Bought the pullback" {
		t.Errorf("notes = %q", pos.Notes)
	}
}

func TestPositionAppendsOptionNote(t *testing.T) {
	m := newTestMapper()
	pos := m.Position(models.LegacyPosition{Symbol: "QQQ 21-Jun-25 480C", Notes: "hedge"})
	if pos.Notes != "hedge; Call option: 21-Jun-25 480" {
		t.Errorf("notes = %q", pos.Notes)
	}
}

func TestPositionBadEntryTimeWarns(t *testing.T) {
	m := newTestMapper()
	pos := m.Position(models.LegacyPosition{Symbol: "AMD", Entry: &models.LegacyPositionEntry{Time: "yesterday"}})
	if pos.Entry.Date != "2025-05-15" {
		t.Errorf("entry date = %q", pos.Entry.Date)
	}
	if m.Log().Summary().Warnings != 1 {
		t.Errorf("expected a warning for the unparseable time")
	}
}

func TestConversationContext(t *testing.T) {
	m := newTestMapper()

	def := m.ConversationContext(nil)
	if def.ID != "context-20250515" || def.SystemState != "ready" || def.ActivePlan != nil || def.ActiveSession != nil {
		t.Errorf("default context = %+v", def)
	}
	if def.FocusedSymbols == nil || def.RecentCommands == nil || def.IntentHistory == nil {
		t.Error("list fields should be empty, not null")
	}

	ctx := m.ConversationContext(&models.SessionManifest{
		SessionID:    "abc123",
		CurrentPhase: "intraday",
		Plan: &models.SessionPlan{
			Timestamp:  "2025-05-14T11:00:00Z",
			FocusIdeas: []string{"SPY above 500", "NVDA earnings fade"},
		},
	})
	if ctx.ActivePlan == nil || *ctx.ActivePlan != "plan-20250514" {
		t.Errorf("active plan = %v", ctx.ActivePlan)
	}
	if ctx.ActiveSession == nil || *ctx.ActiveSession != "session-abc123" {
		t.Errorf("active session = %v", ctx.ActiveSession)
	}
	if ctx.SystemState != "trading" || strings.Join(ctx.FocusedSymbols, ",") != "SPY,NVDA" {
		t.Errorf("state/symbols = %s %v", ctx.SystemState, ctx.FocusedSymbols)
	}
}

func TestTransactionLog(t *testing.T) {
	m := newTestMapper()
	tl := m.TransactionLog([]models.LegacyPosition{
		{
			ID:        "pos-1",
			Symbol:    "AAPL",
			Direction: "long",
			Entry:     &models.LegacyPositionEntry{Price: f64(190.5), Time: "2025-05-15T14:00:00Z"},
			History: []models.LegacyHistoryItem{
				{Action: "created", Time: "2025-05-15T14:01:00Z", Details: "Opened starter"},
				{Action: "trimmed", Time: "2025-05-15T15:00:00Z"},
				{Action: "created"},
			},
		},
		{Symbol: "TSLA", Direction: "short", Entry: &models.LegacyPositionEntry{Price: f64(250)}},
		{Symbol: "AMD", Direction: "long"},
	})

	if tl.ID != "log-20250515" || tl.Date != "2025-05-15" {
		t.Fatalf("envelope = %+v date %s", tl.Envelope, tl.Date)
	}
	if len(tl.Entries) != 4 {
		t.Fatalf("entries = %d, want 4: %+v", len(tl.Entries), tl.Entries)
	}

	e := tl.Entries
	if e[0].Text != "Opened starter" || e[0].Timestamp != "2025-05-15T14:01:00Z" || *e[0].RelatedID != "pos-1" {
		t.Errorf("entry 0 = %+v", e[0])
	}
	if e[1].Text != "Entered AAPL long position" || e[1].Timestamp != "2025-05-15T14:00:00Z" {
		t.Errorf("entry 1 = %+v", e[1])
	}
	if e[2].Text != "Entered TSLA short position at 250" || e[2].RelatedID != nil || e[2].Timestamp != "2025-05-15T13:30:00.000Z" {
		t.Errorf("entry 2 = %+v", e[2])
	}
	if e[3].Text != "Entered AMD long position at unknown price" {
		t.Errorf("entry 3 = %+v", e[3])
	}
	for _, entry := range e {
		if entry.Type != "trade" {
			t.Errorf("entry type = %q", entry.Type)
		}
	}
}
