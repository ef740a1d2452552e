package mapping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"intent-trader/internal/models"
)

// Idea categories in priority order.
const (
	CategoryPrimary   = "primary"
	CategorySecondary = "secondary"
	CategoryWatchlist = "watchlist"
)

var priorities = map[string]int{
	CategoryPrimary:   1,
	CategorySecondary: 2,
	CategoryWatchlist: 3,
}

// TradePlan maps a legacy plan and all of its sub-structures.
func (m *Mapper) TradePlan(legacy models.LegacyTradePlan) models.TradePlan {
	id := CanonicalID("plan", compactISODate(legacy.Date), "")

	meta := models.PlanMetadata{
		GeneratedFrom:    []string{},
		UpdatedTimestamp: models.ISOTime(m.now()),
	}
	var genTS string
	if legacy.Metadata != nil {
		if legacy.Metadata.GeneratedFrom != "" {
			meta.GeneratedFrom = []string{legacy.Metadata.GeneratedFrom}
		}
		genTS = legacy.Metadata.GenerationTimestamp
	}
	if genTS == "" {
		genTS = legacy.Timestamp
	}
	if genTS != "" {
		meta.GenerationTimestamp = &genTS
	}

	return models.TradePlan{
		Envelope:         m.envelope(models.SourceSystem, id),
		Date:             legacy.Date,
		MarketFramework:  m.MarketFramework(legacy.MarketFramework, id),
		LevelFramework:   m.LevelFramework(legacy.LevelFramework, id),
		TradeIdeas:       m.TradeIdeas(legacy.TradeIdeas, id),
		ScenarioPlanning: m.Scenarios(legacy.ScenarioPlanning),
		RiskManagement:   m.RiskManagement(legacy.RiskManagement),
		Metadata:         meta,
	}
}

// MarketFramework maps the market read of a plan.
func (m *Mapper) MarketFramework(legacy *models.LegacyMarketFramework, parentID string) models.MarketFramework {
	if legacy == nil {
		legacy = &models.LegacyMarketFramework{}
	}

	mf := models.MarketFramework{
		Envelope:       m.envelope(models.SourceSystem, CanonicalID("framework-market", parentID, "")),
		Bias:           orDefault(legacy.Bias, "neutral"),
		BiasCondition:  legacy.BiasCondition,
		Mode:           orDefault(legacy.Mode, "Mode 1"),
		ModeConfidence: legacy.ModeConfidence,
		Character:      legacy.Character,
		Catalysts:      []string{},
		KeyMovers:      []models.KeyMover{},
	}
	if mf.ModeConfidence == 0 {
		mf.ModeConfidence = 50
	}
	for _, c := range legacy.Catalysts {
		if c != "" {
			mf.Catalysts = append(mf.Catalysts, c)
		}
	}
	for _, km := range legacy.KeyMovers {
		mf.KeyMovers = append(mf.KeyMovers, models.KeyMover{
			Ticker:    km.Ticker,
			Direction: orDefault(km.Direction, "up"),
			Magnitude: orDefault(km.Magnitude, "moderate"),
			Reason:    km.Reason,
		})
	}

	m.log.Transformation(m.PlanFile, "marketFramework", "marketFramework", "Migrated market framework to canonical schema")
	return mf
}

// LevelFramework maps index and ticker levels. Stocks are emitted sorted by ticker.
func (m *Mapper) LevelFramework(legacy *models.LegacyLevelFramework, parentID string) models.LevelFramework {
	lf := models.LevelFramework{
		Envelope: m.envelope(models.SourceSystem, CanonicalID("framework-level", parentID, "")),
		Indices:  map[string]models.LevelSet{},
		Stocks:   []models.StockLevels{},
		Zones:    []models.Zone{},
	}

	if legacy != nil {
		for name, set := range legacy.Indices {
			if set == nil {
				continue
			}
			lf.Indices[name] = mapLevelSet(*set, "major", "major")
		}

		tickers := make([]string, 0, len(legacy.Stocks))
		for t := range legacy.Stocks {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		for _, t := range tickers {
			stock := legacy.Stocks[t]
			if stock == nil {
				continue
			}
			sl := models.StockLevels{
				Ticker: t,
				Levels: mapLevelSet(stock.LegacyLevelSet, "support", "resistance"),
			}
			if stock.MovingAverages != nil {
				sl.MovingAverages = models.MovingAverages{MA8: stock.MovingAverages.MA8, MA21: stock.MovingAverages.MA21}
			}
			lf.Stocks = append(lf.Stocks, sl)
		}
	}

	m.log.Transformation(m.PlanFile, "levelFramework", "levelFramework", "Migrated level framework to canonical schema")
	return lf
}

func mapLevelSet(set models.LegacyLevelSet, supportType, resistanceType string) models.LevelSet {
	return models.LevelSet{
		Support:    mapLevels(set.Support, supportType),
		Resistance: mapLevels(set.Resistance, resistanceType),
	}
}

func mapLevels(levels []models.LegacyLevel, defaultType string) []models.Level {
	out := make([]models.Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, models.Level{
			Price:    l.Level,
			Notes:    l.Notes,
			Type:     orDefault(strings.ToLower(l.Type), defaultType),
			Strength: LevelStrength(l.Consensus),
		})
	}
	return out
}

// TradeIdeas flattens primary, secondary and watchlist ideas in that order.
func (m *Mapper) TradeIdeas(legacy *models.LegacyTradeIdeas, parentID string) []models.TradeIdea {
	ideas := make([]models.TradeIdea, 0, legacy.Count())
	if legacy != nil {
		groups := []struct {
			category string
			ideas    []models.LegacyTradeIdea
		}{
			{CategoryPrimary, legacy.Primary},
			{CategorySecondary, legacy.Secondary},
			{CategoryWatchlist, legacy.Watchlist},
		}
		for _, g := range groups {
			for i, idea := range g.ideas {
				id := CanonicalID("idea", parentID+"-"+idea.Ticker, strconv.Itoa(i+1))
				ideas = append(ideas, m.TradeIdea(idea, id, g.category))
			}
		}
	}

	m.log.Transformation(m.PlanFile, "tradeIdeas", "tradeIdeas",
		fmt.Sprintf("Migrated %d trade ideas to canonical schema", len(ideas)))
	return ideas
}

// TradeIdea maps a single idea under the given category.
func (m *Mapper) TradeIdea(legacy models.LegacyTradeIdea, id, category string) models.TradeIdea {
	source := strings.ToLower(legacy.Source)
	if source == "" {
		source = models.SourceSystem
	}

	ticker := strings.ToLower(legacy.Ticker)
	setup := legacy.TradeType
	if strings.Contains(ticker, "spy") || strings.Contains(ticker, "spx") {
		setup = "index-trade"
	}

	idea := models.TradeIdea{
		Envelope:   m.envelope(source, id),
		Symbol:     legacy.Ticker,
		Direction:  strings.ToLower(legacy.Direction),
		Conviction: MapConviction(legacy.Conviction),
		EntryParameters: models.EntryParameters{
			Strategy: "limit",
		},
		ExitParameters: models.ExitParameters{
			Strategy:   legacy.Management,
			TrimLevels: []models.TrimLevel{},
		},
		Rationale:          legacy.TechnicalContext,
		TradeDuration:      MapTradeDuration(legacy.TradeType),
		Setup:              setup,
		Status:             "active",
		ConfirmationStatus: "unconfirmed",
		Classifications:    Classify(IdeaClassificationSource(legacy)),
		Priority:           priorities[category],
		Category:           category,
		IsFavorite:         strings.ToLower(legacy.Conviction) == ConvictionHigh,
	}

	if legacy.Entry != nil {
		idea.EntryParameters.Zone = &models.Zone{Min: nonZero(legacy.Entry.Min), Max: nonZero(legacy.Entry.Max)}
		idea.EntryParameters.Condition = legacy.Entry.Condition
	}

	var allocation, stopPercent *float64
	if legacy.Risk != nil {
		idea.ExitParameters.StopLoss = nonZero(legacy.Risk.Stop)
		allocation = legacy.Risk.RiskAllocation
		stopPercent = legacy.Risk.StopPercent
	}
	idea.PositionSizing = models.PositionSizing{Recommendation: SizingRecommendation(allocation)}
	idea.Risk = models.IdeaRisk{PlannedRMultiple: PlannedRMultiple(legacy.Targets, stopPercent)}

	if len(legacy.Targets) > 0 {
		idea.ExitParameters.Target = legacy.Targets[0].Price
		for _, t := range legacy.Targets {
			if nonZero(t.Price) != nil && nonZero(t.ExitSize) != nil {
				idea.ExitParameters.TrimLevels = append(idea.ExitParameters.TrimLevels,
					models.TrimLevel{Price: *t.Price, Percentage: *t.ExitSize})
			}
		}
	}
	return idea
}

// Scenarios maps the primary scenario followed by the alternatives.
func (m *Mapper) Scenarios(legacy *models.LegacyScenarioPlanning) []models.Scenario {
	out := []models.Scenario{}
	if legacy != nil {
		if p := legacy.PrimaryScenario; p != nil {
			probability := p.Probability
			if probability == 0 {
				probability = 50
			}
			out = append(out, models.Scenario{
				Type:        scenarioType(p.Description),
				Conviction:  ConvictionHigh,
				Trigger:     p.Trigger,
				Targets:     []float64{},
				Probability: probability,
				Description: p.Description,
			})
		}
		for _, s := range legacy.AlternativeScenarios {
			conviction := ConvictionLow
			if s.Probability > 25 {
				conviction = ConvictionMedium
			}
			probability := s.Probability
			if probability == 0 {
				probability = 25
			}
			out = append(out, models.Scenario{
				Type:        scenarioType(s.Name),
				Conviction:  conviction,
				Trigger:     s.Trigger,
				Targets:     []float64{},
				Probability: probability,
				Description: s.Description,
			})
		}
	}

	m.log.Transformation(m.PlanFile, "scenarioPlanning", "scenarioPlanning",
		fmt.Sprintf("Migrated %d scenarios to canonical schema", len(out)))
	return out
}

func scenarioType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "bear"):
		return "short"
	case strings.Contains(lower, "bull"):
		return "long"
	default:
		return "neutral"
	}
}

// Default risk block values.
const (
	DefaultAccountSize     = 100000
	DefaultMaxRiskPercent  = 1
	DefaultDailyRiskAmount = 1000
)

// RiskManagement derives the account risk block from the daily risk budget.
func (m *Mapper) RiskManagement(legacy *models.LegacyRiskManagement) models.RiskManagement {
	rm := models.RiskManagement{
		AccountSize:     DefaultAccountSize,
		MaxRiskPercent:  DefaultMaxRiskPercent,
		DailyRiskAmount: DefaultDailyRiskAmount,
	}
	if legacy != nil && legacy.DailyRiskBudget != nil {
		b := legacy.DailyRiskBudget
		if b.Amount != 0 {
			rm.DailyRiskAmount = b.Amount
			if b.Percent != 0 {
				rm.AccountSize, _ = decimal.NewFromFloat(b.Amount).
					Div(decimal.NewFromFloat(b.Percent)).
					Mul(decimal.NewFromInt(100)).
					Float64()
			}
		}
		if b.Percent != 0 {
			rm.MaxRiskPercent = b.Percent
		}
	}

	m.log.Transformation(m.PlanFile, "riskManagement", "riskManagement", "Migrated risk management to canonical schema")
	return rm
}
