package models

import (
	"bytes"
	"encoding/json"
)

// StringList decodes either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one == "" {
		*s = nil
		return nil
	}
	*s = StringList{one}
	return nil
}

// LegacyTradePlan is the body of trade-plan-state.json under "tradePlan".
type LegacyTradePlan struct {
	Date             string                  `json:"date"`
	Timestamp        string                  `json:"timestamp"`
	MarketFramework  *LegacyMarketFramework  `json:"marketFramework"`
	LevelFramework   *LegacyLevelFramework   `json:"levelFramework"`
	TradeIdeas       *LegacyTradeIdeas       `json:"tradeIdeas"`
	ScenarioPlanning *LegacyScenarioPlanning `json:"scenarioPlanning"`
	RiskManagement   *LegacyRiskManagement   `json:"riskManagement"`
	Metadata         *LegacyPlanMetadata     `json:"metadata"`
}

// LegacyMarketFramework is the free-form market read.
type LegacyMarketFramework struct {
	Bias           string           `json:"bias"`
	BiasCondition  string           `json:"biasCondition"`
	Mode           string           `json:"mode"`
	ModeConfidence float64          `json:"modeConfidence"`
	Character      string           `json:"character"`
	Catalysts      StringList       `json:"catalysts"`
	KeyMovers      []LegacyKeyMover `json:"keyMovers"`
}

// LegacyKeyMover is a ticker note in the market framework.
type LegacyKeyMover struct {
	Ticker    string `json:"ticker"`
	Direction string `json:"direction"`
	Magnitude string `json:"magnitude"`
	Reason    string `json:"reason"`
}

// LegacyLevelFramework keys levels by index name and ticker.
type LegacyLevelFramework struct {
	Indices map[string]*LegacyLevelSet    `json:"indices"`
	Stocks  map[string]*LegacyStockLevels `json:"stocks"`
}

// LegacyLevelSet is a support/resistance pair.
type LegacyLevelSet struct {
	Support    []LegacyLevel `json:"support"`
	Resistance []LegacyLevel `json:"resistance"`
}

// LegacyStockLevels adds moving averages to a level set.
type LegacyStockLevels struct {
	LegacyLevelSet
	MovingAverages *LegacyMovingAverages `json:"movingAverages"`
}

// LegacyMovingAverages of a ticker.
type LegacyMovingAverages struct {
	MA8  *float64 `json:"ma8"`
	MA21 *float64 `json:"ma21"`
}

// LegacyLevel is a single price level.
type LegacyLevel struct {
	Level     *float64 `json:"level"`
	Notes     string   `json:"notes"`
	Type      string   `json:"type"`
	Consensus string   `json:"consensus"`
}

// LegacyTradeIdeas groups ideas by category.
type LegacyTradeIdeas struct {
	Primary   []LegacyTradeIdea `json:"primary"`
	Secondary []LegacyTradeIdea `json:"secondary"`
	Watchlist []LegacyTradeIdea `json:"watchlist"`
}

// Count returns the number of ideas over all categories.
func (t *LegacyTradeIdeas) Count() int {
	if t == nil {
		return 0
	}
	return len(t.Primary) + len(t.Secondary) + len(t.Watchlist)
}

// LegacyTradeIdea is a free-form trade idea.
type LegacyTradeIdea struct {
	Ticker           string           `json:"ticker"`
	Direction        string           `json:"direction"`
	Conviction       string           `json:"conviction"`
	Source           string           `json:"source"`
	TradeType        string           `json:"tradeType"`
	TechnicalContext string           `json:"technicalContext"`
	Notes            string           `json:"notes"`
	Management       string           `json:"management"`
	Entry            *LegacyEntryZone `json:"entry"`
	Risk             *LegacyIdeaRisk  `json:"risk"`
	Targets          []LegacyTarget   `json:"targets"`
}

// LegacyEntryZone is an idea's entry range.
type LegacyEntryZone struct {
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Condition string   `json:"condition"`
}

// LegacyIdeaRisk is an idea's stop and allocation.
type LegacyIdeaRisk struct {
	Stop           *float64 `json:"stop"`
	StopPercent    *float64 `json:"stopPercent"`
	RiskAllocation *float64 `json:"riskAllocation"`
}

// LegacyTarget is a profit target.
type LegacyTarget struct {
	Price    *float64 `json:"price"`
	Percent  *float64 `json:"percent"`
	ExitSize *float64 `json:"exitSize"`
}

// LegacyScenarioPlanning holds the primary and alternative scenarios.
type LegacyScenarioPlanning struct {
	PrimaryScenario      *LegacyScenario  `json:"primaryScenario"`
	AlternativeScenarios []LegacyScenario `json:"alternativeScenarios"`
}

// LegacyScenario is a free-form scenario.
type LegacyScenario struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Trigger     string  `json:"trigger"`
	Probability float64 `json:"probability"`
}

// LegacyRiskManagement wraps the daily risk budget.
type LegacyRiskManagement struct {
	DailyRiskBudget *LegacyRiskBudget `json:"dailyRiskBudget"`
}

// LegacyRiskBudget is the daily risk allowance.
type LegacyRiskBudget struct {
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// LegacyPlanMetadata is plan provenance.
type LegacyPlanMetadata struct {
	GeneratedFrom       string `json:"generatedFrom"`
	GenerationTimestamp string `json:"generationTimestamp"`
}

// LegacyPosition is an entry in my-positions.json.
type LegacyPosition struct {
	ID               string               `json:"id"`
	Symbol           string               `json:"symbol"`
	Direction        string               `json:"direction"`
	Status           string               `json:"status"`
	Notes            string               `json:"notes"`
	TradeType        string               `json:"trade_type"`
	EntryType        string               `json:"entry_type"`
	TechnicalContext string               `json:"technicalContext"`
	Management       string               `json:"management"`
	Entry            *LegacyPositionEntry `json:"entry"`
	Size             *LegacySize          `json:"size"`
	Risk             *LegacyPositionRisk  `json:"risk"`
	History          []LegacyHistoryItem  `json:"history"`
}

// LegacyPositionEntry is a position's fill.
type LegacyPositionEntry struct {
	Price     *float64 `json:"price"`
	Time      string   `json:"time"`
	Condition string   `json:"condition"`
}

// LegacySize is a position size with its unit.
type LegacySize struct {
	Unit    string   `json:"unit"`
	Initial *float64 `json:"initial"`
}

// LegacyPositionRisk is a position's stop.
type LegacyPositionRisk struct {
	Stop *float64 `json:"stop"`
}

// LegacyHistoryItem is a position lifecycle event.
type LegacyHistoryItem struct {
	Action  string `json:"action"`
	Time    string `json:"time"`
	Details string `json:"details"`
}

// SessionManifest is the optional session-manifest.json.
type SessionManifest struct {
	SessionID    string       `json:"sessionId"`
	CurrentPhase string       `json:"currentPhase"`
	Plan         *SessionPlan `json:"plan"`
}

// SessionPlan is the plan summary inside a session manifest.
type SessionPlan struct {
	Timestamp  string   `json:"timestamp"`
	FocusIdeas []string `json:"focusIdeas"`
}
