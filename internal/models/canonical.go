// Package models holds the canonical and legacy record types for trading state files.
package models

import "time"

// SchemaVersion is stamped on every canonical record.
const SchemaVersion = "0.5.2"

// Canonical definition names in the schema document.
const (
	DefTradePlan           = "tradePlan"
	DefTradePosition       = "tradePosition"
	DefConversationContext = "conversationContext"
	DefTransactionLog      = "transactionLog"
)

// Source tags.
const (
	SourceSystem = "system"
	SourceManual = "manual"
)

// ISOTime formats t the way every canonical timestamp is written (UTC, millisecond precision).
func ISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ISODate formats the calendar date of t in UTC.
func ISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CompactDate formats the calendar date of t in UTC without separators.
func CompactDate(t time.Time) string {
	return t.UTC().Format("20060102")
}

// Origin names the command and agent that produced a record.
type Origin struct {
	SourceCommand string `json:"sourceCommand"`
	CreatedBy     string `json:"createdBy"`
}

// Envelope is the shared header of every canonical record.
type Envelope struct {
	SchemaVersion string  `json:"schemaVersion"`
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Timestamp     string  `json:"timestamp"`
	Origin        *Origin `json:"origin,omitempty"`
}

// Conviction is a normalized confidence label plus the phrases it came from.
type Conviction struct {
	Level   string   `json:"level"`
	Phrases []string `json:"phrases,omitempty"`
}

// Classifications are independent technical-pattern tags.
type Classifications struct {
	IsBreakout        bool `json:"isBreakout"`
	IsReversal        bool `json:"isReversal"`
	IsFlagPattern     bool `json:"isFlagPattern"`
	IsFailedBreakdown bool `json:"isFailedBreakdown"`
	IsEarningsPlay    bool `json:"isEarningsPlay"`
	IsDayAfterTrade   bool `json:"isDayAfterTrade"`
	IsTrendFollow     bool `json:"isTrendFollow"`
	IsRangePlay       bool `json:"isRangePlay"`
	IsGapFill         bool `json:"isGapFill"`
	IsMomentumPlay    bool `json:"isMomentumPlay"`
}

// Covers reports whether every flag set in other is also set in c.
func (c Classifications) Covers(other Classifications) bool {
	a, b := c.flags(), other.flags()
	for i := range b {
		if b[i] && !a[i] {
			return false
		}
	}
	return true
}

// Count returns the number of flags set.
func (c Classifications) Count() int {
	n := 0
	for _, f := range c.flags() {
		if f {
			n++
		}
	}
	return n
}

func (c Classifications) flags() [10]bool {
	return [10]bool{
		c.IsBreakout, c.IsReversal, c.IsFlagPattern, c.IsFailedBreakdown, c.IsEarningsPlay,
		c.IsDayAfterTrade, c.IsTrendFollow, c.IsRangePlay, c.IsGapFill, c.IsMomentumPlay,
	}
}

// TradePlan is the canonical daily plan.
type TradePlan struct {
	Envelope
	Date             string          `json:"date"`
	MarketFramework  MarketFramework `json:"marketFramework"`
	LevelFramework   LevelFramework  `json:"levelFramework"`
	TradeIdeas       []TradeIdea     `json:"tradeIdeas"`
	ScenarioPlanning []Scenario      `json:"scenarioPlanning"`
	RiskManagement   RiskManagement  `json:"riskManagement"`
	Metadata         PlanMetadata    `json:"metadata"`
}

// PlanMetadata records plan provenance.
type PlanMetadata struct {
	GeneratedFrom       []string `json:"generatedFrom"`
	GenerationTimestamp *string  `json:"generationTimestamp"`
	UpdatedTimestamp    string   `json:"updatedTimestamp"`
}

// MarketFramework describes the session bias and catalysts.
type MarketFramework struct {
	Envelope
	Bias           string     `json:"bias"`
	BiasCondition  string     `json:"biasCondition"`
	Mode           string     `json:"mode"`
	ModeConfidence float64    `json:"modeConfidence"`
	Character      string     `json:"character"`
	Catalysts      []string   `json:"catalysts"`
	KeyMovers      []KeyMover `json:"keyMovers"`
}

// KeyMover is a ticker moving the market.
type KeyMover struct {
	Ticker    string `json:"ticker"`
	Direction string `json:"direction"`
	Magnitude string `json:"magnitude"`
	Reason    string `json:"reason"`
}

// LevelFramework holds index and ticker support/resistance levels.
type LevelFramework struct {
	Envelope
	Indices          map[string]LevelSet `json:"indices"`
	Stocks           []StockLevels       `json:"stocks"`
	Zones            []Zone              `json:"zones"`
	KeyDecisionPoint *float64            `json:"keyDecisionPoint"`
}

// LevelSet is a pair of support and resistance ladders.
type LevelSet struct {
	Support    []Level `json:"support"`
	Resistance []Level `json:"resistance"`
}

// Level is a single price level.
type Level struct {
	Price    *float64 `json:"price"`
	Notes    string   `json:"notes"`
	Type     string   `json:"type"`
	Strength string   `json:"strength"`
}

// StockLevels are the levels and moving averages of one ticker.
type StockLevels struct {
	Ticker         string         `json:"ticker"`
	Levels         LevelSet       `json:"levels"`
	MovingAverages MovingAverages `json:"movingAverages"`
}

// MovingAverages of a ticker.
type MovingAverages struct {
	MA8  *float64 `json:"ma8,omitempty"`
	MA21 *float64 `json:"ma21,omitempty"`
}

// Zone is a price range.
type Zone struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// TradeIdea is a single planned trade.
type TradeIdea struct {
	Envelope
	Symbol             string          `json:"symbol"`
	Direction          string          `json:"direction"`
	Conviction         Conviction      `json:"conviction"`
	EntryParameters    EntryParameters `json:"entryParameters"`
	ExitParameters     ExitParameters  `json:"exitParameters"`
	Rationale          string          `json:"rationale"`
	TradeDuration      string          `json:"tradeDuration"`
	Setup              string          `json:"setup"`
	Status             string          `json:"status"`
	ConfirmationStatus string          `json:"confirmationStatus"`
	Classifications    Classifications `json:"classifications"`
	PositionSizing     PositionSizing  `json:"positionSizing"`
	Risk               IdeaRisk        `json:"risk"`
	Priority           int             `json:"priority"`
	Category           string          `json:"category"`
	IsFavorite         bool            `json:"isFavorite"`
}

// EntryParameters describe how a trade idea is entered.
type EntryParameters struct {
	Zone      *Zone  `json:"zone"`
	Condition string `json:"condition"`
	Strategy  string `json:"strategy"`
}

// ExitParameters describe how a trade idea is exited.
type ExitParameters struct {
	StopLoss   *float64    `json:"stopLoss"`
	Target     *float64    `json:"target"`
	Strategy   string      `json:"strategy"`
	TrimLevels []TrimLevel `json:"trimLevels"`
}

// TrimLevel is a partial exit.
type TrimLevel struct {
	Price      float64 `json:"price"`
	Percentage float64 `json:"percentage"`
}

// PositionSizing is the size recommendation of an idea.
type PositionSizing struct {
	Recommendation string `json:"recommendation"`
	Reasoning      string `json:"reasoning"`
}

// IdeaRisk carries planned risk metrics.
type IdeaRisk struct {
	PlannedRMultiple *float64 `json:"plannedRMultiple"`
}

// Scenario is a market scenario.
type Scenario struct {
	Type        string    `json:"type"`
	Conviction  string    `json:"conviction"`
	Trigger     string    `json:"trigger"`
	Targets     []float64 `json:"targets"`
	Stop        *float64  `json:"stop"`
	RiskReward  *float64  `json:"risk_reward"`
	Probability float64   `json:"probability"`
	Description string    `json:"description"`
}

// RiskManagement is the account-level risk block.
type RiskManagement struct {
	AccountSize     float64 `json:"accountSize"`
	MaxRiskPercent  float64 `json:"maxRiskPercent"`
	DailyRiskAmount float64 `json:"dailyRiskAmount"`
	PositionSizing  string  `json:"positionSizing"`
	StopPlacement   string  `json:"stopPlacement"`
	TrailStrategy   string  `json:"trailStrategy"`
}

// TradePosition is an open or closed trade.
type TradePosition struct {
	Envelope
	Symbol          string          `json:"symbol"`
	Direction       string          `json:"direction"`
	Entry           PositionEntry   `json:"entry"`
	Stop            *float64        `json:"stop"`
	Target          *float64        `json:"target"`
	Setup           string          `json:"setup"`
	Status          string          `json:"status"`
	ExitDate        *string         `json:"exitDate"`
	ExitPrice       *float64        `json:"exitPrice"`
	Profit          Profit          `json:"profit"`
	Notes           string          `json:"notes"`
	Conviction      Conviction      `json:"conviction"`
	Classifications Classifications `json:"classifications"`
	IsRunner        bool            `json:"isRunner"`
	IsCorePosition  bool            `json:"isCorePosition"`
}

// PositionEntry holds entry details; exactly one of Shares or Contracts is set.
type PositionEntry struct {
	Price     float64  `json:"price"`
	Date      string   `json:"date"`
	Shares    *float64 `json:"shares"`
	Contracts *float64 `json:"contracts"`
}

// Profit of a position; nil until closed.
type Profit struct {
	Amount    *float64 `json:"amount"`
	Percent   *float64 `json:"percent"`
	RMultiple *float64 `json:"rMultiple"`
}

// ConversationContext is the assistant's session state.
type ConversationContext struct {
	Envelope
	ActivePlan     *string  `json:"activePlan"`
	ActiveSession  *string  `json:"activeSession"`
	FocusedSymbols []string `json:"focusedSymbols"`
	RecentCommands []string `json:"recentCommands"`
	IntentHistory  []string `json:"intentHistory"`
	SystemState    string   `json:"systemState"`
}

// TransactionLog is a day's list of trade events.
type TransactionLog struct {
	Envelope
	Date    string             `json:"date"`
	Entries []TransactionEntry `json:"entries"`
}

// TransactionEntry is one trade event.
type TransactionEntry struct {
	Timestamp string  `json:"timestamp"`
	Text      string  `json:"text"`
	Type      string  `json:"type"`
	RelatedID *string `json:"relatedId"`
}
