package mapping

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"intent-trader/internal/models"
)

// Conviction levels.
const (
	ConvictionFocusTrade = "focus-trade"
	ConvictionHigh       = "high"
	ConvictionMedium     = "medium"
	ConvictionLow        = "low"
	ConvictionNegative   = "negative"
)

var convictionLevels = map[string]bool{
	ConvictionFocusTrade: true,
	ConvictionHigh:       true,
	ConvictionMedium:     true,
	ConvictionLow:        true,
	ConvictionNegative:   true,
}

// MapConviction normalizes a free-text conviction. Unknown text maps to medium;
// the original text is always kept as the single phrase.
func MapConviction(raw string) models.Conviction {
	if raw == "" {
		return models.Conviction{Level: ConvictionMedium}
	}
	level := strings.ToLower(raw)
	if !convictionLevels[level] {
		level = ConvictionMedium
	}
	return models.Conviction{Level: level, Phrases: []string{raw}}
}

var durations = map[string]string{
	"day":             "day",
	"day-after-trade": "day",
	"swing":           "swing",
	"options":         "day",
	"pullback":        "swing",
	"scalp":           "cashflow",
}

// MapTradeDuration maps a legacy trade type to day, swing or cashflow.
func MapTradeDuration(tradeType string) string {
	if d, ok := durations[tradeType]; ok {
		return d
	}
	return "swing"
}

var positionStatuses = map[string]string{
	"active":  "open",
	"closed":  "closed",
	"pending": "open",
	"partial": "partial",
}

// MapPositionStatus maps a legacy position status; anything unknown is open.
func MapPositionStatus(status string) string {
	if s, ok := positionStatuses[status]; ok {
		return s
	}
	return "open"
}

// LevelStrength maps a legacy consensus label to strong, moderate or weak.
func LevelStrength(consensus string) string {
	switch strings.ToLower(consensus) {
	case "high":
		return "strong"
	case "medium":
		return "moderate"
	default:
		return "weak"
	}
}

var sizingBuckets = []struct {
	min            float64
	recommendation string
}{
	{1, "full"},
	{0.75, "half"},
	{0.5, "third"},
	{0.25, "quarter"},
}

// SizingRecommendation buckets a fractional risk allocation, highest threshold first.
func SizingRecommendation(allocation *float64) string {
	if allocation == nil {
		return "small"
	}
	for _, b := range sizingBuckets {
		if *allocation >= b.min {
			return b.recommendation
		}
	}
	return "small"
}

// PlannedRMultiple divides the first target's percent move by the stop percent.
// It is nil unless both are present and non-zero.
func PlannedRMultiple(targets []models.LegacyTarget, stopPercent *float64) *float64 {
	if len(targets) == 0 || targets[0].Percent == nil || stopPercent == nil {
		return nil
	}
	if *targets[0].Percent == 0 || *stopPercent == 0 {
		return nil
	}
	r, _ := decimal.NewFromFloat(*targets[0].Percent).Div(decimal.NewFromFloat(*stopPercent)).Float64()
	return &r
}

// OptionDetails are parsed from a composite option symbol such as "SPX 22-May-25 5870P".
type OptionDetails struct {
	Symbol string
	Type   string // "call", "put" or empty
	Expiry string
	Strike string
}

// IsOption reports whether the symbol carried option metadata.
func (o OptionDetails) IsOption() bool {
	return o.Type != ""
}

// Note renders the option metadata for a position's notes.
func (o OptionDetails) Note() string {
	label := "Put"
	if o.Type == "call" {
		label = "Call"
	}
	if o.Expiry == "" {
		return label + " option: " + o.Strike
	}
	return label + " option: " + o.Expiry + " " + o.Strike
}

// ParseOptionSymbol splits a composite symbol on whitespace. The first token is
// the base symbol; option type comes from the last character of the final
// token, expiry is the second token when there are three or more, and the
// strike is the remaining token with any trailing call/put letter removed.
func ParseOptionSymbol(composite string) OptionDetails {
	parts := strings.Fields(composite)
	if len(parts) == 0 {
		return OptionDetails{}
	}
	d := OptionDetails{Symbol: parts[0]}
	if len(parts) == 1 {
		return d
	}

	last := parts[len(parts)-1]
	switch last[len(last)-1] {
	case 'c', 'C':
		d.Type = "call"
	case 'p', 'P':
		d.Type = "put"
	}

	strike := parts[1]
	if len(parts) > 2 {
		d.Expiry = parts[1]
		strike = parts[2]
	}
	if strings.ContainsAny(strike[len(strike)-1:], "cCpP") {
		strike = strike[:len(strike)-1]
	}
	d.Strike = strike
	return d
}

// ClassificationSource is the text and trade-type information classification reads.
type ClassificationSource struct {
	TradeType       string // idea tradeType
	LegacyTradeType string // position trade_type
	EntryType       string // position entry_type
	Texts           []string
}

// IdeaClassificationSource collects the classification inputs of a trade idea.
func IdeaClassificationSource(idea models.LegacyTradeIdea) ClassificationSource {
	src := ClassificationSource{
		TradeType: idea.TradeType,
		Texts:     []string{idea.TechnicalContext, idea.Notes, idea.Management},
	}
	if idea.Entry != nil {
		src.Texts = append(src.Texts, idea.Entry.Condition)
	}
	return src
}

// PositionClassificationSource collects the classification inputs of a position.
func PositionClassificationSource(pos models.LegacyPosition) ClassificationSource {
	src := ClassificationSource{
		LegacyTradeType: pos.TradeType,
		EntryType:       pos.EntryType,
		Texts:           []string{pos.TechnicalContext, pos.Notes, pos.Management},
	}
	if pos.Entry != nil {
		src.Texts = append(src.Texts, pos.Entry.Condition)
	}
	return src
}

type pattern struct {
	re  *regexp.Regexp
	set func(*models.Classifications)
}

var patterns = []pattern{
	{regexp.MustCompile(`breakout|breaking out|breaks? (above|below)|breaking (above|below)`), func(c *models.Classifications) { c.IsBreakout = true }},
	{regexp.MustCompile(`reversal|reversed|reversing|pullback|retracement`), func(c *models.Classifications) { c.IsReversal = true }},
	{regexp.MustCompile(`flag pattern|bull flag|bear flag|pennant`), func(c *models.Classifications) { c.IsFlagPattern = true }},
	{regexp.MustCompile(`failed breakdown|failed break|false breakdown`), func(c *models.Classifications) { c.IsFailedBreakdown = true }},
	{regexp.MustCompile(`earnings|er |after earnings|pre-earnings|post-earnings`), func(c *models.Classifications) { c.IsEarningsPlay = true }},
	{regexp.MustCompile(`day-after|day after|dat `), func(c *models.Classifications) { c.IsDayAfterTrade = true }},
	{regexp.MustCompile(`trend|following trend|uptrend|downtrend|trending`), func(c *models.Classifications) { c.IsTrendFollow = true }},
	{regexp.MustCompile(`range|range bound|consolidation|between support and resistance`), func(c *models.Classifications) { c.IsRangePlay = true }},
	{regexp.MustCompile(`gap fill|filling gap|fill the gap|gap down|gap up`), func(c *models.Classifications) { c.IsGapFill = true }},
	{regexp.MustCompile(`momentum|moving fast|continuation|strong move`), func(c *models.Classifications) { c.IsMomentumPlay = true }},
}

// ForcedClassifications returns the flags implied by trade type alone.
func ForcedClassifications(src ClassificationSource) models.Classifications {
	var c models.Classifications
	switch src.TradeType {
	case "day-after-trade":
		c.IsDayAfterTrade = true
	case "swing":
		c.IsTrendFollow = true
	case "day":
		c.IsRangePlay = true
	case "pullback":
		c.IsReversal = true
	case "breakout":
		c.IsBreakout = true
	default:
		switch src.LegacyTradeType {
		case "swing":
			c.IsTrendFollow = true
		case "day":
			c.IsRangePlay = true
		}
	}
	if src.EntryType == "call" || src.EntryType == "put" {
		c.IsMomentumPlay = true
	}
	return c
}

// Classify infers the ten pattern flags. Trade-type flags are set first; the
// keyword pass over the joined free text can only add flags.
func Classify(src ClassificationSource) models.Classifications {
	c := ForcedClassifications(src)

	texts := make([]string, 0, len(src.Texts))
	for _, t := range src.Texts {
		if t != "" {
			texts = append(texts, t)
		}
	}
	text := strings.ToLower(strings.Join(texts, " "))
	if text == "" {
		return c
	}
	for _, p := range patterns {
		if p.re.MatchString(text) {
			p.set(&c)
		}
	}
	return c
}

var phaseStates = map[string]string{
	"premarket":   "planning",
	"intraday":    "trading",
	"postmarket":  "reviewing",
	"after_hours": "analyzing",
}

// MapPhase maps a session phase to a system state; unknown phases are ready.
func MapPhase(phase string) string {
	if s, ok := phaseStates[phase]; ok {
		return s
	}
	return "ready"
}

var leadingWord = regexp.MustCompile(`^(\w+)`)

// FocusSymbols takes the leading word of each focus idea.
func FocusSymbols(focusIdeas []string) []string {
	out := []string{}
	for _, idea := range focusIdeas {
		if m := leadingWord.FindStringSubmatch(idea); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}
