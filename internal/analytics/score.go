package analytics

import (
	"math"
	"time"

	"parcelscope/server/internal/models"
)

// InvestmentScore is the 0-10 composite with its clamped sub-factors
type InvestmentScore struct {
	Score        float64 `json:"score"`
	Roi          float64 `json:"roi_factor"`
	Zoning       float64 `json:"zoning_factor"`
	Size         float64 `json:"size_factor"`
	Completeness float64 `json:"completeness_factor"`
}

// DataCompleteness is the share of optional parcel fields that are present
func DataCompleteness(p models.Parcel) float64 {
	_, knownStage := p.ZoningStage.Index()
	present := []bool{
		p.TotalPrice > 0,
		p.ProjectedValue > 0,
		p.SizeSqm > 0,
		knownStage,
		p.ReadinessEstimate != "",
		p.DensityUnitsPerDunam != nil,
		p.TaxAuthorityValue != nil,
		p.HasGeometry(),
	}

	var count int
	for _, ok := range present {
		if ok {
			count++
		}
	}
	return float64(count) / float64(len(present))
}

// Score blends ROI, zoning progress, size and completeness. Requires a
// price and a projected value.
func (e *Engine) Score(p models.Parcel) *InvestmentScore {
	roi := GrossRoi(p.TotalPrice, p.ProjectedValue)
	if roi == nil {
		return nil
	}

	s := &InvestmentScore{Completeness: clamp01(DataCompleteness(p))}
	if e.cfg.ScoreRoiCap > 0 {
		s.Roi = clamp01(*roi / e.cfg.ScoreRoiCap)
	}
	if progress, ok := p.ZoningStage.Progress(); ok {
		s.Zoning = clamp01(progress)
	}
	if p.SizeSqm > 0 && e.cfg.ScoreSizeReferenceSqm > 0 {
		s.Size = clamp01(p.SizeSqm / e.cfg.ScoreSizeReferenceSqm)
	}

	weighted := s.Roi*e.cfg.ScoreRoiWeight +
		s.Zoning*e.cfg.ScoreZoningWeight +
		s.Size*e.cfg.ScoreSizeWeight +
		s.Completeness*e.cfg.ScoreCompletenessWeight
	s.Score = round1(math.Min(10, math.Max(0, weighted*10)))
	return s
}

const (
	VerdictHot       = "hot"
	VerdictExcellent = "excellent"
	VerdictGood      = "good"
	VerdictFair      = "fair"
	VerdictPoor      = "poor"
)

const (
	bracketExceptional = "exceptional"
	bracketStrong      = "strong"
	bracketModerate    = "moderate"
	bracketThin        = "thin"
	bracketNegative    = "negative"
)

// bottomQuartileScore is the score below which a top verdict is not shown
const bottomQuartileScore = 2.5

// Verdict is the qualitative tier with the inputs that selected it
type Verdict struct {
	Tier          string  `json:"tier"`
	RoiBracket    string  `json:"roi_bracket"`
	RoiPercentile int     `json:"roi_percentile"`
	Fresh         bool    `json:"fresh"`
	Score         float64 `json:"score"`
}

type verdictRule struct {
	brackets      []string
	minPercentile int
	requireFresh  bool
	tier          string
}

// verdictTable is evaluated top to bottom; the first matching row wins
var verdictTable = []verdictRule{
	{brackets: []string{bracketExceptional}, minPercentile: 75, requireFresh: true, tier: VerdictHot},
	{brackets: []string{bracketExceptional}, minPercentile: 90, tier: VerdictHot},
	{brackets: []string{bracketExceptional, bracketStrong}, minPercentile: 60, tier: VerdictExcellent},
	{brackets: []string{bracketExceptional, bracketStrong, bracketModerate}, minPercentile: 40, tier: VerdictGood},
	{brackets: []string{bracketExceptional, bracketStrong}, tier: VerdictGood},
	{brackets: []string{bracketModerate, bracketThin}, tier: VerdictFair},
	{brackets: []string{bracketNegative}, tier: VerdictPoor},
}

func roiBracket(roi float64) string {
	switch {
	case roi >= 100:
		return bracketExceptional
	case roi >= 50:
		return bracketStrong
	case roi >= 20:
		return bracketModerate
	case roi > 0:
		return bracketThin
	}
	return bracketNegative
}

// Verdict picks the tier from the ROI bracket, the ROI percentile within the
// set and listing freshness. Nil when ROI or its percentile is unavailable.
// A top tier is demoted to fair when the score is in the bottom quartile.
func (e *Engine) Verdict(p models.Parcel, set ComparisonSet, now time.Time) *Verdict {
	score := e.Score(p)
	if score == nil {
		return nil
	}
	percentile := e.PercentileOf(p, set, MetricRoi)
	if percentile == nil {
		return nil
	}
	roi, _ := e.MetricValue(p, MetricRoi)

	v := &Verdict{
		RoiBracket:    roiBracket(roi),
		RoiPercentile: *percentile,
		Score:         score.Score,
	}
	if !p.CreatedAt.IsZero() {
		v.Fresh = !p.CreatedAt.Before(now.AddDate(0, 0, -e.cfg.HotVerdictFreshDays))
	}

	v.Tier = VerdictPoor
	for _, rule := range verdictTable {
		if rule.matches(v) {
			v.Tier = rule.tier
			break
		}
	}

	if (v.Tier == VerdictHot || v.Tier == VerdictExcellent) && score.Score < bottomQuartileScore {
		v.Tier = VerdictFair
	}
	return v
}

func (r verdictRule) matches(v *Verdict) bool {
	if v.RoiPercentile < r.minPercentile || (r.requireFresh && !v.Fresh) {
		return false
	}
	for _, b := range r.brackets {
		if b == v.RoiBracket {
			return true
		}
	}
	return false
}
