package analytics

import "fmt"

var scenarioNames = []string{"optimistic", "base", "conservative", "pessimistic"}

// Scenario is the valuation waterfall at a scaled projected value
type Scenario struct {
	Name   string     `json:"name"`
	Factor float64    `json:"factor"`
	Result *Waterfall `json:"result"`
}

// Scenarios re-runs the waterfall with the projected value scaled by each
// configured factor. Nil when the projected value is unknown.
func (e *Engine) Scenarios(totalPrice, projectedValue, holdingYears float64) []Scenario {
	if projectedValue <= 0 {
		return nil
	}

	scenarios := make([]Scenario, 0, len(e.cfg.ScenarioFactors))
	for i, factor := range e.cfg.ScenarioFactors {
		if factor <= 0 {
			continue
		}
		w := e.Waterfall(totalPrice, projectedValue*factor, holdingYears)
		if w == nil {
			continue
		}
		scenarios = append(scenarios, Scenario{
			Name:   scenarioName(i),
			Factor: factor,
			Result: w,
		})
	}
	return scenarios
}

func scenarioName(i int) string {
	if i < len(scenarioNames) {
		return scenarioNames[i]
	}
	return fmt.Sprintf("scenario_%d", i+1)
}
