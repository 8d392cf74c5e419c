// Package health maps PM2.5 concentrations onto WHO guideline
// categories and literature-based risk estimates.
package health

import "math"

// WHO 2021 air quality guideline values, µg/m³.
const (
	GuidelineAnnual = 5.0
	Guideline24Hour = 15.0
	InterimTarget1  = 35.0
	InterimTarget2  = 25.0
	InterimTarget3  = 15.0
	InterimTarget4  = 10.0
)

// Category is a WHO-derived air quality band.
type Category struct {
	Label string
	Color string
}

var categories = []struct {
	upper float64
	cat   Category
}{
	{5, Category{"Good", "green"}},
	{15, Category{"Moderate", "yellow"}},
	{25, Category{"Unhealthy for Sensitive Groups", "orange"}},
	{35, Category{"Unhealthy", "red"}},
	{50, Category{"Very Unhealthy", "purple"}},
}

// Categorize places a PM2.5 value into its air quality band. Bounds
// are inclusive on the upper edge, so 5.0 is still Good.
func Categorize(pm25 float64) Category {
	for _, c := range categories {
		if pm25 <= c.upper {
			return c.cat
		}
	}
	return Category{"Hazardous", "maroon"}
}

var riskDescriptions = map[string]string{
	"Good":                           "No health impacts expected",
	"Moderate":                       "Unusually sensitive people should consider reducing prolonged outdoor exertion",
	"Unhealthy for Sensitive Groups": "Active children and adults with respiratory disease should limit outdoor exertion",
	"Unhealthy":                      "Everyone may begin to experience health effects",
	"Very Unhealthy":                 "Health warnings of emergency conditions",
	"Hazardous":                      "Health alert: everyone may experience serious health effects",
}

// RiskLevel returns the band label and its population guidance for a
// PM2.5 value.
func RiskLevel(pm25 float64) (level, description string) {
	cat := Categorize(pm25)
	return cat.Label, riskDescriptions[cat.Label]
}

// Outcome names a health endpoint with an epidemiological relative
// risk coefficient.
type Outcome string

const (
	Mortality      Outcome = "mortality"
	Cardiovascular Outcome = "cardiovascular"
	Respiratory    Outcome = "respiratory"
	LungCancer     Outcome = "lung_cancer"
)

// Outcomes lists every modelled endpoint in report order.
var Outcomes = []Outcome{Mortality, Cardiovascular, Respiratory, LungCancer}

type riskParams struct {
	coefficient float64 // relative risk per 10 µg/m³ increase
	description string
}

var riskParameters = map[Outcome]riskParams{
	Mortality:      {1.062, "All-cause mortality (WHO 2021)"},
	Cardiovascular: {1.11, "Cardiovascular hospital admissions"},
	Respiratory:    {1.08, "Respiratory hospital admissions"},
	LungCancer:     {1.09, "Lung cancer mortality"},
}

// OutcomeRisk is the excess risk for one endpoint at a given exposure.
type OutcomeRisk struct {
	RelativeRisk  float64
	ExcessPercent float64
	Description   string
}

// ExcessRisk computes, per endpoint, the relative risk of the given
// PM2.5 level against the annual guideline. Levels at or below the
// guideline return an empty map: there is no excess to attribute.
func ExcessRisk(pm25 float64) map[Outcome]OutcomeRisk {
	if pm25 <= GuidelineAnnual {
		return map[Outcome]OutcomeRisk{}
	}
	excess := pm25 - GuidelineAnnual

	risks := make(map[Outcome]OutcomeRisk, len(riskParameters))
	for outcome, p := range riskParameters {
		rr := math.Pow(p.coefficient, excess/10)
		risks[outcome] = OutcomeRisk{
			RelativeRisk:  round3(rr),
			ExcessPercent: round1((rr - 1) * 100),
			Description:   p.description,
		}
	}
	return risks
}

// PopulationImpact is an annual burden estimate for a population
// exposed to a given mean concentration. The per-µg rates are
// illustrative literature values, not a dispersion model.
type PopulationImpact struct {
	PrematureDeaths    float64
	HospitalAdmissions float64
	AsthmaEmergencies  float64
	LostWorkDays       float64
}

// EstimatePopulationImpact scales the excess over the annual guideline
// by population size. A mean at or below the guideline yields zeros.
func EstimatePopulationImpact(pm25Mean float64, population int) PopulationImpact {
	excess := math.Max(0, pm25Mean-GuidelineAnnual)
	pop := float64(population)
	return PopulationImpact{
		PrematureDeaths:    math.Round(pop * 0.0001 * excess),
		HospitalAdmissions: math.Round(pop * 0.0002 * excess),
		AsthmaEmergencies:  math.Round(pop * 0.00015 * excess),
		LostWorkDays:       math.Round(pop * 0.001 * excess),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
