// Package report produces the plain-text health risk assessment.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aramyan/yerevanair/internal/health"
	"github.com/aramyan/yerevanair/internal/models"
)

// SensorAssessment summarizes one sensor's exposure over a period.
type SensorAssessment struct {
	SensorID         int
	District         string
	MeanPM25         float64
	MaxPM25          float64
	Category         health.Category
	PercentAboveWHO  float64
	PercentHazardous float64
	DataPoints       int
	Risks            map[health.Outcome]health.OutcomeRisk
}

// Assess reduces a sensor's measurements to an assessment. Returns
// false when there are no valid readings to assess.
func Assess(sensorID int, district string, rows []models.Measurement) (SensorAssessment, bool) {
	var sum, maxVal float64
	var n, above, hazardous int
	for _, m := range rows {
		if !m.PM25.Valid {
			continue
		}
		v := m.PM25.Float64
		sum += v
		if v > maxVal {
			maxVal = v
		}
		if v > health.GuidelineAnnual {
			above++
		}
		if v > health.InterimTarget2 {
			hazardous++
		}
		n++
	}
	if n == 0 {
		return SensorAssessment{}, false
	}

	mean := sum / float64(n)
	if district == "" {
		district = "Unknown"
	}
	return SensorAssessment{
		SensorID:         sensorID,
		District:         district,
		MeanPM25:         mean,
		MaxPM25:          maxVal,
		Category:         health.Categorize(mean),
		PercentAboveWHO:  float64(above) / float64(n) * 100,
		PercentHazardous: float64(hazardous) / float64(n) * 100,
		DataPoints:       n,
		Risks:            health.ExcessRisk(mean),
	}, true
}

const rule = "======================================================================"

// Write renders the assessment report. Layout is fixed so the files
// diff cleanly between months.
func Write(w io.Writer, generated time.Time, assessments []SensorAssessment) error {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("HEALTH RISK ASSESSMENT REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "WHO Annual Guideline: %.0f µg/m³\n", health.GuidelineAnnual)
	fmt.Fprintf(&b, "WHO 24-hour Guideline: %.0f µg/m³\n", health.Guideline24Hour)

	var meanSum float64
	for _, a := range assessments {
		meanSum += a.MeanPM25

		fmt.Fprintf(&b, "\nSensor %d (%s):\n", a.SensorID, a.District)
		fmt.Fprintf(&b, "  Mean PM2.5: %.2f µg/m³\n", a.MeanPM25)
		fmt.Fprintf(&b, "  Max PM2.5: %.2f µg/m³\n", a.MaxPM25)
		fmt.Fprintf(&b, "  Air Quality: %s\n", a.Category.Label)
		fmt.Fprintf(&b, "  %% Above WHO: %.1f%%\n", a.PercentAboveWHO)
		fmt.Fprintf(&b, "  Data Points: %d\n", a.DataPoints)

		if len(a.Risks) > 0 {
			b.WriteString("  Excess Health Risks:\n")
			for _, outcome := range health.Outcomes {
				risk, ok := a.Risks[outcome]
				if !ok {
					continue
				}
				fmt.Fprintf(&b, "    %s:\n", titleCase(string(outcome)))
				fmt.Fprintf(&b, "      Relative Risk: %.3f\n", risk.RelativeRisk)
				fmt.Fprintf(&b, "      Excess Risk: %.1f%%\n", risk.ExcessPercent)
			}
		}
	}

	if len(assessments) > 0 {
		impact := health.EstimatePopulationImpact(meanSum/float64(len(assessments)), 1_000_000)
		b.WriteString("\nEstimated Population Impact (per million residents):\n")
		fmt.Fprintf(&b, "  Premature Deaths Per Year: %.0f\n", impact.PrematureDeaths)
		fmt.Fprintf(&b, "  Hospital Admissions Per Year: %.0f\n", impact.HospitalAdmissions)
		fmt.Fprintf(&b, "  Asthma Emergency Visits: %.0f\n", impact.AsthmaEmergencies)
		fmt.Fprintf(&b, "  Lost Work Days Per Year: %.0f\n", impact.LostWorkDays)
	}

	b.WriteString("\n" + rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Filename returns the conventional report file name for a period.
func Filename(year, month int) string {
	return fmt.Sprintf("health_risk_report_%d_%02d.txt", year, month)
}

// titleCase turns an outcome key like "lung_cancer" into "Lung Cancer".
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
