package offer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

const currentSalaryRaise = 1.15

// EstimateSalary proposes an annual base salary. Candidates in India are
// quoted in lakh per annum, everyone else in dollars.
func EstimateSalary(facts entity.CandidateFacts) string {
	india := facts.Location == "" || strings.Contains(strings.ToLower(facts.Location), "india")

	if facts.CurrentSalary != nil {
		if current, err := strconv.ParseFloat(*facts.CurrentSalary, 64); err == nil && current > 0 {
			return formatSalary(int(math.Round(current*currentSalaryRaise)), india)
		}
	}

	base := baseSalary(strings.ToLower(facts.Position), india)

	years := 2
	if facts.ExperienceYears != nil && *facts.ExperienceYears != 0 {
		years = *facts.ExperienceYears
	}

	switch {
	case years >= 5:
		base = int(math.Round(float64(base) * 1.5))
	case years >= 3:
		base = int(math.Round(float64(base) * 1.2))
	case years < 1:
		base = max(4, int(math.Round(float64(base)*0.7)))
	}

	return formatSalary(base, india)
}

func baseSalary(position string, india bool) int {
	switch {
	case strings.Contains(position, "senior"), strings.Contains(position, "lead"), strings.Contains(position, "principal"):
		return pick(india, 15, 120000)
	case strings.Contains(position, "mid"), strings.Contains(position, "experienced"):
		return pick(india, 10, 90000)
	default:
		return pick(india, 6, 70000)
	}
}

func formatSalary(amount int, india bool) string {
	if india {
		return fmt.Sprintf("₹%d LPA", amount)
	}
	return fmt.Sprintf("$%d per annum", amount)
}

func pick(india bool, inIndia, elsewhere int) int {
	if india {
		return inIndia
	}
	return elsewhere
}
