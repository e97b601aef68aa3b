package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

const (
	DefaultPosition   = "Software Engineer"
	DefaultExperience = 2
	DefaultLocation   = "India"

	maxSkills       = 10
	candidateChunks = 5
)

const (
	titleRoles = `engineer|developer|manager|analyst|designer|specialist|consultant|architect`
	places     = `india|usa|uk|canada|australia|andhra pradesh|karnataka|maharashtra|tamil nadu|delhi|mumbai|bangalore|hyderabad|chennai|pune|kolkata`
	currency   = `(?:₹|rs\.?|inr|\$|usd)`
	amount     = `(\d+(?:,\d+)*(?:\.\d+)?)`
)

var (
	labeledTitle  = regexp.MustCompile(`(?:position|title|role|job title|current role)[\s:]+([a-z\s]+?(?:` + titleRoles + `))`)
	seniorityRole = regexp.MustCompile(`\b(?:senior|junior|lead|principal)\s+[a-z\s]+?(?:` + titleRoles + `)`)
	fieldRole     = regexp.MustCompile(`\b(?:full\s*stack|frontend|backend|software|data|ml|ai|devops|cloud|product|project)\s+[a-z\s]+?(?:` + titleRoles + `)`)

	experiencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s*(?:years?|yrs?)\s*(?:of\s*)?(?:experience|exp)`),
		regexp.MustCompile(`experience[\s:]+(\d+)\+?\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(\d+)\+?\s*(?:years?|yrs?)\s*(?:in|of)`),
	}

	labeledLocation = regexp.MustCompile(`(?:location|based in|from|residing in)[\s:]+([a-z\s,]+?(?:` + places + `|germany|france))`)
	knownLocation   = regexp.MustCompile(`\b(` + places + `)\b`)

	salaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:salary|ctc|package|compensation)[\s:]+` + currency + `?\s*` + amount + `\s*(?:lakh|lpa|per annum|pa|annually|yearly)`),
		regexp.MustCompile(currency + `\s*` + amount + `\s*(?:lakh|lpa|per annum|pa)`),
	}

	whitespace = regexp.MustCompile(`\s+`)
)

var skillVocabulary = []string{
	"javascript", "python", "java", "react", "node", "angular", "vue", "typescript",
	"sql", "mongodb", "postgresql", "aws", "azure", "docker", "kubernetes", "git",
	"html", "css", "express", "django", "flask", "spring", "redux", "graphql",
	"machine learning", "ml", "ai", "data science", "tensorflow", "pytorch",
	"pandas", "numpy", "devops", "ci/cd",
}

// DetectPosition returns the job title found in lower-cased text, or "".
func DetectPosition(text string) string {
	if m := labeledTitle.FindStringSubmatch(text); m != nil {
		return collapse(m[1])
	}
	for _, re := range []*regexp.Regexp{seniorityRole, fieldRole} {
		if m := re.FindString(text); m != "" {
			return collapse(m)
		}
	}
	return ""
}

// DetectExperience returns the first years-of-experience figure, or nil.
func DetectExperience(text string) *int {
	for _, re := range experiencePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if years, err := strconv.Atoi(m[1]); err == nil {
			return &years
		}
	}
	return nil
}

func DetectLocation(text string) string {
	if m := labeledLocation.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := knownLocation.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// DetectSkills matches the fixed vocabulary by substring, in vocabulary
// order, capped at ten.
func DetectSkills(text string) []string {
	skills := []string{}
	for _, skill := range skillVocabulary {
		if len(skills) == maxSkills {
			break
		}
		if strings.Contains(text, skill) {
			skills = append(skills, skill)
		}
	}
	return skills
}

// DetectSalary returns the current compensation figure without thousands
// separators, or nil.
func DetectSalary(text string) *string {
	for _, re := range salaryPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			salary := strings.ReplaceAll(m[1], ",", "")
			return &salary
		}
	}
	return nil
}

// CandidateDetails runs every detector over the first chunks and applies
// defaults for anything not found.
func CandidateDetails(chunks []entity.Chunk) entity.CandidateFacts {
	if len(chunks) > candidateChunks {
		chunks = chunks[:candidateChunks]
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	text := strings.ToLower(strings.Join(texts, "\n"))

	facts := entity.CandidateFacts{
		Position:        DetectPosition(text),
		ExperienceYears: DetectExperience(text),
		Location:        DetectLocation(text),
		Skills:          DetectSkills(text),
		CurrentSalary:   DetectSalary(text),
	}

	if facts.Position == "" {
		facts.Position = DefaultPosition
	}
	if facts.ExperienceYears == nil {
		years := DefaultExperience
		facts.ExperienceYears = &years
	}
	if facts.Location == "" {
		facts.Location = DefaultLocation
	}

	return facts
}

func collapse(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}
