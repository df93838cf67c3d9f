package recommend

import (
	"fmt"
	"strings"

	"github.com/abhisek/sldscreen/internal/screening"
)

const systemPrompt = `You are an educational psychologist assistant. You review screening results for specific learning difficulties in children aged 8-12 and give brief, actionable guidance to their parents and teachers. Screening results are not a diagnosis.`

func buildUserMessage(in Input, rubric *screening.Rubric) string {
	var b strings.Builder

	b.WriteString("Based on the following screening results for a child aged 8-12, provide brief, actionable recommendations.\n\n")
	b.WriteString("Probabilities:\n")
	for _, c := range screening.Categories {
		fmt.Fprintf(&b, "- %s: %s\n", categoryName(c, rubric), percent(in.Probabilities[c]))
	}

	fmt.Fprintf(&b, "\nOverall Risk Level: %s\n", strings.ToUpper(string(in.Risk)))

	if len(in.Flagged) > 0 {
		names := make([]string, len(in.Flagged))
		for i, c := range in.Flagged {
			names[i] = categoryName(c, rubric)
		}
		fmt.Fprintf(&b, "At or above referral threshold: %s\n", strings.Join(names, ", "))
	}

	b.WriteString(`
Instructions:
Provide 3-5 specific, practical recommendations for parents and teachers.
Keep each recommendation to 1-2 sentences.`)

	return b.String()
}

// categoryName renders a category as "Dyslexia (Reading)".
func categoryName(c screening.Category, rubric *screening.Rubric) string {
	name := string(c)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if spec, ok := rubric.Categories[c]; ok && spec.Label != "" {
		return fmt.Sprintf("%s (%s)", name, spec.Label)
	}
	return name
}

// percent formats a probability as a percentage with two decimals.
func percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
