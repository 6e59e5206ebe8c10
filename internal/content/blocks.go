package content

import (
	"fmt"
	"regexp"
	"strings"
)

// BenefitsBlock is the reusable description of a product's benefits.
type BenefitsBlock struct {
	List        []string
	Description string
	KeyBenefit  string
}

// Benefits builds the benefits block.
func Benefits(p Product) BenefitsBlock {
	b := BenefitsBlock{List: nonNil(p.Benefits)}
	if len(p.Benefits) == 0 {
		return b
	}
	b.KeyBenefit = p.Benefits[0]

	if len(p.Benefits) == 1 {
		b.Description = fmt.Sprintf("%s provides %s benefits.", p.Name, strings.ToLower(p.Benefits[0]))
		return b
	}

	last := len(p.Benefits) - 1
	text := strings.Join(p.Benefits[:last], ", ") + " and " + strings.ToLower(p.Benefits[last])
	b.Description = fmt.Sprintf("%s delivers %s for your skin.", p.Name, text)
	return b
}

// IngredientsBlock is the reusable description of a product's ingredients.
type IngredientsBlock struct {
	List        []string
	Description string
	Primary     string
}

// Ingredients builds the ingredients block. The first ingredient is the primary one.
func Ingredients(p Product) IngredientsBlock {
	b := IngredientsBlock{List: nonNil(p.KeyIngredients)}
	if len(p.KeyIngredients) == 0 {
		return b
	}
	b.Primary = p.KeyIngredients[0]

	if len(p.KeyIngredients) == 1 {
		b.Description = fmt.Sprintf("Formulated with %s.", p.KeyIngredients[0])
		return b
	}

	last := len(p.KeyIngredients) - 1
	text := strings.Join(p.KeyIngredients[:last], ", ") + " and " + p.KeyIngredients[last]
	b.Description = fmt.Sprintf("Key ingredients include %s.", text)
	return b
}

// UsageBlock is the structured reading of a product's usage text.
type UsageBlock struct {
	Instructions      string
	Frequency         string
	Timing            string
	ApplicationMethod string
}

var applyAmount = regexp.MustCompile(`apply\s+(\d+-?\d*\s+\w+)`)

// Usage extracts frequency, timing and amount from the usage text.
func Usage(p Product) UsageBlock {
	text := strings.ToLower(p.Usage)
	return UsageBlock{
		Instructions:      p.Usage,
		Frequency:         usageFrequency(text),
		Timing:            usageTiming(text),
		ApplicationMethod: applicationMethod(text),
	}
}

func usageFrequency(text string) string {
	evening := strings.Contains(text, "evening") || strings.Contains(text, "night")
	switch {
	case strings.Contains(text, "morning") && !strings.Contains(text, "evening"):
		return "Once daily (morning)"
	case evening:
		return "Once daily (evening)"
	case strings.Contains(text, "twice"):
		return "Twice daily"
	default:
		return "As directed"
	}
}

func usageTiming(text string) string {
	switch {
	case strings.Contains(text, "morning"):
		return "Morning"
	case strings.Contains(text, "evening") || strings.Contains(text, "night"):
		return "Evening"
	default:
		return "Anytime"
	}
}

func applicationMethod(text string) string {
	if m := applyAmount.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return "As directed"
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
