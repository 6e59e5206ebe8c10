package content

import (
	"fmt"
	"strings"
)

// MinFAQQuestions is the smallest FAQ page that may be published.
const MinFAQQuestions = 15

// FAQ is one answered question.
type FAQ struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category Category `json:"category"`
}

// FAQPage is the document written to faq.json.
type FAQPage struct {
	PageType       string     `json:"page_type"`
	ProductName    string     `json:"product_name"`
	TotalQuestions int        `json:"total_questions"`
	FAQs           []FAQ      `json:"faqs"`
	Categories     []Category `json:"categories"`
}

// BuildFAQPage answers every question from the product data.
// Categories are listed in the order they first appear.
func BuildFAQPage(p Product, questions []Question) (FAQPage, error) {
	if len(questions) < MinFAQQuestions {
		return FAQPage{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewQuestions, len(questions), MinFAQQuestions)
	}

	page := FAQPage{
		PageType:    "FAQ",
		ProductName: p.Name,
		FAQs:        make([]FAQ, 0, len(questions)),
		Categories:  []Category{},
	}

	seen := make(map[Category]bool)
	for _, q := range questions {
		page.FAQs = append(page.FAQs, FAQ{
			Question: q.Question,
			Answer:   Answer(p, q.Question),
			Category: q.Category,
		})
		if !seen[q.Category] {
			seen[q.Category] = true
			page.Categories = append(page.Categories, q.Category)
		}
	}
	page.TotalQuestions = len(page.FAQs)

	return page, nil
}

// Answer picks an answer for question by keyword. Rules are checked in order
// and the first match wins.
func Answer(p Product, question string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "price") || strings.Contains(q, "cost"):
		return fmt.Sprintf("%s is priced at %s.", p.Name, FormatPrice(p.Price))
	case strings.Contains(q, "ingredients"):
		return fmt.Sprintf("The key ingredients in %s are %s.", p.Name, strings.Join(p.KeyIngredients, ", "))
	case strings.Contains(q, "benefits") || strings.Contains(q, "does it do"):
		return fmt.Sprintf("%s helps with %s.", p.Name, strings.Join(lowerAll(p.Benefits), " and "))
	case strings.Contains(q, "use") || strings.Contains(q, "apply"):
		return p.Usage
	case strings.Contains(q, "skin type"):
		return fmt.Sprintf("%s is suitable for %s skin.", p.Name, strings.Join(p.SkinType, " and "))
	case strings.Contains(q, "side effect"):
		return p.SideEffects
	case strings.Contains(q, "concentration") || strings.Contains(q, "%"):
		return fmt.Sprintf("%s contains %s.", p.Name, p.Concentration)
	default:
		return fmt.Sprintf("Please refer to the product details for more information about %s.", p.Name)
	}
}

// FormatPrice renders a price in rupees.
func FormatPrice(price int) string {
	return fmt.Sprintf("₹%d", price)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
