package content

// Category groups FAQ questions.
type Category string

const (
	CategoryInformational Category = "Informational"
	CategorySafety        Category = "Safety"
	CategoryUsage         Category = "Usage"
	CategoryPurchase      Category = "Purchase"
	CategoryComparison    Category = "Comparison"
)

// Categories is the fixed set of FAQ categories in presentation order.
var Categories = []Category{
	CategoryInformational,
	CategorySafety,
	CategoryUsage,
	CategoryPurchase,
	CategoryComparison,
}

// Question is a user question tagged with its category.
type Question struct {
	Question string   `json:"question"`
	Category Category `json:"category"`
}

// GenerateQuestions returns the question bank for p, grouped by category.
func GenerateQuestions(p Product) []Question {
	name := p.Name
	return []Question{
		{"What is " + name + "?", CategoryInformational},
		{"What are the key ingredients?", CategoryInformational},
		{"What skin types is it suitable for?", CategoryInformational},
		{"What is the concentration?", CategoryInformational},

		{"Are there any side effects?", CategorySafety},
		{"Is it safe for sensitive skin?", CategorySafety},
		{"Can I use it with other products?", CategorySafety},

		{"How do I use " + name + "?", CategoryUsage},
		{"When should I apply it?", CategoryUsage},
		{"How much should I use?", CategoryUsage},
		{"Can I use it daily?", CategoryUsage},

		{"What is the price?", CategoryPurchase},
		{"Where can I buy it?", CategoryPurchase},
		{"Is it worth the price?", CategoryPurchase},

		{"How does it compare to other serums?", CategoryComparison},
		{"What makes " + name + " unique?", CategoryComparison},
	}
}
