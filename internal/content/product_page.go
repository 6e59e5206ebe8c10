package content

import "strings"

// ProductPage is the document written to product_page.json.
type ProductPage struct {
	PageType    string             `json:"page_type"`
	ProductName string             `json:"product_name"`
	Overview    Overview           `json:"overview"`
	Benefits    BenefitsSection    `json:"benefits"`
	Ingredients IngredientsSection `json:"ingredients"`
	Usage       UsageSection       `json:"usage"`
	Details     Details            `json:"details"`
	Pricing     Pricing            `json:"pricing"`
}

type Overview struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

type BenefitsSection struct {
	Heading      string   `json:"heading"`
	Description  string   `json:"description"`
	BenefitsList []string `json:"benefits_list"`
}

type IngredientsSection struct {
	Heading           string   `json:"heading"`
	Description       string   `json:"description"`
	IngredientsList   []string `json:"ingredients_list"`
	PrimaryIngredient string   `json:"primary_ingredient"`
}

type UsageSection struct {
	Heading           string `json:"heading"`
	Instructions      string `json:"instructions"`
	Frequency         string `json:"frequency"`
	Timing            string `json:"timing"`
	ApplicationMethod string `json:"application_method"`
}

type Details struct {
	SkinType      []string `json:"skin_type"`
	Concentration string   `json:"concentration"`
	SideEffects   string   `json:"side_effects"`
	SafetyNote    string   `json:"safety_note"`
}

type Pricing struct {
	Price          int    `json:"price"`
	Currency       string `json:"currency"`
	FormattedPrice string `json:"formatted_price"`
}

// BuildProductPage assembles the product page from the content blocks.
func BuildProductPage(p Product) ProductPage {
	benefits := Benefits(p)
	ingredients := Ingredients(p)
	usage := Usage(p)

	return ProductPage{
		PageType:    "Product Page",
		ProductName: p.Name,
		Overview: Overview{
			Title:       p.Name,
			Subtitle:    p.Concentration,
			Description: "A premium skincare serum designed for " + strings.ToLower(strings.Join(p.SkinType, " and ")) + " skin types.",
		},
		Benefits: BenefitsSection{
			Heading:      "Key Benefits",
			Description:  benefits.Description,
			BenefitsList: benefits.List,
		},
		Ingredients: IngredientsSection{
			Heading:           "Key Ingredients",
			Description:       ingredients.Description,
			IngredientsList:   ingredients.List,
			PrimaryIngredient: ingredients.Primary,
		},
		Usage: UsageSection{
			Heading:           "How to Use",
			Instructions:      usage.Instructions,
			Frequency:         usage.Frequency,
			Timing:            usage.Timing,
			ApplicationMethod: usage.ApplicationMethod,
		},
		Details: Details{
			SkinType:      nonNil(p.SkinType),
			Concentration: p.Concentration,
			SideEffects:   p.SideEffects,
			SafetyNote:    "Note: " + p.SideEffects,
		},
		Pricing: Pricing{
			Price:          p.Price,
			Currency:       "INR",
			FormattedPrice: FormatPrice(p.Price),
		},
	}
}
