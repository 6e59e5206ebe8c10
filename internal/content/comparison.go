package content

import (
	"fmt"
	"math"
	"math/rand"
)

// Tie is the winner reported when neither product scores higher.
const Tie = "Tie"

var competitorPrices = []int{799, 899, 999}

// Competitor returns the fictional product every comparison is made against.
// Its price is drawn from a fixed set using rng.
func Competitor(rng *rand.Rand) Product {
	return Product{
		Name:           "RadiantGlow Vitamin C Essence",
		Concentration:  "15% Vitamin C",
		SkinType:       []string{"Normal", "Dry"},
		KeyIngredients: []string{"Vitamin C", "Vitamin E", "Ferulic Acid"},
		Benefits:       []string{"Anti-aging", "Brightening", "Hydration"},
		Usage:          "Apply 3-4 drops in the evening after cleansing",
		SideEffects:    "May cause slight irritation on very sensitive skin",
		Price:          competitorPrices[rng.Intn(len(competitorPrices))],
	}
}

// ComparisonPage is the document written to comparison_page.json.
type ComparisonPage struct {
	PageType             string               `json:"page_type"`
	ComparisonTitle      string               `json:"comparison_title"`
	Products             ComparedProducts     `json:"products"`
	PriceComparison      PriceComparison      `json:"price_comparison"`
	IngredientComparison IngredientComparison `json:"ingredient_comparison"`
	BenefitsComparison   BenefitsComparison   `json:"benefits_comparison"`
	SkinTypeComparison   SkinTypeComparison   `json:"skin_type_comparison"`
	WinnerAnalysis       WinnerAnalysis       `json:"winner_analysis"`
	Recommendation       string               `json:"recommendation"`
}

type ComparedProducts struct {
	ProductA ProductSummary `json:"product_a"`
	ProductB ProductSummary `json:"product_b"`
}

type ProductSummary struct {
	Name          string   `json:"name"`
	Concentration string   `json:"concentration"`
	Price         int      `json:"price"`
	SkinType      []string `json:"skin_type"`
	Ingredients   []string `json:"ingredients"`
	Benefits      []string `json:"benefits"`
	Usage         string   `json:"usage"`
}

type PriceComparison struct {
	ProductAPrice        int     `json:"product_a_price"`
	ProductBPrice        int     `json:"product_b_price"`
	Difference           int     `json:"difference"`
	CheaperProduct       string  `json:"cheaper_product"`
	PercentageDifference float64 `json:"percentage_difference"`
}

type IngredientComparison struct {
	CommonIngredients []string `json:"common_ingredients"`
	UniqueToProductA  []string `json:"unique_to_product_a"`
	UniqueToProductB  []string `json:"unique_to_product_b"`
	TotalIngredientsA int      `json:"total_ingredients_a"`
	TotalIngredientsB int      `json:"total_ingredients_b"`
}

type BenefitsComparison struct {
	CommonBenefits   []string `json:"common_benefits"`
	UniqueToProductA []string `json:"unique_to_product_a"`
	UniqueToProductB []string `json:"unique_to_product_b"`
}

type SkinTypeComparison struct {
	CommonSkinTypes  []string `json:"common_skin_types"`
	UniqueToProductA []string `json:"unique_to_product_a"`
	UniqueToProductB []string `json:"unique_to_product_b"`
}

type WinnerAnalysis struct {
	Winner        string `json:"winner"`
	ScoreProductA int    `json:"score_product_a"`
	ScoreProductB int    `json:"score_product_b"`
	Reasoning     string `json:"reasoning"`
}

// BuildComparisonPage compares a against b.
// Set-like fields keep the order in which items appear in the inputs.
func BuildComparisonPage(a, b Product) ComparisonPage {
	common, onlyA, onlyB := partition(a.KeyIngredients, b.KeyIngredients)
	commonBen, onlyBenA, onlyBenB := partition(a.Benefits, b.Benefits)
	commonSkin, onlySkinA, onlySkinB := partition(a.SkinType, b.SkinType)

	winner := scoreWinner(a, b)

	return ComparisonPage{
		PageType:        "Comparison",
		ComparisonTitle: fmt.Sprintf("%s vs %s", a.Name, b.Name),
		Products: ComparedProducts{
			ProductA: summarize(a),
			ProductB: summarize(b),
		},
		PriceComparison: comparePrices(a, b),
		IngredientComparison: IngredientComparison{
			CommonIngredients: common,
			UniqueToProductA:  onlyA,
			UniqueToProductB:  onlyB,
			TotalIngredientsA: len(a.KeyIngredients),
			TotalIngredientsB: len(b.KeyIngredients),
		},
		BenefitsComparison: BenefitsComparison{
			CommonBenefits:   commonBen,
			UniqueToProductA: onlyBenA,
			UniqueToProductB: onlyBenB,
		},
		SkinTypeComparison: SkinTypeComparison{
			CommonSkinTypes:  commonSkin,
			UniqueToProductA: onlySkinA,
			UniqueToProductB: onlySkinB,
		},
		WinnerAnalysis: winner,
		Recommendation: recommend(winner.Winner),
	}
}

func summarize(p Product) ProductSummary {
	return ProductSummary{
		Name:          p.Name,
		Concentration: p.Concentration,
		Price:         p.Price,
		SkinType:      nonNil(p.SkinType),
		Ingredients:   nonNil(p.KeyIngredients),
		Benefits:      nonNil(p.Benefits),
		Usage:         p.Usage,
	}
}

func comparePrices(a, b Product) PriceComparison {
	diff := a.Price - b.Price
	cheaper := b.Name
	if diff < 0 {
		cheaper = a.Name
	}

	abs := diff
	if abs < 0 {
		abs = -abs
	}

	var pct float64
	if hi := max(a.Price, b.Price); hi > 0 {
		pct = math.Round(float64(abs)/float64(hi)*100*100) / 100
	}

	return PriceComparison{
		ProductAPrice:        a.Price,
		ProductBPrice:        b.Price,
		Difference:           abs,
		CheaperProduct:       cheaper,
		PercentageDifference: pct,
	}
}

// scoreWinner awards one point each for the lower price (ties go to b), more
// benefits and more ingredients.
func scoreWinner(a, b Product) WinnerAnalysis {
	var scoreA, scoreB int

	if a.Price < b.Price {
		scoreA++
	} else {
		scoreB++
	}

	switch {
	case len(a.Benefits) > len(b.Benefits):
		scoreA++
	case len(b.Benefits) > len(a.Benefits):
		scoreB++
	}

	switch {
	case len(a.KeyIngredients) > len(b.KeyIngredients):
		scoreA++
	case len(b.KeyIngredients) > len(a.KeyIngredients):
		scoreB++
	}

	winner := Tie
	if scoreA > scoreB {
		winner = a.Name
	} else if scoreB > scoreA {
		winner = b.Name
	}

	return WinnerAnalysis{
		Winner:        winner,
		ScoreProductA: scoreA,
		ScoreProductB: scoreB,
		Reasoning:     "Based on price, benefits count, and ingredients count",
	}
}

func recommend(winner string) string {
	if winner != "" && winner != Tie {
		return fmt.Sprintf("Based on our analysis, %s offers better overall value.", winner)
	}
	return "Both products offer unique benefits. Choose based on your specific needs."
}

// partition splits two lists into items in both, only in a and only in b.
// Duplicates are collapsed; results are never nil.
func partition(a, b []string) (common, onlyA, onlyB []string) {
	inA := toSet(a)
	inB := toSet(b)
	common, onlyA, onlyB = []string{}, []string{}, []string{}

	seen := make(map[string]bool, len(a))
	for _, s := range a {
		if seen[s] {
			continue
		}
		seen[s] = true
		if inB[s] {
			common = append(common, s)
		} else {
			onlyA = append(onlyA, s)
		}
	}

	seen = make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] || inA[s] {
			continue
		}
		seen[s] = true
		onlyB = append(onlyB, s)
	}

	return common, onlyA, onlyB
}

func toSet(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, s := range in {
		out[s] = true
	}
	return out
}
