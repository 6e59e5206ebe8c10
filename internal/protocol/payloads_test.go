package protocol

import (
	"testing"

	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RegistersEveryKind(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"parse_data",
		"generate_questions",
		"generate_faq",
		"generate_product_page",
		"generate_comparison",
		"product_parsed_result",
		"questions_result",
		"faq_page_result",
		"product_page_result",
		"comparison_page_result",
		"product_parsed",
		"need_product_data",
		"failure",
		"pipeline_complete",
	}, Codec().Kinds())
}

func TestCodec_ProductSurvivesTransport(t *testing.T) {
	c := Codec()
	p := content.Product{
		Name:           "HydraBoost Serum",
		Concentration:  "10% Niacinamide",
		SkinType:       []string{"Oily"},
		KeyIngredients: []string{"Zinc"},
		Benefits:       []string{"Brightening"},
		Usage:          "Apply 2 drops morning",
		SideEffects:    "None reported",
		Price:          599,
	}

	data, err := c.Encode(bus.NewMessage("orchestrator", "question_generator", bus.TypeRequest,
		GenerateQuestionsRequest{Product: &p}, "conv"))
	require.NoError(t, err)

	msg, err := c.Decode(data)
	require.NoError(t, err)

	req, ok := msg.Content.(GenerateQuestionsRequest)
	require.True(t, ok)
	require.NotNil(t, req.Product)
	assert.Equal(t, p, *req.Product)
}

func TestCodec_EmptyQuery(t *testing.T) {
	c := Codec()
	data, err := c.Encode(bus.NewMessage("question_generator", "orchestrator", bus.TypeQuery, NeedProductData{}, "conv"))
	require.NoError(t, err)

	msg, err := c.Decode(data)
	require.NoError(t, err)
	assert.IsType(t, NeedProductData{}, msg.Content)
}
