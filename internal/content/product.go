// Package content holds the product model and the builders that turn a product
// into the FAQ, product and comparison pages.
//
// Everything here is pure: builders take values and return values, so they can
// run inside any agent without coordination.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Product is the validated description of one skincare product.
type Product struct {
	Name           string   `json:"name"`
	Concentration  string   `json:"concentration"`
	SkinType       []string `json:"skin_type"`
	KeyIngredients []string `json:"key_ingredients"`
	Benefits       []string `json:"benefits"`
	Usage          string   `json:"usage"`
	SideEffects    string   `json:"side_effects"`
	Price          int      `json:"price"`
}

// RequiredFields lists the input keys every product must carry.
var RequiredFields = []string{
	"name",
	"concentration",
	"skin_type",
	"key_ingredients",
	"benefits",
	"usage",
	"side_effects",
	"price",
}

// ValidationError reports a missing or invalid product field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid product field %q: %s", e.Field, e.Reason)
}

// DecodeProduct parses raw product JSON.
// A required key that is absent or null is a ValidationError, as is a value of
// the wrong JSON type. The decoded product is validated before it is returned.
func DecodeProduct(data []byte) (Product, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Product{}, fmt.Errorf("failed to parse product data: %w", err)
	}

	for _, name := range RequiredFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return Product{}, &ValidationError{Field: name, Reason: "missing required field"}
		}
	}

	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Product{}, &ValidationError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return Product{}, fmt.Errorf("failed to parse product data: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Validate checks the business rules on an already decoded product.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "Product name is required"}
	}
	if p.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "Product price must be positive"}
	}
	return nil
}

// Clone returns a deep copy so that a product can be handed to another agent
// without sharing slices.
func (p Product) Clone() Product {
	p.SkinType = cloneStrings(p.SkinType)
	p.KeyIngredients = cloneStrings(p.KeyIngredients)
	p.Benefits = cloneStrings(p.Benefits)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
