package ai

import (
	"strings"

	"github.com/socialchef/pantry/internal/validation"
)

const ingredientsTaskOpen = "Create a delicious recipe using these ingredients: "

const requirementsSection = `Please include:
1. Recipe name
2. Ingredients list with quantities
3. Step-by-step cooking instructions
4. Cooking time and servings
5. Any helpful tips`

const closingSection = "Make the recipe practical and easy to follow."

// BuildIngredientsPrompt builds the generation prompt for a list of ingredients.
// The ingredients are trimmed and otherwise interpolated verbatim.
func BuildIngredientsPrompt(ingredients string) string {
	var sb strings.Builder
	sb.WriteString(ingredientsTaskOpen)
	sb.WriteString(validation.Trim(ingredients))
	sb.WriteString("\n\n")
	sb.WriteString(requirementsSection)
	sb.WriteString("\n\n")
	sb.WriteString(closingSection)
	return sb.String()
}
