package recipe

import "fmt"

// FallbackNote accompanies the provider fallback recipe.
const FallbackNote = "Using fallback recipe due to AI service issue"

const providerFallbackTemplate = `# %[1]s Recipe

## Ingredients:
- %[1]s
- Basic cooking ingredients (oil, salt, pepper)

## Instructions:
1. Prepare your ingredients
2. Cook according to your preferred method
3. Season to taste
4. Serve and enjoy!

*Note: This is a basic recipe template. The AI service is temporarily unavailable.*`

// The cooking time line ends in two spaces, a markdown hard break.
const degradedTemplate = `# Simple %[1]s Recipe

## Ingredients:
- %[1]s
- 2 tablespoons cooking oil
- Salt and pepper to taste
- Optional seasonings (garlic, herbs, spices)

## Instructions:
1. Prepare your %[1]s by washing and chopping as needed
2. Heat oil in a large pan over medium heat
3. Add your prepared ingredients to the pan
4. Cook for 8-12 minutes, stirring occasionally
5. Season with salt and pepper
6. Taste and adjust seasoning as needed
7. Serve hot and enjoy!

` + "**Cooking Time:** 15-20 minutes  \n" + `**Servings:** 2-4 people

**Tips:** Feel free to add your favorite herbs or spices to enhance the flavor!`

// GenericRecipe is served when a request fails before its ingredients are known.
const GenericRecipe = `# Quick Recipe

## Ingredients:
- Your ingredients
- Cooking oil
- Salt and pepper

## Instructions:
1. Prepare ingredients
2. Cook in a pan with oil
3. Season with salt and pepper
4. Serve hot

*Basic fallback recipe*`

// ProviderFallbackRecipe is served when the provider call fails for an unclassified reason.
// ingredients is embedded as the caller sent it.
func ProviderFallbackRecipe(ingredients string) string {
	return fmt.Sprintf(providerFallbackTemplate, ingredients)
}

// DegradedRecipe is served when the provider answers with too little text.
func DegradedRecipe(ingredients string) string {
	return fmt.Sprintf(degradedTemplate, ingredients)
}
