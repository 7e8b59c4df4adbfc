package validation

import (
	"strings"
	"unicode"

	"github.com/socialchef/pantry/internal/errors"
)

// InvalidIngredientsMessage is the caller-facing message for a rejected payload.
const InvalidIngredientsMessage = "Please provide valid ingredients"

// IngredientsRequest is the request body of the recipe endpoint.
type IngredientsRequest struct {
	Ingredients string `json:"ingredients"`
}

// Ingredients extracts the ingredients field from a decoded JSON payload.
//
// The payload must be a JSON object whose "ingredients" member is a string
// that is not blank after trimming. The returned string is the raw value,
// untrimmed, because the fallback templates embed it as the caller sent it.
func Ingredients(payload any) (string, error) {
	var raw any
	switch p := payload.(type) {
	case map[string]any:
		raw = p["ingredients"]
	case IngredientsRequest:
		raw = p.Ingredients
	case *IngredientsRequest:
		if p != nil {
			raw = p.Ingredients
		}
	}

	s, ok := raw.(string)
	if !ok || Trim(s) == "" {
		return "", invalid()
	}
	return s, nil
}

// Trim removes leading and trailing whitespace as browsers do for form input:
// Unicode space separators, tab, vertical tab, form feed, line terminators and
// the byte order mark. U+0085 is not whitespace here.
func Trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func invalid() *errors.AppError {
	return errors.NewValidationError(
		InvalidIngredientsMessage,
		"INVALID_INGREDIENTS",
		"Send a JSON object with a non-empty \"ingredients\" string.",
	)
}
