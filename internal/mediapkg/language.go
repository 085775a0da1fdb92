package mediapkg

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage reduces a declared language tag to its primary subtag
// ("en-US" becomes "en"). When an allow-list is given, tags outside it fall
// back to the default language. Unparseable tags also fall back.
func NormalizeLanguage(raw string, allowed []string, fallback string) string {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return fallback
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return fallback
	}
	code := strings.ToLower(base.String())
	if len(allowed) == 0 {
		return code
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), code) {
			return code
		}
	}
	return fallback
}
