package llm

import (
	"fmt"

	"github.com/FranksOps/dogbook/internal/region"
)

// News is the search hit a topic is generated from.
type News struct {
	Title       string
	Description string
}

var languageNames = map[string]string{
	"en":    "English",
	"hi":    "Hindi",
	"zh-TW": "Traditional Chinese",
	"pt":    "Portuguese",
	"es":    "Spanish",
}

// LanguageName is the English display name of a locale code. Unknown codes
// fall back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

func singlePrompt(news News, category region.Category, language string) []Message {
	lang := LanguageName(language)

	system := fmt.Sprintf(`You are a prediction market topic generator. Given a news headline, create a compelling binary prediction question that can be answered with Yes/No.

Output JSON format:
{
  "slug": "url-safe-slug-in-english",
  "title": "Topic title in %[1]s",
  "question": "Binary prediction question in %[1]s that can be answered Yes/No",
  "description": "SEO description in %[1]s (max 160 chars)",
  "options": ["Yes option in %[1]s", "No option in %[1]s"],
  "keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"],
  "expirationDate": "ISO 8601 date when this prediction will be resolved",
  "category": "%[2]s"
}

Rules:
1. The question MUST be binary (Yes/No answer)
2. Set a realistic expiration date based on the event
3. Keywords should be relevant for SEO
4. Slug must be lowercase, use hyphens, no special characters
5. All text content must be in %[1]s except slug and keywords`, lang, category)

	user := fmt.Sprintf("News Title: %s\nNews Description: %s\nCategory: %s\n\nGenerate a prediction topic based on this news.",
		news.Title, news.Description, category)

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

func latamPrompt(news News, category region.Category) []Message {
	system := fmt.Sprintf(`You are a prediction market topic generator for Latin America. Given a news headline, create a compelling binary prediction question with translations in both Portuguese and Spanish.

Output JSON format:
{
  "slug": "url-safe-slug-in-english",
  "pt": {
    "title": "Topic title in Portuguese",
    "question": "Binary prediction question in Portuguese",
    "description": "SEO description in Portuguese (max 160 chars)",
    "options": ["Sim", "Não"]
  },
  "es": {
    "title": "Topic title in Spanish",
    "question": "Binary prediction question in Spanish",
    "description": "SEO description in Spanish (max 160 chars)",
    "options": ["Sí", "No"]
  },
  "keywords": ["keyword1", "keyword2", "keyword3"],
  "expirationDate": "ISO 8601 date",
  "category": "%s"
}`, category)

	user := fmt.Sprintf("News Title: %s\nNews Description: %s\nCategory: %s\n\nGenerate a prediction topic with Portuguese and Spanish translations.",
		news.Title, news.Description, category)

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
