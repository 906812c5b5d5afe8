// Package topic holds the prediction-topic records that flow between the
// collection, staging and materialization stages.
package topic

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FranksOps/dogbook/internal/region"
)

// Status is the lifecycle state of a published topic.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// DateLayout is the day precision format used for publishedAt and staging file names.
const DateLayout = "2006-01-02"

// LocaleContent is the text of a topic in one display language.
type LocaleContent struct {
	Title       string `json:"title"`
	Question    string `json:"question"`
	Description string `json:"description"`
}

// Options holds the yes and no labels of a binary question.
type Options [2]string

// UnmarshalJSON rejects any array that does not hold exactly two labels.
func (o *Options) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	if len(labels) != 2 {
		return fmt.Errorf("options must have exactly 2 entries, got %d", len(labels))
	}
	o[0], o[1] = labels[0], labels[1]
	return nil
}

// GeneratedTopic is a single-language topic as returned by the LLM.
type GeneratedTopic struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Question       string   `json:"question"`
	Description    string   `json:"description"`
	Options        Options  `json:"options"`
	Keywords       []string `json:"keywords"`
	ExpirationDate string   `json:"expirationDate"`
	Category       string   `json:"category"`
}

// Locale projects the display text out of a generated topic.
func (g GeneratedTopic) Locale() LocaleContent {
	return LocaleContent{Title: g.Title, Question: g.Question, Description: g.Description}
}

// LatamPair is a Portuguese and Spanish rendition sharing one slug.
type LatamPair struct {
	PT GeneratedTopic
	ES GeneratedTopic
}

// CollectedTopic is a normalized topic ready for staging.
type CollectedTopic struct {
	Slug           string                   `json:"slug"`
	Region         region.Region            `json:"region"`
	Category       region.Category          `json:"category"`
	Locale         map[string]LocaleContent `json:"locale"`
	Options        Options                  `json:"options"`
	Keywords       []string                 `json:"keywords"`
	ExpirationDate string                   `json:"expirationDate"`
	Source         string                   `json:"source"`
}

// TopicData is the durable content file consumed by the site build.
type TopicData struct {
	Slug           string                   `json:"slug"`
	Region         region.Region            `json:"region"`
	Category       region.Category          `json:"category"`
	Locale         map[string]LocaleContent `json:"locale"`
	Options        Options                  `json:"options"`
	Keywords       []string                 `json:"keywords"`
	Status         Status                   `json:"status"`
	PublishedAt    string                   `json:"publishedAt"`
	ExpirationDate string                   `json:"expirationDate"`
	Source         string                   `json:"source"`
	Image          string                   `json:"image,omitempty"`
}

// Publish stamps a collected topic as an active content record.
func Publish(c CollectedTopic, now time.Time) TopicData {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return TopicData{
		Slug:           c.Slug,
		Region:         c.Region,
		Category:       c.Category,
		Locale:         c.Locale,
		Options:        c.Options,
		Keywords:       keywords,
		Status:         StatusActive,
		PublishedAt:    now.UTC().Format(DateLayout),
		ExpirationDate: c.ExpirationDate,
		Source:         c.Source,
	}
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidSlug reports whether s is a lowercase hyphenated URL-safe token.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// NormalizeSlug lowercases s and collapses every run of other characters
// into a single hyphen. It returns "" when nothing usable remains.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseDate accepts the ISO 8601 shapes the LLM and the content files use.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
