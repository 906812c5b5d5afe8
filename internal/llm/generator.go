package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/internal/metrics"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
)

// Outcome is the result of one generation. When OK is false Value is the
// zero value and Reason says why the model output was unusable.
type Outcome[T any] struct {
	Value  T
	OK     bool
	Reason string
}

func accepted[T any](v T) Outcome[T] { return Outcome[T]{Value: v, OK: true} }

func failure[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Reason: fmt.Sprintf(format, args...)}
}

// Generator builds prediction topics from news with a Completer.
type Generator struct {
	llm    Completer
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(c Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: c, logger: logger}
}

type rawLocale struct {
	Title       string   `json:"title"`
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

type rawTopic struct {
	Slug string `json:"slug"`
	rawLocale
	Keywords       []string `json:"keywords"`
	ExpirationDate string   `json:"expirationDate"`
	Category       string   `json:"category"`
}

type rawLatam struct {
	Slug           string     `json:"slug"`
	PT             *rawLocale `json:"pt"`
	ES             *rawLocale `json:"es"`
	Keywords       []string   `json:"keywords"`
	ExpirationDate string     `json:"expirationDate"`
	Category       string     `json:"category"`
}

// TopicFromNews generates a single-language topic. The error is non-nil only
// for configuration failures and cancellation; everything else is a rejected
// Outcome.
func (g *Generator) TopicFromNews(ctx context.Context, news News, category region.Category, language string) (Outcome[topic.GeneratedTopic], error) {
	text, err := g.complete(ctx, singlePrompt(news, category, language))
	if err != nil {
		if fatal(ctx, err) {
			return Outcome[topic.GeneratedTopic]{}, err
		}
		return reject(g, failure[topic.GeneratedTopic]("request failed: %v", err), "single")
	}

	var raw rawTopic
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return reject(g, failure[topic.GeneratedTopic]("invalid JSON: %v", err), "single")
	}
	if raw.Slug == "" || raw.Title == "" || raw.Question == "" {
		return reject(g, failure[topic.GeneratedTopic]("invalid topic structure: slug, title and question are required"), "single")
	}
	if len(raw.Options) != 2 {
		return reject(g, failure[topic.GeneratedTopic]("options must have exactly 2 entries, got %d", len(raw.Options)), "single")
	}
	slug := topic.NormalizeSlug(raw.Slug)
	if slug == "" {
		return reject(g, failure[topic.GeneratedTopic]("slug %q has no usable characters", raw.Slug), "single")
	}
	if _, err := topic.ParseDate(raw.ExpirationDate); err != nil {
		return reject(g, failure[topic.GeneratedTopic]("invalid expirationDate %q", raw.ExpirationDate), "single")
	}

	metrics.RecordGeneration("single", true)
	return accepted(topic.GeneratedTopic{
		Slug:           slug,
		Title:          raw.Title,
		Question:       raw.Question,
		Description:    raw.Description,
		Options:        topic.Options{raw.Options[0], raw.Options[1]},
		Keywords:       keywords(raw.Keywords),
		ExpirationDate: raw.ExpirationDate,
		Category:       raw.Category,
	}), nil
}

// LatamTopics generates Portuguese and Spanish topics that share a slug,
// keywords and expiration date.
func (g *Generator) LatamTopics(ctx context.Context, news News, category region.Category) (Outcome[topic.LatamPair], error) {
	text, err := g.complete(ctx, latamPrompt(news, category))
	if err != nil {
		if fatal(ctx, err) {
			return Outcome[topic.LatamPair]{}, err
		}
		return reject(g, failure[topic.LatamPair]("request failed: %v", err), "latam")
	}

	var raw rawLatam
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return reject(g, failure[topic.LatamPair]("invalid JSON: %v", err), "latam")
	}
	if raw.Slug == "" || raw.PT == nil || raw.ES == nil {
		return reject(g, failure[topic.LatamPair]("invalid topic structure: slug, pt and es are required"), "latam")
	}
	for _, lang := range []string{"pt", "es"} {
		l := raw.PT
		if lang == "es" {
			l = raw.ES
		}
		if l.Title == "" || l.Question == "" {
			return reject(g, failure[topic.LatamPair]("invalid topic structure: %s title and question are required", lang), "latam")
		}
		if len(l.Options) != 2 {
			return reject(g, failure[topic.LatamPair]("%s options must have exactly 2 entries, got %d", lang, len(l.Options)), "latam")
		}
	}
	slug := topic.NormalizeSlug(raw.Slug)
	if slug == "" {
		return reject(g, failure[topic.LatamPair]("slug %q has no usable characters", raw.Slug), "latam")
	}
	if _, err := topic.ParseDate(raw.ExpirationDate); err != nil {
		return reject(g, failure[topic.LatamPair]("invalid expirationDate %q", raw.ExpirationDate), "latam")
	}

	kw := keywords(raw.Keywords)
	build := func(l *rawLocale) topic.GeneratedTopic {
		return topic.GeneratedTopic{
			Slug:           slug,
			Title:          l.Title,
			Question:       l.Question,
			Description:    l.Description,
			Options:        topic.Options{l.Options[0], l.Options[1]},
			Keywords:       kw,
			ExpirationDate: raw.ExpirationDate,
			Category:       raw.Category,
		}
	}

	metrics.RecordGeneration("latam", true)
	return accepted(topic.LatamPair{PT: build(raw.PT), ES: build(raw.ES)}), nil
}

func (g *Generator) complete(ctx context.Context, msgs []Message) (string, error) {
	return g.llm.ChatCompletion(ctx, msgs)
}

func reject[T any](g *Generator, o Outcome[T], kind string) (Outcome[T], error) {
	metrics.RecordGeneration(kind, false)
	g.logger.Warn("Failed to generate topic", "kind", kind, "reason", o.Reason)
	return o, nil
}

// fatal reports whether err must stop the caller instead of skipping one news item.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, apperr.ErrConfig) || ctx.Err() != nil
}

func keywords(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
