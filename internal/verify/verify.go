// Package verify inspects the content tree and ledger after a pipeline run
// and reports whether the output is fit to publish.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/dogbook/internal/content"
	"github.com/FranksOps/dogbook/internal/region"
	"github.com/FranksOps/dogbook/internal/topic"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of a check or of the whole report.
type Status string

const (
	Pass Status = "pass"
	Warn Status = "warn"
	Fail Status = "fail"
)

// Check names.
const (
	CheckFilesExist     = "Topic files exist"
	CheckRegions        = "All regions have content"
	CheckRequiredFields = "All topics have required fields"
	CheckDuplicates     = "No duplicate slugs"
	CheckExpiration     = "All expiration dates valid"
	CheckLanguages      = "All languages present"
	CheckLedger         = "processed.json is valid"
	CheckPublished      = "Published dates are reasonable"
)

// ExpectedLanguages are the locales every healthy content tree covers.
var ExpectedLanguages = []string{"en", "hi", "zh-TW", "pt", "es"}

// Check is one verification result.
type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Summary counts the content tree.
type Summary struct {
	TotalTopics int            `json:"totalTopics"`
	ByRegion    map[string]int `json:"byRegion"`
	ByCategory  map[string]int `json:"byCategory"`
	ByLanguage  map[string]int `json:"byLanguage"`
}

// Report is the full verification result.
type Report struct {
	Status  Status  `json:"status"`
	Checks  []Check `json:"checks"`
	Summary Summary `json:"summary"`
}

// ExitCode is 1 when any check failed and 0 otherwise.
func (r Report) ExitCode() int {
	if r.Status == Fail {
		return 1
	}
	return 0
}

// Check returns the named check, if it ran.
func (r Report) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Verifier runs the checks.
type Verifier struct {
	tree       *content.Tree
	ledgerPath string
	logger     *slog.Logger
	workers    int
	now        func() time.Time
}

// New creates a Verifier for the content tree and ledger file.
func New(tree *content.Tree, ledgerPath string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{tree: tree, ledgerPath: ledgerPath, logger: logger, workers: 8, now: time.Now}
}

// topicFile is the subset of a content file the checks look at. Fields are
// loose so that a malformed value fails a check instead of the decode.
type topicFile struct {
	Slug           string                     `json:"slug"`
	Region         string                     `json:"region"`
	Category       string                     `json:"category"`
	Locale         map[string]json.RawMessage `json:"locale"`
	PublishedAt    string                     `json:"publishedAt"`
	ExpirationDate string                     `json:"expirationDate"`
}

type loaded struct {
	topic topicFile
	ok    bool
}

// Run loads every content file and evaluates the checks. Unreadable input
// shows up as failing or warning checks; the error is non-nil only when ctx
// is canceled before every file is loaded.
func (v *Verifier) Run(ctx context.Context) (Report, error) {
	files, err := v.tree.Files()
	if err != nil {
		v.logger.Error("Failed to list topic files", "root", v.tree.Root(), "err", err)
		files = nil
	}
	entries, err := v.load(ctx, files)
	if err != nil {
		return Report{}, fmt.Errorf("load topic files: %w", err)
	}

	report := Report{Summary: Summary{
		TotalTopics: len(entries),
		ByRegion:    map[string]int{},
		ByCategory:  map[string]int{},
		ByLanguage:  map[string]int{},
	}}

	report.add(CheckFilesExist, len(entries) > 0, Fail, fmt.Sprintf("Found %d topic files", len(entries)))
	if len(entries) == 0 {
		report.Status = Fail
		return report, nil
	}

	var topics []topicFile
	allParsed := true
	for _, e := range entries {
		if !e.ok {
			allParsed = false
			continue
		}
		topics = append(topics, e.topic)
	}

	// Check 2: region coverage. Message lists regions in first-seen order.
	var regionOrder []string
	for _, t := range topics {
		if _, seen := report.Summary.ByRegion[t.Region]; !seen {
			regionOrder = append(regionOrder, t.Region)
		}
		report.Summary.ByRegion[t.Region]++
	}
	allRegions := true
	for _, r := range region.All {
		if report.Summary.ByRegion[string(r)] == 0 {
			allRegions = false
		}
	}
	parts := make([]string, 0, len(regionOrder))
	for _, r := range regionOrder {
		parts = append(parts, fmt.Sprintf("%s(%d)", r, report.Summary.ByRegion[r]))
	}
	report.add(CheckRegions, allRegions, Warn, "Regions: "+strings.Join(parts, ", "))

	// Check 3: required fields.
	fieldsValid := allParsed
	for _, t := range topics {
		if t.Slug == "" || t.Region == "" || t.Category == "" || t.Locale == nil || t.ExpirationDate == "" {
			fieldsValid = false
			break
		}
	}
	report.add(CheckRequiredFields, fieldsValid, Fail, pick(fieldsValid, "All topics valid", "Some topics missing required fields"))

	// Check 4: duplicate slugs.
	unique := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		unique[t.Slug] = struct{}{}
	}
	dups := len(topics) - len(unique)
	report.add(CheckDuplicates, dups == 0, Warn, pick(dups == 0, "All slugs unique", fmt.Sprintf("%d duplicates found", dups)))

	// Check 5: expiration dates.
	datesValid := true
	for _, t := range topics {
		if _, err := topic.ParseDate(t.ExpirationDate); err != nil {
			datesValid = false
			break
		}
	}
	report.add(CheckExpiration, datesValid, Fail, pick(datesValid, "All dates parseable", "Invalid date format found"))

	// Check 6: language coverage, in first-seen order.
	var languages []string
	for _, t := range topics {
		for _, lang := range sortedKeys(t.Locale) {
			if !slices.Contains(languages, lang) {
				languages = append(languages, lang)
			}
			report.Summary.ByLanguage[lang]++
		}
	}
	allLanguages := true
	for _, lang := range ExpectedLanguages {
		if !slices.Contains(languages, lang) {
			allLanguages = false
		}
	}
	report.add(CheckLanguages, allLanguages, Warn, "Languages: "+strings.Join(languages, ", "))

	// Check 7: ledger shape.
	ledgerValid := v.ledgerValid()
	report.add(CheckLedger, ledgerValid, Warn, pick(ledgerValid, "Valid format", "Missing or invalid"))

	// Check 8: publishedAt within [-1, 30] days of now.
	now := v.now()
	recent := true
	for _, t := range topics {
		published, err := topic.ParseDate(t.PublishedAt)
		if err != nil {
			recent = false
			continue
		}
		days := now.Sub(published).Hours() / 24
		if days < -1 || days > 30 {
			recent = false
		}
	}
	report.add(CheckPublished, recent, Warn, pick(recent, "All dates recent", "Some dates are unusual"))

	for _, t := range topics {
		report.Summary.ByCategory[t.Category]++
	}

	report.Status = Pass
	for _, c := range report.Checks {
		if c.Status == Fail {
			report.Status = Fail
			break
		}
		if c.Status == Warn {
			report.Status = Warn
		}
	}
	return report, nil
}

func (r *Report) add(name string, passed bool, otherwise Status, message string) {
	status := Pass
	if !passed {
		status = otherwise
	}
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Message: message})
}

// load reads files concurrently, keeping their order.
func (v *Verifier) load(ctx context.Context, files []string) ([]loaded, error) {
	out := make([]loaded, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				v.logger.Warn("Failed to read topic file", "file", path, "err", err)
				return nil
			}
			var t topicFile
			if err := json.Unmarshal(data, &t); err != nil {
				v.logger.Warn("Failed to parse topic file", "file", path, "err", err)
				return nil
			}
			out[i] = loaded{topic: t, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *Verifier) ledgerValid() bool {
	data, err := os.ReadFile(v.ledgerPath)
	if err != nil {
		return false
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, slugsOK := raw["slugs"].([]any)
	_, updatedOK := raw["lastUpdated"].(string)
	return slugsOK && updatedOK
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
