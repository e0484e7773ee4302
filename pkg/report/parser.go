// Package report extracts typed fields from Lambda REPORT log lines and
// turns matching log events into normalized records.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/younsl/lamstat/internal/models"
)

// Marker opens every Lambda REPORT line
const Marker = "REPORT"

// Strategy selects how labeled fields are located in a line
type Strategy int

const (
	// StrategySegments splits the line on tabs into "Label: value" segments
	StrategySegments Strategy = iota
	// StrategyPatterns matches each label directly against the whole line
	StrategyPatterns
)

func (s Strategy) String() string {
	switch s {
	case StrategySegments:
		return "segments"
	case StrategyPatterns:
		return "patterns"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

type field struct {
	name    string   // metric key, e.g. "billedDuration"
	label   string   // label as printed, e.g. "Billed Duration"
	shadows []string // words that turn a match into a different label
	pattern *regexp.Regexp
}

var fields = []*field{
	{name: models.MetricDuration, label: "Duration", shadows: []string{"Billed", "Init"}},
	{name: models.MetricBilledDuration, label: "Billed Duration"},
	{name: models.MetricMemorySize, label: "Memory Size"},
	{name: models.MetricMaxMemoryUsed, label: "Max Memory Used"},
	{name: models.MetricInitDuration, label: "Init Duration"},
}

var fieldsByLabel = make(map[string]*field, len(fields))

// leading numeric token, decimal point allowed
var numberPattern = regexp.MustCompile(`^(?:[0-9]+(?:\.[0-9]+)?|\.[0-9]+)`)

// the identifier must sit in the same tab-separated field as its label
var requestIDPattern = regexp.MustCompile(`RequestId:[ ]*([^\s]+)`)

func init() {
	for _, f := range fields {
		words := strings.Fields(f.label)
		for i := range words {
			words[i] = regexp.QuoteMeta(words[i])
		}
		f.pattern = regexp.MustCompile(`(?:^|\s)` + strings.Join(words, ` +`) + `:[ ]*([^\s]*)`)
		fieldsByLabel[f.label] = f
	}
}

// Result holds the fields extracted from one line
type Result struct {
	Values   map[string]float64
	Failures []*models.ParseFailure

	seen map[string]bool
}

func newResult() Result {
	return Result{Values: make(map[string]float64), seen: make(map[string]bool)}
}

// set parses raw into f. Only the first occurrence of a label counts.
func (r *Result) set(f *field, raw string) {
	if r.seen[f.name] {
		return
	}
	r.seen[f.name] = true
	token := numberPattern.FindString(strings.TrimSpace(raw))
	if token == "" {
		r.Failures = append(r.Failures, &models.ParseFailure{Label: f.label, Value: raw})
		return
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		r.Failures = append(r.Failures, &models.ParseFailure{Label: f.label, Value: raw})
		return
	}
	r.Values[f.name] = v
}

// Parser extracts the recognized REPORT fields from a line
type Parser struct {
	strategy Strategy
}

// NewParser creates a Parser using the given strategy
func NewParser(strategy Strategy) *Parser {
	return &Parser{strategy: strategy}
}

// Parse extracts fields from line. The boolean is false when the line is
// not a REPORT line; such lines are ignored, not errors.
func (p *Parser) Parse(line string) (Result, bool) {
	if !IsReportLine(line) {
		return Result{}, false
	}
	if p.strategy == StrategyPatterns {
		return parsePatterns(line), true
	}
	return parseSegments(line), true
}

// IsReportLine reports whether line starts with the REPORT marker
func IsReportLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, Marker) {
		return false
	}
	rest := trimmed[len(Marker):]
	return rest == "" || unicode.IsSpace(rune(rest[0]))
}

// RequestID returns the token following "RequestId:", if any
func RequestID(line string) (string, bool) {
	m := requestIDPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func parseSegments(line string) Result {
	res := newResult()
	body := strings.TrimPrefix(strings.TrimSpace(line), Marker)
	for _, segment := range strings.Split(body, "\t") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		f, known := fieldsByLabel[strings.Join(strings.Fields(key), " ")]
		if !known {
			continue
		}
		res.set(f, value)
	}
	return res
}

func parsePatterns(line string) Result {
	res := newResult()
	for _, f := range fields {
		for _, loc := range f.pattern.FindAllStringSubmatchIndex(line, -1) {
			if f.shadowedAt(line, loc[0]) {
				continue
			}
			res.set(f, line[loc[2]:loc[3]])
			break
		}
	}
	return res
}

// shadowedAt reports whether the match starting at start belongs to a
// longer label, e.g. "Duration" inside "Billed Duration"
func (f *field) shadowedAt(line string, start int) bool {
	if start < len(line) && unicode.IsSpace(rune(line[start])) {
		start++
	}
	before := strings.TrimRight(line[:start], " ")
	if len(before) == start {
		return false
	}
	for _, word := range f.shadows {
		if !strings.HasSuffix(before, word) {
			continue
		}
		rest := before[:len(before)-len(word)]
		if rest == "" || unicode.IsSpace(rune(rest[len(rest)-1])) {
			return true
		}
	}
	return false
}
