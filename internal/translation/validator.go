package translation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"dubline/internal/language"
)

// Judge decides whether a candidate is an acceptable translation of source.
// On acceptance the second value is the cleaned translation; on rejection it
// is a corrective instruction for the next prompt.
type Judge interface {
	Validate(source, candidate string) (bool, string)
}

const (
	correctiveOnly     = "Only translate the following sentence and give me the result."
	correctiveTooLong  = "The translation is too long. " + correctiveOnly
	correctiveEmpty    = "The translation is empty. " + correctiveOnly
	correctiveFmtToken = "Don't include `%s` in the translation. " + correctiveOnly

	shortSourceRunes  = 10
	shortCandidateMax = 15
	maxLengthRatio    = 0.75
)

var baseForbidden = []string{
	"翻译", "译文", "这句", "\n", "简体中文", "中文",
	"translate", "Translate", "translation", "Translation",
}

var labelWords = []string{"翻译", "译文", "Translation"}

// labelQuotes pairs an opening separator with its closing quote, in match order.
var labelQuotes = [][2]string{
	{"：“", "”"},
	{"：\"", "\""},
	{":\"", "\""},
	{": \"", "\""},
}

// Validator implements the translation acceptance rules for one target language.
type Validator struct {
	forbidden []string
}

// NewValidator builds a validator whose forbidden tokens include the target
// language's names.
func NewValidator(targetLanguage string) *Validator {
	forbidden := append([]string(nil), baseForbidden...)
	seen := make(map[string]bool, len(forbidden))
	for _, word := range forbidden {
		seen[word] = true
	}
	add := func(word string) {
		word = strings.TrimSpace(word)
		if word == "" || seen[word] {
			return
		}
		seen[word] = true
		forbidden = append(forbidden, word)
	}
	if strings.TrimSpace(targetLanguage) != "" {
		add(targetLanguage)
		add(language.DisplayName(targetLanguage))
		for _, name := range language.NativeNames(targetLanguage) {
			add(name)
		}
	}
	return &Validator{forbidden: forbidden}
}

// Forbidden returns the tokens that cause rejection.
func (v *Validator) Forbidden() []string {
	return append([]string(nil), v.forbidden...)
}

// Validate applies the rules in order; the first match wins.
func (v *Validator) Validate(source, candidate string) (bool, string) {
	trimmed := strings.TrimSpace(candidate)

	if inner, ok := unwrap(trimmed); ok {
		return accept(inner)
	}
	if inner, ok := extractLabeled(trimmed); ok {
		return accept(inner)
	}

	sourceLen := utf8.RuneCountInString(source)
	candidateLen := utf8.RuneCountInString(trimmed)
	if sourceLen <= shortSourceRunes {
		if candidateLen > shortCandidateMax {
			return false, correctiveOnly
		}
	} else if float64(candidateLen) > float64(sourceLen)*maxLengthRatio {
		return false, correctiveTooLong
	}

	for _, word := range v.forbidden {
		if strings.Contains(trimmed, word) {
			return false, fmt.Sprintf(correctiveFmtToken, word)
		}
	}
	return accept(trimmed)
}

func accept(text string) (bool, string) {
	cleaned := Postprocess(text)
	if cleaned == "" {
		return false, correctiveEmpty
	}
	return true, cleaned
}

// unwrap strips a triple-backtick block or a matching pair of quotes that
// encloses the whole reply.
func unwrap(s string) (string, bool) {
	if len(s) >= 6 && strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		return strings.TrimSpace(s[3 : len(s)-3]), true
	}
	for _, pair := range [][2]string{{"“", "”"}, {"\"", "\""}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return s[len(pair[0]) : len(s)-len(pair[1])], true
		}
	}
	return "", false
}

// extractLabeled handles replies such as `Translation: "..."` or `译文：“...”`.
func extractLabeled(s string) (string, bool) {
	labeled := false
	for _, word := range labelWords {
		if strings.Contains(s, word) {
			labeled = true
			break
		}
	}
	if !labeled {
		return "", false
	}
	for _, q := range labelQuotes {
		open, closing := q[0], q[1]
		if !strings.Contains(s, open) || !strings.Contains(s, closing) {
			continue
		}
		rest := s[strings.LastIndex(s, open)+len(open):]
		if idx := strings.Index(rest, closing); idx >= 0 {
			rest = rest[:idx]
		}
		return rest, true
	}
	return "", false
}

var (
	fullWidthAside = regexp.MustCompile(`（[^）]*）`)
	asciiAside     = regexp.MustCompile(`\([^)]*\)`)
	acronymAI      = regexp.MustCompile(`\bAI\b`)

	symbolReplacer = strings.NewReplacer(
		"...", "，",
		"²", "squared",
		"————", ":",
		"——", ":",
		"°", "degrees",
		"变压器", "Transformer",
	)
)

// Postprocess normalizes an accepted translation: parenthetical asides are
// dropped, a few symbols are spelled out and fixed domain terms substituted.
func Postprocess(text string) string {
	text = fullWidthAside.ReplaceAllString(text, "")
	text = asciiAside.ReplaceAllString(text, "")
	text = symbolReplacer.Replace(text)
	text = stripDigitGrouping(text)
	text = acronymAI.ReplaceAllString(text, "artificial intelligence")
	return strings.TrimSpace(text)
}

// stripDigitGrouping removes commas that sit between two digits (1,000 -> 1000).
func stripDigitGrouping(text string) string {
	if !strings.Contains(text, ",") {
		return text
	}
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		if r == ',' && i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
