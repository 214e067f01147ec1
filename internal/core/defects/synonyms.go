package defects

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Synonym maps a phrasing onto its canonical defect phrase.
type Synonym struct {
	Phrase    string `yaml:"phrase" json:"phrase"`
	Canonical string `yaml:"canonical" json:"canonical"`
}

// DefaultSynonyms is applied top to bottom, once. Longer phrases precede the
// shorter phrases they contain.
var DefaultSynonyms = []Synonym{
	{Phrase: "scuff marks", Canonical: "scuff"},
	{Phrase: "scuff mark", Canonical: "scuff"},
	{Phrase: "scuffing", Canonical: "scuff"},
	{Phrase: "scuffed", Canonical: "scuff"},
	{Phrase: "scuffs", Canonical: "scuff"},
	{Phrase: "glue marks", Canonical: "adhesive residue"},
	{Phrase: "glue mark", Canonical: "adhesive residue"},
	{Phrase: "glue stains", Canonical: "adhesive residue"},
	{Phrase: "glue stain", Canonical: "adhesive residue"},
	{Phrase: "glue residue", Canonical: "adhesive residue"},
	{Phrase: "excess glue", Canonical: "adhesive residue"},
	{Phrase: "visible glue", Canonical: "adhesive residue"},
	{Phrase: "excess adhesive", Canonical: "adhesive residue"},
	{Phrase: "uneven stitches", Canonical: "uneven stitching"},
	{Phrase: "uneven stitch", Canonical: "uneven stitching"},
	{Phrase: "irregular stitching", Canonical: "uneven stitching"},
	{Phrase: "crooked stitching", Canonical: "uneven stitching"},
	{Phrase: "skipped stitches", Canonical: "skipped stitch"},
	{Phrase: "loose threads", Canonical: "loose thread"},
	{Phrase: "untrimmed threads", Canonical: "loose thread"},
	{Phrase: "untrimmed thread", Canonical: "loose thread"},
	{Phrase: "thread ends", Canonical: "loose thread"},
	{Phrase: "scratches", Canonical: "scratch"},
	{Phrase: "scratched", Canonical: "scratch"},
	{Phrase: "creases", Canonical: "crease"},
	{Phrase: "creasing", Canonical: "crease"},
	{Phrase: "wrinkles", Canonical: "wrinkle"},
	{Phrase: "colour variation", Canonical: "discoloration"},
	{Phrase: "color variation", Canonical: "discoloration"},
	{Phrase: "discolouration", Canonical: "discoloration"},
	{Phrase: "dirt marks", Canonical: "stain"},
	{Phrase: "stains", Canonical: "stain"},
	{Phrase: "sole separation", Canonical: "sole detachment"},
	{Phrase: "sole peeling", Canonical: "sole detachment"},
	{Phrase: "sole gap", Canonical: "sole detachment"},
	{Phrase: "bond gap", Canonical: "sole detachment"},
	{Phrase: "asymmetric", Canonical: "asymmetry"},
	{Phrase: "misaligned", Canonical: "misalignment"},
}

type synonymRule struct {
	pattern   *regexp.Regexp
	canonical string
}

// Folder lower-cases text and folds synonyms onto canonical phrases.
type Folder struct {
	rules []synonymRule
}

func NewFolder(table []Synonym) *Folder {
	rules := make([]synonymRule, 0, len(table))
	for _, syn := range table {
		phrase := lower(syn.Phrase)
		if phrase == "" {
			continue
		}
		rules = append(rules, synonymRule{
			pattern:   regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
			canonical: lower(syn.Canonical),
		})
	}
	return &Folder{rules: rules}
}

// Fold applies every rule exactly once, in table order. Phrases match on word
// boundaries only.
func (f *Folder) Fold(text string) string {
	out := lower(text)
	for _, rule := range f.rules {
		out = rule.pattern.ReplaceAllLiteralString(out, rule.canonical)
	}
	return out
}

var defaultFolder = NewFolder(DefaultSynonyms)

// FoldSynonyms folds text with DefaultSynonyms.
func FoldSynonyms(text string) string {
	return defaultFolder.Fold(text)
}

// cases.Caser is stateful, so each call gets its own.
func lower(text string) string {
	return cases.Lower(language.Und).String(text)
}
