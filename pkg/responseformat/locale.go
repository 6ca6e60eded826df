package responseformat

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer renders numbers as strings for one locale
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer parses a BCP 47 tag such as "pt-BR"
func NewLocalizer(locale string) (*Localizer, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Tag returns the parsed locale
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Number formats v with two decimals and the locale's separators. Values
// that cannot be represented render as an empty string.
func (l *Localizer) Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return l.printer.Sprintf("%.2f", v)
}
