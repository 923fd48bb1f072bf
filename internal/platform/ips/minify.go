package ips

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// Markup minification runs through tdewolff/minify with one of two fixed
// profiles. The standard profile preserves document structure (closing tags,
// attribute quotes); the aggressive profile lets the minifier strip optional
// syntax and additionally minifies inline scripts. Minification is always
// best-effort: callers fall back to the unminified markup on error.

var (
	standardMinifier   = newMinifier(false)
	aggressiveMinifier = newMinifier(true)
)

func newMinifier(aggressive bool) *minify.M {
	m := minify.New()
	if aggressive {
		m.Add("text/html", &html.Minifier{})
		m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	} else {
		m.Add("text/html", &html.Minifier{
			KeepEndTags:         true,
			KeepDocumentTags:    true,
			KeepQuotes:          true,
			KeepDefaultAttrVals: true,
		})
	}
	m.AddFunc("text/css", css.Minify)
	return m
}

// MinifyMarkup minifies HTML markup with the selected profile. On error the
// input is returned unchanged alongside the error so callers can degrade
// gracefully.
func MinifyMarkup(markup string, aggressive bool) (string, error) {
	if markup == "" {
		return markup, nil
	}
	m := standardMinifier
	if aggressive {
		m = aggressiveMinifier
	}
	out, err := m.String("text/html", markup)
	if err != nil {
		return markup, err
	}
	return out, nil
}
