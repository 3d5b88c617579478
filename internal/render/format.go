package render

import (
	"regexp"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// bodyPolicy is the last line of defence on formatted message bodies: only
// the markup FormatMessage itself produces may pass.
var bodyPolicy = newBodyPolicy()

func newBodyPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowElements("br")
	return p
}

// Escape converts text into markup that displays it verbatim.
func Escape(text string) string {
	return templ.EscapeString(text)
}

// FormatMessage turns untrusted message text into safe markup. Escaping always
// happens first so that the anchors and line breaks added afterwards are the
// only markup in the result.
func FormatMessage(text string) string {
	s := Escape(text)
	s = urlPattern.ReplaceAllString(s, `<a href="$0" target="_blank">$0</a>`)
	s = strings.ReplaceAll(s, "\n", "<br>")
	return bodyPolicy.Sanitize(s)
}

// FormatTime renders t as HH:MM in loc. The zero time renders as "".
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}
