package tui

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var tagRe = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)

// Sanitize removes residual HTML from a generated answer. Markup is converted
// to markdown; if conversion fails the tags are stripped.
func Sanitize(answer string) string {
	answer = strings.TrimSpace(answer)
	if !tagRe.MatchString(answer) {
		return answer
	}
	md, err := htmltomarkdown.ConvertString(answer)
	if err != nil {
		return strings.TrimSpace(tagRe.ReplaceAllString(answer, ""))
	}
	return strings.TrimSpace(md)
}
