package dashboard

import (
	_ "embed"
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed web/index.html
var indexHTML []byte

// RenderPage returns the minified dashboard page.
func RenderPage() ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)

	page, err := m.Bytes("text/html", indexHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to minify dashboard page: %w", err)
	}

	return page, nil
}
