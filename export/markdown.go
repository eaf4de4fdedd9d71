package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pevans/newsscraper/articles"
)

// WriteMarkdown writes items as a Markdown report: a heading per article,
// its metadata as a list, then the summary and a link.
func WriteMarkdown(w io.Writer, items []articles.Article, generatedAt time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", reportTitle)
	fmt.Fprintf(bw, "Generated: %s\n\n", generatedAt.Format(timestampLayout))
	fmt.Fprintf(bw, "Total Articles: %d\n", len(items))

	for i := range items {
		a := &items[i]
		fmt.Fprintf(bw, "\n## %d. %s\n\n", i+1, escapeMarkdown(a.Title))

		meta := metadata(a)
		if a.Author != "" {
			meta = append(meta, "Author: "+a.Author)
		}
		for _, m := range meta {
			key, value, _ := strings.Cut(m, ": ")
			fmt.Fprintf(bw, "- **%s:** %s\n", key, value)
		}
		if len(meta) > 0 {
			bw.WriteString("\n")
		}

		if a.Summary != "" {
			fmt.Fprintf(bw, "%s\n\n", a.Summary)
		}
		fmt.Fprintf(bw, "[Read more](%s)\n", a.URL)
	}

	return bw.Flush()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
