package agents

import (
	"context"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// webscraperTruncateLimit matches §4.6: input HTML is truncated at 50k
// chars before being handed to the adapter.
const webscraperTruncateLimit = 50_000

var excessiveBlankLines = regexp.MustCompile(`\n{4,}`)

// WebScraperOutput is what the WebScraper adapter returns.
type WebScraperOutput struct {
	Text       string   `json:"text"`
	Title      string   `json:"title,omitempty"`
	KeyPoints  []string `json:"key_points"`
	IsRelevant bool     `json:"is_relevant"`
}

// WebScraper wraps the WebScraper adapter (§4.6). It first reduces the
// HTML to clean markdown locally (main-content extraction +
// html-to-markdown) before asking the LLM to extract key points and judge
// relevance — this keeps token usage bounded regardless of page size.
type WebScraper struct {
	registry *Registry
}

// NewWebScraper builds a WebScraper adapter.
func NewWebScraper(registry *Registry) *WebScraper {
	return &WebScraper{registry: registry}
}

// Run extracts structured content from a raw HTML page relative to topic
// (the question or objective driving the scrape).
func (w *WebScraper) Run(ctx context.Context, rawHTML, sourceURL, topic string) (WebScraperOutput, error) {
	if len(rawHTML) > webscraperTruncateLimit {
		rawHTML = rawHTML[:webscraperTruncateLimit]
	}

	title, markdown := toMarkdown(rawHTML)

	userPrompt := "Topic: " + topic + "\nSource: " + sourceURL + "\nTitle: " + title +
		"\n\nPage content (markdown):\n" + markdown +
		"\n\nRespond with a JSON object: {text, title, key_points: [...], is_relevant: bool}."

	var out WebScraperOutput
	if err := w.registry.callStructured(ctx, "webscraper", "webscraper", userPrompt, &out); err != nil {
		return WebScraperOutput{}, err
	}
	if out.Title == "" {
		out.Title = title
	}
	return out, nil
}

func toMarkdown(rawHTML string) (title, markdown string) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", rawHTML
	}
	title = extractTitle(doc)

	content := extractMainContent(doc)
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converted, err := converter.ConvertString(content)
	if err != nil {
		return title, rawHTML
	}
	return title, cleanMarkdown(converted)
}

func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

var droppedTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true, "iframe": true,
	"form": true, "button": true,
}

func extractMainContent(doc *html.Node) string {
	for _, tag := range []string{"main", "article"} {
		if n := findElement(doc, tag); n != nil {
			return renderNode(n)
		}
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && droppedTags[n.Data] {
			toRemove = append(toRemove, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)
	for _, n := range toRemove {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}
	return renderNode(doc)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func cleanMarkdown(content string) string {
	content = excessiveBlankLines.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
