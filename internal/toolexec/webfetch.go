package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/agentcore-run/agentcore/pkg/core"
)

// WebFetch constants, grounded in the teacher's internal/tool/webfetch.go.
const (
	webfetchMaxResponseSize = 5 * 1024 * 1024
	webfetchDefaultTimeout  = 30 * time.Second
	webfetchMaxTimeout      = 120 * time.Second
)

// WebFetchTool fetches a URL and renders it as text, markdown or raw HTML.
type WebFetchTool struct {
	Client *http.Client
}

// NewWebFetchTool constructs a WebFetchTool with the teacher's default
// client timeout.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{Client: &http.Client{Timeout: webfetchDefaultTimeout}}
}

func (t *WebFetchTool) Name() string  { return "webfetch" }
func (t *WebFetchTool) Label() string { return "Fetching URL" }
func (t *WebFetchTool) Schema() json.RawMessage {
	return GenerateSchema[webfetchArgs]()
}

type webfetchArgs struct {
	URL     string `json:"url" jsonschema:"required,description=The URL to fetch content from"`
	Format  string `json:"format" jsonschema:"required,description=The format to return the content in,enum=text|markdown|html"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Optional timeout in seconds (max 120)"`
}

func (t *WebFetchTool) Execute(ctx context.Context, callID string, raw json.RawMessage, onUpdate func(core.ToolUpdate)) (core.ToolExecResult, error) {
	var args webfetchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return errResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
		return errResult("url must start with http:// or https://"), nil
	}
	switch args.Format {
	case "text", "markdown", "html":
	default:
		return errResult("format must be 'text', 'markdown', or 'html'"), nil
	}

	timeout := webfetchDefaultTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Second
		if timeout > webfetchMaxTimeout {
			timeout = webfetchMaxTimeout
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, args.URL, nil)
	if err != nil {
		return errResult(fmt.Sprintf("failed to create request: %v", err)), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agentcore-webfetch/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	switch args.Format {
	case "markdown":
		req.Header.Set("Accept", "text/markdown;q=1.0, text/x-markdown;q=0.9, text/plain;q=0.8, text/html;q=0.7, */*;q=0.1")
	case "text":
		req.Header.Set("Accept", "text/plain;q=1.0, text/markdown;q=0.9, text/html;q=0.8, */*;q=0.1")
	case "html":
		req.Header.Set("Accept", "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, text/markdown;q=0.7, */*;q=0.1")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errResult(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errResult(fmt.Sprintf("request failed with status code: %d", resp.StatusCode)), nil
	}
	if resp.ContentLength > webfetchMaxResponseSize {
		return errResult("response too large (exceeds 5MB limit)"), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, webfetchMaxResponseSize+1))
	if err != nil {
		return errResult(fmt.Sprintf("failed to read response: %v", err)), nil
	}
	if len(body) > webfetchMaxResponseSize {
		return errResult("response too large (exceeds 5MB limit)"), nil
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")

	var output string
	switch args.Format {
	case "markdown":
		if strings.Contains(contentType, "text/html") {
			output, err = convertHTMLToMarkdown(content)
		} else {
			output = content
		}
	case "text":
		if strings.Contains(contentType, "text/html") {
			output, err = extractTextFromHTML(content)
		} else {
			output = content
		}
	default: // html
		output = content
	}
	if err != nil {
		return errResult(fmt.Sprintf("failed to render %s: %v", args.Format, err)), nil
	}

	return core.ToolExecResult{
		Content: []core.ToolResultContent{{Type: core.ToolResultText, Text: output}},
		Details: map[string]any{"url": args.URL, "contentType": contentType},
	}, nil
}

func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}
