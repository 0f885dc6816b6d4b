// ABOUTME: Converts chat element trees into HTML fragments for the browser
// ABOUTME: Bot text goes through goldmark; everything else is escaped text

package webui

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/wellness-client/internal/chat"
)

// node is the template-facing form of a chat.Element.
type node struct {
	Elem        string // html element name
	ID          string
	Class       string
	Click       bool
	Sender      string
	Agent       string
	Interactive string
	Src         string
	Alt         string
	Fallback    string
	Label       string
	Text        string
	HTML        template.HTML
	Children    []node
}

const fragmentTemplate = `
{{- define "attrs"}}{{if .ID}} id="el-{{.ID}}"{{end}}{{if .Class}} class="{{.Class}}"{{end}}
{{- if .Click}} data-click="{{.ID}}"{{end}}
{{- if .Sender}} data-sender="{{.Sender}}"{{end}}
{{- if .Agent}} data-agent="{{.Agent}}"{{end}}
{{- if .Interactive}} data-interactive="{{.Interactive}}"{{end}}{{end}}

{{- define "inner"}}{{if .Label}}<strong>{{.Label}}:</strong> {{end}}
{{- if .HTML}}{{.HTML}}{{else}}{{.Text}}{{end}}
{{- range .Children}}{{template "node" .}}{{end}}{{end}}

{{- define "node"}}
{{- if eq .Elem "img"}}<img{{template "attrs" .}} src="{{.Src}}" alt="{{.Alt}}" data-fallback="{{.Fallback}}">
{{- else if eq .Elem "button"}}<button type="button"{{template "attrs" .}}>{{.Text}}</button>
{{- else if eq .Elem "span"}}<span{{template "attrs" .}}>{{template "inner" .}}</span>
{{- else if eq .Elem "p"}}<p{{template "attrs" .}}>{{template "inner" .}}</p>
{{- else if eq .Elem "h4"}}<h4{{template "attrs" .}}>{{template "inner" .}}</h4>
{{- else if eq .Elem "h5"}}<h5{{template "attrs" .}}>{{template "inner" .}}</h5>
{{- else if eq .Elem "ol"}}<ol{{template "attrs" .}}>{{template "inner" .}}</ol>
{{- else if eq .Elem "ul"}}<ul{{template "attrs" .}}>{{template "inner" .}}</ul>
{{- else if eq .Elem "li"}}<li{{template "attrs" .}}>{{template "inner" .}}</li>
{{- else}}<div{{template "attrs" .}}>{{template "inner" .}}</div>
{{- end}}{{end}}

{{- define "fragment"}}{{template "node" .}}{{end}}`

var fragment = template.Must(template.New("webui").Parse(fragmentTemplate))

// elementNames maps chat tags to HTML elements; unlisted tags render as div.
var elementNames = map[chat.Tag]string{
	chat.TagBadge:       "span",
	chat.TagTime:        "span",
	chat.TagTitle:       "h4",
	chat.TagSubtitle:    "h5",
	chat.TagDescription: "p",
	chat.TagNote:        "p",
	chat.TagItem:        "li",
	chat.TagImage:       "img",
	chat.TagButton:      "button",
}

// Renderer turns elements into HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a Renderer. Raw HTML in bot text is escaped.
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New()}
}

// Render returns the HTML fragment for el.
func (r *Renderer) Render(el *chat.Element) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragment.ExecuteTemplate(&buf, "fragment", r.convert(el, false)); err != nil {
		return "", fmt.Errorf("rendering %s element: %w", el.Tag, err)
	}
	return template.HTML(buf.String()), nil
}

// convert builds the node tree. bot is true inside a bot bubble.
func (r *Renderer) convert(el *chat.Element, bot bool) node {
	n := node{
		Elem:  elementNames[el.Tag],
		ID:    el.ID,
		Class: strings.Join(el.Classes, " "),
		Click: el.Action != nil,
		Label: el.Label,
		Text:  el.Text,
	}
	if n.Elem == "" {
		n.Elem = "div"
	}

	switch el.Tag {
	case chat.TagBubble:
		n.Sender = el.Attr(chat.AttrSender)
		n.Agent = el.Attr(chat.AttrAgent)
		bot = n.Sender == string(chat.SenderBot)
	case chat.TagCard:
		n.Interactive = el.Attr(chat.AttrInteractive)
	case chat.TagList:
		// Lists of buttons (suggestion bars) stay divs.
		if len(el.Children) > 0 && el.Children[0].Tag == chat.TagItem {
			n.Elem = "ul"
			if el.Attr(chat.AttrOrdered) == "true" {
				n.Elem = "ol"
			}
		}
	case chat.TagImage:
		n.Src = el.Attr(chat.AttrSrc)
		n.Alt = el.Attr(chat.AttrAlt)
		n.Fallback = el.Attr(chat.AttrFallback)
	case chat.TagText:
		if bot {
			n.HTML = r.markdown(el.Text)
		}
	}

	for _, child := range el.Children {
		n.Children = append(n.Children, r.convert(child, bot))
	}
	return n
}

// markdown converts bot text. On failure the text is shown escaped.
func (r *Renderer) markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}
