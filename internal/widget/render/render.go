// Package render defines the templating collaborator boundary. Markup is
// opaque to the widget; templates turn message data into strings the host
// surface displays.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"chat-widget/internal/models"
)

// Template names every renderer must support.
const (
	TemplateSingleMessage = "single-message"
	TemplateSystemMessage = "system-message"
	TemplateMessageBatch  = "message-batch"
	TemplateInlineEditor  = "inline-editor"

	// Region templates used by the reconciler to refresh part of a node.
	TemplateMessageBody   = "message-body"
	TemplateMessageEdited = "message-edited"
)

// MessageData is the payload handed to message templates.
type MessageData struct {
	Message            models.Message
	IsAdminOrGlobalMod bool
}

// BatchData is the payload handed to the batch template.
type BatchData struct {
	Messages           []models.Message
	IsAdminOrGlobalMod bool
}

// EditorData is the payload handed to the inline-editor template.
type EditorData struct {
	RawContent string
}

// TemplateRenderer produces markup for a named template. A failure must leave
// the caller free to abort without partial view mutation.
type TemplateRenderer interface {
	Render(name string, data any) (string, error)
}

var defaultTemplates = map[string]string{
	TemplateSingleMessage: `<div class="chat-message" data-mid="{{.Message.ID}}" data-uid="{{.Message.FromUID}}">` +
		`<span class="displayname">{{.Message.DisplayName}}</span>` +
		`<div class="body">{{.Message.Content}}</div>` +
		`{{if .Message.EditedAt}}<span class="edited">edited</span>{{end}}</div>`,
	TemplateSystemMessage: `<div class="chat-message system" data-mid="{{.Message.ID}}">{{.Message.Content}}</div>`,
	TemplateMessageBatch:  `{{range .Messages}}<div class="chat-message" data-mid="{{.ID}}" data-uid="{{.FromUID}}"><div class="body">{{.Content}}</div></div>{{end}}`,
	TemplateInlineEditor:  `<div class="inline-editor"><textarea>{{.RawContent}}</textarea></div>`,
	TemplateMessageBody:   `<div class="body">{{.Message.Content}}</div>`,
	TemplateMessageEdited: `{{if .Message.EditedAt}}<span class="edited">edited</span>{{end}}`,
}

// HTMLRenderer is the stock TemplateRenderer backed by html/template.
type HTMLRenderer struct {
	templates *template.Template
}

// NewHTMLRenderer builds a renderer with the stock templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	root := template.New("chat")
	for name, body := range defaultTemplates {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return &HTMLRenderer{templates: root}, nil
}

// Render executes a named template.
func (r *HTMLRenderer) Render(name string, data any) (string, error) {
	tpl := r.templates.Lookup(name)
	if tpl == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
