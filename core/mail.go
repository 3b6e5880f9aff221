package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// EmailTemplates renders EmailMessages from "<name>.txt" / "<name>.gohtml" files,
	// each wrapped by "_base.txt" / "_base.gohtml".
	EmailTemplates struct {
		cache           tmplCache
		frontendBaseURL string
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// NewEmailTemplates parses every template found in `dir` of `fsys`.
// In strict mode, missing keys in template data are errors.
func NewEmailTemplates(fsys fs.FS, dir, frontendBaseURL string, strict bool) (*EmailTemplates, error) {
	t := &EmailTemplates{cache: make(tmplCache), frontendBaseURL: frontendBaseURL}

	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := t.cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			t.cache[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, path.Join(dir, "_base.txt"), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, path.Join(dir, "_base.gohtml"), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
	return t, nil
}

func (t *EmailTemplates) get(name, ext string) (interface{}, bool) {
	if t == nil {
		return nil, false
	}
	entry, ok := t.cache[name]
	if !ok {
		return nil, ok
	}
	tmpl, ok := entry[ext]
	return tmpl, ok
}

// Render fills TextContent and HTMLContent of `m`.
func (t *EmailTemplates) Render(m *EmailMessage) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	data := ContextData{FrontendBaseURL: "", Data: m.TemplateData}
	if t != nil {
		data.FrontendBaseURL = t.frontendBaseURL
	}

	if m.BodyStr == "" {
		if entry, ok := t.get(m.TemplateName, ".txt"); ok {
			var buff bytes.Buffer
			if err := entry.(*texttmpl.Template).Execute(&buff, data); err != nil {
				return errors.Wrap(err, "rendering text")
			}
			m.TextContent = buff.String()
		}
	}
	if entry, ok := t.get(m.TemplateName, ".gohtml"); ok {
		var buff bytes.Buffer
		if err := entry.(*htmltmpl.Template).Execute(&buff, data); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}
