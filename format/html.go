package format

import (
	"fmt"
	"html/template"
	"io"

	"github.com/sagarc03/rookery"
)

var htmlTemplate = template.Must(template.New("resource").Parse(`<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{.Title}}</title></head>
<body>
<ul>
<li>Name: '{{.Name}}'</li>
<li><a href="{{.ParentHref}}">Parent: {{.ParentPath}}</a></li>
<li>Type: {{.Type}}</li>
<li>Last modified: {{.LastModified}}</li>
{{- if .Directory}}
<li>Children: <ul>
{{- range .Children}}
<li><a href="{{.Href}}">{{.Name}}</a></li>
{{- end}}
</ul></li>
{{- end}}
</ul>
</body>
</html>
`))

type htmlChild struct {
	Name string
	Href template.URL
}

type htmlPage struct {
	Title        string
	Name         string
	ParentHref   template.URL
	ParentPath   string
	Type         string
	LastModified string
	Directory    bool
	Children     []htmlChild
}

type htmlEncoder struct{}

func (htmlEncoder) MediaType() string { return HTML.MediaType() }

// Encode renders an XHTML page. Hrefs are produced by a LinkBuilder and are
// already percent-encoded, so they are passed through as URLs.
func (htmlEncoder) Encode(w io.Writer, md rookery.ResourceMetadata) error {
	page := htmlPage{
		Title:        rootName(md) + ": " + md.Name,
		Name:         md.Name,
		ParentHref:   template.URL(md.Parent.Href),
		ParentPath:   md.Parent.Path.String(),
		Type:         md.Type.String(),
		LastModified: DisplayTime(md.LastModified),
		Directory:    md.IsDirectory(),
	}

	for _, c := range md.Children {
		page.Children = append(page.Children, htmlChild{Name: c.Name, Href: template.URL(c.Href)})
	}

	if err := htmlTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("encode html: %w", err)
	}
	return nil
}
