package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sagarc03/rookery"
)

type jsonLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
	Type string `json:"type"`
}

type jsonParent struct {
	Path string   `json:"path"`
	Link jsonLink `json:"link"`
}

type jsonChild struct {
	Name string   `json:"name"`
	Link jsonLink `json:"link"`
}

type jsonChildren struct {
	Child []jsonChild `json:"child"`
}

type jsonDocument struct {
	Name         string        `json:"name"`
	Parent       jsonParent    `json:"parent"`
	LastModified string        `json:"lastModified"`
	Type         string        `json:"type"`
	Children     *jsonChildren `json:"children,omitempty"`
}

type jsonEncoder struct{}

func (jsonEncoder) MediaType() string { return JSON.MediaType() }

func (jsonEncoder) Encode(w io.Writer, md rookery.ResourceMetadata) error {
	doc := jsonDocument{
		Name: md.Name,
		Parent: jsonParent{
			Path: md.Parent.Path.String(),
			Link: jsonLink{Href: md.Parent.Href, Rel: "alternate", Type: JSON.MediaType()},
		},
		LastModified: Timestamp(md.LastModified),
		Type:         md.Type.String(),
	}

	if md.IsDirectory() {
		doc.Children = &jsonChildren{Child: make([]jsonChild, 0, len(md.Children))}
		for _, c := range md.Children {
			doc.Children.Child = append(doc.Children.Child, jsonChild{
				Name: c.Name,
				Link: jsonLink{Href: c.Href, Rel: "alternate", Type: childLinkType(c, JSON)},
			})
		}
	}

	if err := json.NewEncoder(w).Encode(map[string]jsonDocument{rootName(md): doc}); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// DecodeJSON reads a document written by the JSON encoder. Child entries
// carry the advertised link type in MimeType; their Type is left Undefined
// because the listing does not state it.
func DecodeJSON(r io.Reader) (rookery.ResourceMetadata, error) {
	var wrapped map[string]jsonDocument
	if err := json.NewDecoder(r).Decode(&wrapped); err != nil {
		return rookery.ResourceMetadata{}, fmt.Errorf("decode json: %w", err)
	}
	if len(wrapped) != 1 {
		return rookery.ResourceMetadata{}, fmt.Errorf("decode json: expected one root element, got %d", len(wrapped))
	}

	var doc jsonDocument
	for _, d := range wrapped {
		doc = d
	}

	t, err := rookery.ParseResourceType(doc.Type)
	if err != nil {
		return rookery.ResourceMetadata{}, fmt.Errorf("decode json: %w", err)
	}
	modified, err := ParseTimestamp(doc.LastModified)
	if err != nil {
		return rookery.ResourceMetadata{}, fmt.Errorf("decode json: %w", err)
	}
	parent, err := rookery.ParsePath(doc.Parent.Path)
	if err != nil {
		return rookery.ResourceMetadata{}, fmt.Errorf("decode json: parent: %w", err)
	}

	md := rookery.ResourceMetadata{
		Name:         doc.Name,
		Type:         t,
		LastModified: modified,
		Parent:       rookery.ParentRef{Path: parent, Href: doc.Parent.Link.Href},
	}
	if doc.Children != nil {
		md.Children = make([]rookery.ChildSummary, 0, len(doc.Children.Child))
		for _, c := range doc.Children.Child {
			md.Children = append(md.Children, rookery.ChildSummary{
				Name:     c.Name,
				Href:     c.Link.Href,
				MimeType: c.Link.Type,
			})
		}
	}
	return md, nil
}
