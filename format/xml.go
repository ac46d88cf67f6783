package format

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/sagarc03/rookery"
)

// AtomNamespace qualifies the link elements.
const AtomNamespace = "http://www.w3.org/2005/Atom"

type xmlLink struct {
	XMLName xml.Name `xml:"atom:link"`
	Href    string   `xml:"href,attr"`
	Rel     string   `xml:"rel,attr"`
	Type    string   `xml:"type,attr,omitempty"`
}

type xmlParent struct {
	Path string `xml:"path"`
	Link xmlLink
}

type xmlChild struct {
	Name string `xml:"name"`
	Link xmlLink
}

type xmlChildren struct {
	Child []xmlChild `xml:"child"`
}

type xmlDocument struct {
	XMLName      xml.Name
	Atom         string       `xml:"xmlns:atom,attr"`
	Name         string       `xml:"name"`
	Parent       xmlParent    `xml:"parent"`
	LastModified string       `xml:"lastModified"`
	Type         string       `xml:"type"`
	Children     *xmlChildren `xml:"children,omitempty"`
}

type xmlEncoder struct{}

func (xmlEncoder) MediaType() string { return XML.MediaType() }

func (xmlEncoder) Encode(w io.Writer, md rookery.ResourceMetadata) error {
	doc := xmlDocument{
		XMLName: xml.Name{Local: rootName(md)},
		Atom:    AtomNamespace,
		Name:    md.Name,
		Parent: xmlParent{
			Path: md.Parent.Path.String(),
			Link: xmlLink{Href: md.Parent.Href, Rel: "alternate", Type: XML.MediaType()},
		},
		LastModified: Timestamp(md.LastModified),
		Type:         md.Type.String(),
	}

	if md.IsDirectory() {
		doc.Children = &xmlChildren{Child: make([]xmlChild, 0, len(md.Children))}
		for _, c := range md.Children {
			doc.Children.Child = append(doc.Children.Child, xmlChild{
				Name: c.Name,
				Link: xmlLink{Href: c.Href, Rel: "alternate", Type: childLinkType(c, XML)},
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	return enc.Close()
}
