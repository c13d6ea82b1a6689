package library

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// EPUB is a zip archive. The container manifest points at an OPF package
// document whose manifest lists the XHTML chapters; the spine gives their
// reading order.

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func extractEPUBText(epubPath string) (string, error) {
	archive, err := zip.OpenReader(epubPath)
	if err != nil {
		return "", fmt.Errorf("open epub archive: %w", err)
	}
	defer archive.Close()

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[f.Name] = f
	}

	opfPath, err := findPackagePath(files)
	if err != nil {
		return "", err
	}

	chapters, err := documentPaths(files, opfPath)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, name := range chapters {
		f, ok := files[name]
		if !ok {
			continue
		}
		text, err := chapterText(f)
		if err != nil {
			return "", fmt.Errorf("read chapter %s: %w", name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func findPackagePath(files map[string]*zip.File) (string, error) {
	f, ok := files["META-INF/container.xml"]
	if !ok {
		return "", fmt.Errorf("epub has no META-INF/container.xml")
	}
	var c container
	if err := decodeXML(f, &c); err != nil {
		return "", fmt.Errorf("parse container.xml: %w", err)
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container.xml names no rootfile")
	}
	return c.Rootfiles[0].FullPath, nil
}

// documentPaths resolves the XHTML chapters in spine order. Manifest items
// not referenced by the spine are appended afterwards so no text is lost.
func documentPaths(files map[string]*zip.File, opfPath string) ([]string, error) {
	f, ok := files[opfPath]
	if !ok {
		return nil, fmt.Errorf("epub package document %s missing", opfPath)
	}
	var pkg packageDoc
	if err := decodeXML(f, &pkg); err != nil {
		return nil, fmt.Errorf("parse package document: %w", err)
	}

	base := path.Dir(opfPath)
	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	var manifestOrder []string
	for _, item := range pkg.Manifest.Items {
		if item.MediaType != "application/xhtml+xml" && item.MediaType != "text/html" {
			continue
		}
		resolved := item.Href
		if base != "." {
			resolved = path.Join(base, item.Href)
		}
		hrefs[item.ID] = resolved
		manifestOrder = append(manifestOrder, item.ID)
	}

	seen := make(map[string]bool, len(hrefs))
	var ordered []string
	appendID := func(id string) {
		href, ok := hrefs[id]
		if !ok || seen[href] {
			return
		}
		seen[href] = true
		ordered = append(ordered, href)
	}
	for _, ref := range pkg.Spine.ItemRefs {
		appendID(ref.IDRef)
	}
	for _, id := range manifestOrder {
		appendID(id)
	}
	return ordered, nil
}

func decodeXML(f *zip.File, out any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(out)
}

func chapterText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return htmlToText(rc)
}

// htmlToText flattens an XHTML document to plain text, inserting line breaks
// at block boundaries so paragraphs stay distinct.
func htmlToText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				b.WriteByte('\n')
			}
		case html.TextNode:
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return collapseBlankLines(b.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "blockquote", "li", "ul", "ol",
		"h1", "h2", "h3", "h4", "h5", "h6", "table", "tr", "figure", "figcaption":
		return true
	}
	return false
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
