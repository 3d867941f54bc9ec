package loader

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/markdown"
)

func (l *Loader) parseText(name string, data []byte) ([]Document, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Document{{Text: text, Metadata: domain.Metadata{}}}, nil
}

// parsePDF yields one document per page that has text.
func (l *Loader) parsePDF(name string, data []byte) ([]Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	info := domain.Metadata{}
	if trailer := reader.Trailer(); !trailer.IsNull() {
		dict := trailer.Key("Info")
		for key, field := range map[string]string{
			"Title":        "title",
			"Author":       "author",
			"CreationDate": "creationdate",
			"Keywords":     "keywords",
		} {
			if v := strings.TrimSpace(dict.Key(key).Text()); v != "" {
				info[field] = v
			}
		}
	}

	pageCount := reader.NumPage()
	docs := make([]Document, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("Failed to extract text from page", "file", name, "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		meta := info.Clone()
		meta["page"] = i
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#page-%d", name, i),
			Text:     text,
			Metadata: meta,
		})
	}
	return docs, nil
}

// documentXML is the subset of word/document.xml holding paragraph text.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// coreXML is docProps/core.xml.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
	Created string `xml:"created"`
	Subject string `xml:"subject"`
}

func (l *Loader) parseDOCX(name string, data []byte) ([]Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}

	body, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}

	var doc documentXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse word/document.xml: %w", err)
	}

	var text strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			text.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				text.WriteString(t.Content)
			}
		}
	}

	meta := domain.Metadata{}
	if core, err := readZipFile(reader, "docProps/core.xml"); err == nil && core != nil {
		var props coreXML
		if err := xml.Unmarshal(core, &props); err == nil {
			setIfPresent(meta, "title", props.Title)
			setIfPresent(meta, "author", props.Creator)
			setIfPresent(meta, "publication_date", props.Created)
			setIfPresent(meta, "subject", props.Subject)
		}
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, nil
	}
	return []Document{{Text: content, Metadata: meta}}, nil
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}

// parseCSV yields one document per data row, rendered as "header: value" lines.
func (l *Loader) parseCSV(name string, data []byte) ([]Document, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	docs := make([]Document, 0, len(records)-1)
	for row, record := range records[1:] {
		var b strings.Builder
		for i, value := range record {
			column := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				column = strings.TrimSpace(header[i])
			}
			fmt.Fprintf(&b, "%s: %s\n", column, strings.TrimSpace(value))
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#row-%d", name, row+1),
			Text:     strings.TrimSpace(b.String()),
			Metadata: domain.Metadata{"row": row + 1},
		})
	}
	return docs, nil
}

// parseJSON accepts an array of records or a single record. A record's text
// comes from "text" or "content"; its other scalar fields become metadata.
func (l *Loader) parseJSON(name string, data []byte) ([]Document, error) {
	var records []map[string]any
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
	} else {
		var record map[string]any
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, fmt.Errorf("decode json object: %w", err)
		}
		records = append(records, record)
	}

	docs := make([]Document, 0, len(records))
	for i, record := range records {
		text := ""
		for _, key := range []string{"text", "content"} {
			if s, ok := record[key].(string); ok && strings.TrimSpace(s) != "" {
				text = strings.TrimSpace(s)
				break
			}
		}
		if text == "" {
			l.logger.Warn("Skipping JSON record without text", "file", name, "record", i)
			continue
		}

		meta := domain.Metadata{}
		for k, v := range record {
			if k == "text" || k == "content" {
				continue
			}
			if nested, ok := v.(map[string]any); ok && k == "metadata" {
				for nk, nv := range nested {
					if s, ok := scalar(nv); ok {
						meta[nk] = s
					}
				}
				continue
			}
			if s, ok := scalar(v); ok {
				meta[k] = s
			}
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#record-%d", name, i),
			Text:     text,
			Metadata: meta,
		})
	}
	return docs, nil
}

// parseMarkdown yields one document per H1/H2 section. The first H1 becomes
// the title of every section.
func (l *Loader) parseMarkdown(name string, data []byte) ([]Document, error) {
	sections, err := l.markdown.Split(data)
	if err != nil {
		return nil, err
	}

	title := markdown.Title(sections)
	docs := make([]Document, 0, len(sections))
	for _, sec := range sections {
		meta := domain.Metadata{}
		setIfPresent(meta, "title", title)
		setIfPresent(meta, domain.MetaSection, sec.HeaderPath)
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#section-%d", name, sec.Index),
			Text:     sec.Content,
			Metadata: meta,
		})
	}
	return docs, nil
}

func setIfPresent(meta domain.Metadata, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		meta[key] = v
	}
}
