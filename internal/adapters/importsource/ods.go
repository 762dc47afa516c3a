package importsource

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// 空セルの繰り返し指定は列末尾まで続くことがあるため展開数を抑える
const maxBlankRepeat = 64

type odsDocument struct {
	Tables []odsTable `xml:"body>spreadsheet>table"`
}

type odsTable struct {
	HeaderRows []odsRow `xml:"table-header-rows>table-row"`
	Rows       []odsRow `xml:"table-row"`
}

type odsRow struct {
	Repeat int       `xml:"number-rows-repeated,attr"`
	Cells  []odsCell `xml:"table-cell"`
}

type odsCell struct {
	Repeat     int            `xml:"number-columns-repeated,attr"`
	ValueType  string         `xml:"value-type,attr"`
	Value      string         `xml:"value,attr"`
	Paragraphs []odsParagraph `xml:"p"`
}

type odsParagraph struct {
	Text  string   `xml:",chardata"`
	Spans []string `xml:"span"`
}

func (c odsCell) text() string {
	if c.ValueType == "float" && c.Value != "" {
		return c.Value
	}
	lines := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		lines = append(lines, p.Text+strings.Join(p.Spans, ""))
	}
	return strings.Join(lines, "\n")
}

// readODS は OpenDocument スプレッドシートの先頭の表を読み込みます。
func readODS(data []byte) ([][]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("importsource: open workbook: %w", err)
	}

	var content *zip.File
	for _, f := range archive.File {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return nil, fmt.Errorf("importsource: open workbook: content.xml not found")
	}

	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("importsource: open workbook: %w", err)
	}
	defer rc.Close()

	var doc odsDocument
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("importsource: parse workbook: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, ErrEmptySheet
	}

	table := doc.Tables[0]
	rows := make([][]string, 0, len(table.HeaderRows)+len(table.Rows))
	pendingBlank := 0
	for _, r := range append(table.HeaderRows, table.Rows...) {
		cells := r.cells()
		repeat := max(r.Repeat, 1)
		if len(cells) == 0 {
			// 末尾の空行は捨て、途中の空行だけ行番号のために残す
			pendingBlank += repeat
			continue
		}
		for ; pendingBlank > 0 && len(rows) < maxXLSRows; pendingBlank-- {
			rows = append(rows, nil)
		}
		pendingBlank = 0
		for i := 0; i < repeat && len(rows) < maxXLSRows; i++ {
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

func (r odsRow) cells() []string {
	cells := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		value := c.text()
		repeat := max(c.Repeat, 1)
		if strings.TrimSpace(value) == "" {
			repeat = min(repeat, maxBlankRepeat)
		}
		for i := 0; i < repeat; i++ {
			cells = append(cells, value)
		}
	}
	return trimTrailingBlanks(cells)
}
