package importsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/extrame/xls"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/xuri/excelize/v2"
)

const (
	maxXLSRows = 100000
	// 行レコードを持たないセルのために最低限走査する列数
	minXLSColumns = 32
)

var (
	// ErrUnsupportedFormat は対応していない拡張子の場合に返却されます。
	ErrUnsupportedFormat = errors.New("importsource: unsupported file format")
	// ErrMissingColumns は必須列 (Nombre, Apellidos, Cedula) が無い場合に返却されます。
	ErrMissingColumns = errors.New("importsource: required columns missing")
	// ErrEmptySheet はシートに行が無い場合に返却されます。
	ErrEmptySheet = errors.New("importsource: worksheet is empty")
)

type column int

const (
	colName column = iota
	colSurname
	colNationalID
	colOffice
	colTitle
	colPhoto
	colBadgeType
)

var headerAliases = map[string]column{
	"name":       colName,
	"nombre":     colName,
	"nombres":    colName,
	"surname":    colSurname,
	"apellido":   colSurname,
	"apellidos":  colSurname,
	"nationalid": colNationalID,
	"cedula":     colNationalID,
	"office":     colOffice,
	"adscrito":   colOffice,
	"oficina":    colOffice,
	"title":      colTitle,
	"cargo":      colTitle,
	"photo":      colPhoto,
	"imagen":     colPhoto,
	"rutaimagen": colPhoto,
	"badgetype":  colBadgeType,
	"tipocarnet": colBadgeType,
	"tipo":       colBadgeType,
}

var (
	headerReplacer   = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", " ", "", "_", "", "-", "")
	spreadsheetFloat = regexp.MustCompile(`^(\d+)\.0+$`)
)

// ReadFile は拡張子に応じてファイルを読み込み、取り込み行に変換します。
func ReadFile(path string) ([]importer.ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("importsource: open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, filepath.Base(path))
}

// Read は filename の拡張子で形式を判定して r を読み込みます。
func Read(r io.Reader, filename string) ([]importer.ImportRow, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("importsource: open workbook: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrEmptySheet
		}
		return file.GetRows(sheetName)
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("importsource: open workbook: %w", err)
		}
		return firstSheetRows(xlsWorkbook{wb: workbook})
	case ".ods":
		return readODS(data)
	case ".csv":
		return readDelimited(data, ',')
	case ".tsv":
		return readDelimited(data, '\t')
	default:
		return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
}

// sheetGrid は一枚のワークシートです。
type sheetGrid interface {
	// MaxRowIndex は最後の行の番号です。行が無ければ -1 です。
	MaxRowIndex() int
	// Cells は行のセルを返します。行が無ければ ok は false です。
	Cells(row int) (cells []string, ok bool)
}

type workbookSheets interface {
	NumSheets() int
	Sheet(i int) sheetGrid
}

// firstSheetRows は先頭のワークシートだけを読み込みます。
func firstSheetRows(wb workbookSheets) ([][]string, error) {
	if wb.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	sheet := wb.Sheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}

	last := sheet.MaxRowIndex()
	if last >= maxXLSRows {
		last = maxXLSRows - 1
	}
	rows := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		cells, ok := sheet.Cells(i)
		if !ok {
			cells = nil
		}
		rows = append(rows, trimTrailingBlanks(cells))
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

type xlsWorkbook struct {
	wb *xls.WorkBook
}

func (w xlsWorkbook) NumSheets() int {
	return w.wb.NumSheets()
}

func (w xlsWorkbook) Sheet(i int) sheetGrid {
	ws := w.wb.GetSheet(i)
	if ws == nil {
		return nil
	}
	return xlsSheet{ws: ws}
}

type xlsSheet struct {
	ws *xls.WorkSheet
}

// MaxRowIndex は MaxRow が 0 の場合も先頭行の有無で判定します。
func (s xlsSheet) MaxRowIndex() int {
	if s.ws.MaxRow == 0 {
		if _, ok := s.Cells(0); !ok {
			return -1
		}
	}
	return int(s.ws.MaxRow)
}

// Cells は欠けた行に対して xls.WorkSheet.Row が panic するため recover で ok=false にします。
func (s xlsSheet) Cells(i int) (cells []string, ok bool) {
	defer func() {
		if recover() != nil {
			cells, ok = nil, false
		}
	}()

	row := s.ws.Row(i)
	width := row.LastCol() + 1
	if width < minXLSColumns {
		width = minXLSColumns
	}
	cells = make([]string, width)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	return cells, true
}

func trimTrailingBlanks(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}

func readDelimited(data []byte, sep rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importsource: parse delimited file: %w", err)
	}
	return rows, nil
}

// FromRows は先頭行をヘッダとして行データを取り込み行に変換します。空行は無視します。
func FromRows(rows [][]string) ([]importer.ImportRow, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	index := make(map[column]int)
	for i, header := range rows[0] {
		if col, ok := lookupHeader(header); ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	for _, required := range []column{colName, colSurname, colNationalID} {
		if _, ok := index[required]; !ok {
			return nil, ErrMissingColumns
		}
	}

	result := make([]importer.ImportRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cell := func(col column) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		result = append(result, importer.ImportRow{
			Line:           i + 2,
			Name:           cell(colName),
			Surname:        cell(colSurname),
			NationalID:     normalizeNationalID(cell(colNationalID)),
			Office:         cell(colOffice),
			Title:          cell(colTitle),
			PhotoReference: cell(colPhoto),
			BadgeType:      cell(colBadgeType),
		})
	}
	return result, nil
}

// FromColumns は列名から値への対応を取り込み行に変換します。未知の列は無視します。
func FromColumns(values map[string]string) importer.ImportRow {
	var row importer.ImportRow
	for header, value := range values {
		col, ok := lookupHeader(header)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch col {
		case colName:
			row.Name = value
		case colSurname:
			row.Surname = value
		case colNationalID:
			row.NationalID = normalizeNationalID(value)
		case colOffice:
			row.Office = value
		case colTitle:
			row.Title = value
		case colPhoto:
			row.PhotoReference = value
		case colBadgeType:
			row.BadgeType = value
		}
	}
	return row
}

func lookupHeader(header string) (column, bool) {
	key := headerReplacer.Replace(strings.ToLower(strings.TrimSpace(header)))
	col, ok := headerAliases[key]
	return col, ok
}

// normalizeNationalID は表計算ソフトが数値として保存した "1234567.0" を "1234567" に戻します。
func normalizeNationalID(raw string) string {
	if m := spreadsheetFloat.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
