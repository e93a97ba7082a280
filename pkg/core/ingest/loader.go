package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"sme_health/pkg/core/utils"
)

// Encodings is the ordered list tried when decoding text sources.
var Encodings = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}

var decoders = map[string]encoding.Encoding{
	"latin-1":    charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
	"cp1252":     charmap.Windows1252,
}

// LoadFile reads a table from disk, choosing the parser from the extension.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f)
}

// Load reads a table from r. name is used for format detection and as the
// table name in errors.
func Load(name string, r io.Reader) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	tableName := strings.TrimSuffix(name, filepath.Ext(name))
	switch format {
	case FormatXLSX:
		return ReadXLSX(tableName, data)
	case FormatJSON:
		return ReadJSON(tableName, data)
	default:
		return ReadCSV(tableName, data)
	}
}

// ReadCSV decodes data with each entry of Encodings in turn and parses the
// first successful decoding as comma-separated values with a header row.
func ReadCSV(name string, data []byte) (*Table, error) {
	var attempts []string
	for _, enc := range Encodings {
		text, err := decode(enc, data)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", enc, err))
			continue
		}
		t, err := parseCSV(name, text)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", enc, err))
			continue
		}
		t.Encoding = enc
		return t, nil
	}
	return nil, fmt.Errorf("failed to decode %s with any of %v: %s", name, Encodings, strings.Join(attempts, "; "))
}

func decode(enc string, data []byte) (string, error) {
	if enc == "utf-8" {
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8 sequence")
		}
		return string(data), nil
	}
	d, ok := decoders[enc]
	if !ok {
		return "", fmt.Errorf("unknown encoding %q", enc)
	}
	out, err := d.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parseCSV(name, text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}
	return &Table{Name: name, Columns: records[0], Rows: records[1:]}, nil
}

// ReadXLSX reads the first sheet of a workbook. The first row is the header.
func ReadXLSX(name string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", name)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}
	return &Table{Name: name, Columns: rows[0], Rows: rows[1:]}, nil
}

// ReadJSON reads an array of flat objects. Hand-edited or truncated exports
// are accepted through the lenient decoder.
func ReadJSON(name string, data []byte) (*Table, error) {
	var records []map[string]interface{}
	if _, err := utils.DecodeLenient(string(data), &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = stringify(rec[c])
		}
		rows = append(rows, row)
	}
	return &Table{Name: name, Columns: columns, Rows: rows}, nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
