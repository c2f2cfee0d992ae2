package schema

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"exdform/internal/logger"
)

// ErrUnsupportedFormat is returned for schema files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported schema file format")

// cell is a scalar schema value that may be written as a string, a number
// or, for modalities, a list of lines.
type cell string

func (c *cell) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cell(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*c = cell(strings.Join(lines, "\n"))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("schema cell: %w", err)
	}
	*c = cell(n.String())
	return nil
}

func (c *cell) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var lines []string
		if err := node.Decode(&lines); err != nil {
			return err
		}
		*c = cell(strings.Join(lines, "\n"))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*c = cell(s)
	return nil
}

// entry is one variable in a YAML or JSON schema file.
type entry struct {
	Name        cell `json:"name" yaml:"name"`
	Description cell `json:"description" yaml:"description"`
	Modalities  cell `json:"modalities" yaml:"modalities"`
	Type        cell `json:"type" yaml:"type"`
	MaxLength   cell `json:"max_length" yaml:"max_length"`
}

func (e entry) row() Row {
	return Row{string(e.Name), string(e.Description), string(e.Modalities), string(e.Type), string(e.MaxLength)}
}

// ReadCSV reads schema rows from CSV, dropping the header row.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []Row
	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, Row(record))
	}
	return rows, nil
}

// ReadYAML reads schema rows from a YAML list of variable mappings.
func ReadYAML(r io.Reader) ([]Row, error) {
	var entries []entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return entryRows(entries), nil
}

// ReadJSON reads schema rows from a JSON array of variable objects.
func ReadJSON(r io.Reader) ([]Row, error) {
	var entries []entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return entryRows(entries), nil
}

func entryRows(entries []entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.row())
	}
	return rows
}

// ReadFile reads schema rows from path, picking the format by extension.
func ReadFile(path string) ([]Row, error) {
	read, err := readerFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return read(f)
}

func readerFor(path string) (func(io.Reader) ([]Row, error), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV, nil
	case ".yaml", ".yml":
		return ReadYAML, nil
	case ".json":
		return ReadJSON, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// cached is a parsed schema file and the file state it was parsed from.
type cached struct {
	size    int64
	modTime time.Time
	result  ImportResult
}

// Loader reads and imports schema files, reusing the parse of files that
// have not changed since the last load.
type Loader struct {
	cache *lru.Cache[string, cached]
	log   *logger.Logger
}

// NewLoader creates a Loader holding up to size parsed files.
func NewLoader(size int, log *logger.Logger) (*Loader, error) {
	cache, err := lru.New[string, cached](size)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &Loader{cache: cache, log: logger.OrNop(log).WithComponent("schema")}, nil
}

// Load imports the schema file at path.
func (l *Loader) Load(path string) (ImportResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ImportResult{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ImportResult{}, fmt.Errorf("stat schema: %w", err)
	}
	if c, ok := l.cache.Get(abs); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.result, nil
	}

	rows, err := ReadFile(abs)
	if err != nil {
		return ImportResult{}, err
	}
	res := Import(rows)
	for _, s := range res.Skipped {
		l.log.Warnw("schema row skipped", "path", abs, "row", s.Row, "name", s.Name, "reason", s.Reason)
	}
	l.log.Infow("schema file parsed", "path", abs, "variables", len(res.Variables), "skipped", len(res.Skipped))

	l.cache.Add(abs, cached{size: info.Size(), modTime: info.ModTime(), result: res})
	return res, nil
}

// Forget drops the cached parse of path.
func (l *Loader) Forget(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		l.cache.Remove(abs)
	}
}
