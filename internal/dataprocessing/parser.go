package dataprocessing

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

const (
	// ASCIISignature identifies an EC-Lab ASCII export on the first line
	ASCIISignature = "EC-Lab ASCII FILE"
	// RRDEMarker on line 4 announces the disk-channel variant
	RRDEMarker = "DISK CHANNEL SETTING"
	// CycleDefinitionKey is the last metadata field before the technique block
	CycleDefinitionKey = "Cycle Definition"

	// fixed line positions of the preamble (0-indexed)
	lineSignature   = 0
	lineHeaderCount = 1
	lineBlankA      = 2
	lineTechnique   = 3
	lineBlankB      = 4
	lineHeaderBody  = 5
)

var headerLinesPattern = regexp.MustCompile(`Nb header lines : ([0-9]+)`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFile reads an instrument export from disk and returns its structured content.
func ParseFile(filePath string) (*domain.RawMeasurement, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f, filePath)
}

// Parse reads an instrument export from r. source is recorded on the result and used in logs.
func Parse(r io.Reader, source string) (*domain.RawMeasurement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, apperrors.NewFormatError("undecodable file contents", err).WithContext("source", source)
	}
	lines := splitLines(text)

	fileType, appErr := checkPreamble(lines)
	if appErr != nil {
		return nil, appErr.WithContext("source", source)
	}

	headerLines, appErr := headerLineCount(lines)
	if appErr != nil {
		return nil, appErr.WithContext("source", source)
	}

	header := lines[lineHeaderBody : headerLines-1]
	metadata, flags, techniqueStart := parseHeader(header)

	technique, appErr := parseTechnique(header, techniqueStart)
	if appErr != nil {
		return nil, appErr.WithContext("source", source)
	}

	series, appErr := parseSeries(lines, headerLines)
	if appErr != nil {
		return nil, appErr.WithContext("source", source)
	}

	slog.Debug("Parsed measurement file",
		slog.String("source", source),
		slog.String("file_type", fileType),
		slog.Int("header_lines", headerLines),
		slog.Int("metadata_fields", metadata.Len()),
		slog.Int("flags", len(flags)),
		slog.Int("technique_rows", technique.Len()),
		slog.Int("columns", len(series.Columns)),
		slog.Int("rows", series.Len()))

	return &domain.RawMeasurement{
		Source:    source,
		FileType:  fileType,
		Metadata:  metadata,
		Flags:     flags,
		Technique: technique,
		Series:    series,
	}, nil
}

// decodeText returns the file as UTF-8. Exports that are not valid UTF-8 are
// legacy 8-bit files and are decoded as Windows-1252.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// checkPreamble validates the fixed first five lines and returns the file type
func checkPreamble(lines []string) (string, *apperrors.AppError) {
	if len(lines) <= lineBlankB {
		return "", apperrors.NewFormatError("file too short for an EC-Lab ASCII header", nil).
			WithContext("lines", len(lines))
	}
	if !strings.Contains(lines[lineSignature], ASCIISignature) {
		return "", apperrors.NewFormatError("Only EC-Lab ASCII files supported", nil)
	}

	midMeasurement := "Unexpected EC-Lab ASCII file format (lines 3 and 5 must be empty), was the file copied before the measurement finished?"
	if lines[lineBlankA] != "" {
		return "", apperrors.NewFormatError(midMeasurement, nil).WithContext("line", lineBlankA+1)
	}
	if lines[lineBlankB] != "" {
		if lines[lineTechnique] == RRDEMarker {
			return domain.FileTypeRRDE, nil
		}
		return "", apperrors.NewFormatError(midMeasurement, nil).WithContext("line", lineBlankB+1)
	}
	return lines[lineTechnique], nil
}

func headerLineCount(lines []string) (int, *apperrors.AppError) {
	match := headerLinesPattern.FindStringSubmatch(lines[lineHeaderCount])
	if match == nil {
		return 0, apperrors.NewFormatError("missing 'Nb header lines' marker", nil).
			WithContext("line", lineHeaderCount+1)
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, apperrors.NewFormatError("invalid header line count", err)
	}
	if n <= lineHeaderBody || n > len(lines) {
		return 0, apperrors.NewFormatError(
			fmt.Sprintf("header line count %d out of range for a %d-line file", n, len(lines)), nil).
			WithContext("header_lines", n)
	}
	return n, nil
}

// parseHeader scans metadata fields and flags. It returns the index within
// header where the technique block starts, or -1 when no Cycle Definition
// field was found.
func parseHeader(header []string) (*domain.Metadata, []string, int) {
	metadata := domain.NewMetadata()
	flags := []string{}

	for i, line := range header {
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "\t")

		if !strings.Contains(line, ":") {
			flags = append(flags, line)
			continue
		}

		key, value, found := strings.Cut(line, " :")
		if !found {
			flags = append(flags, line)
			continue
		}
		// a field with nothing after the colon is truncated
		if value == "" {
			continue
		}
		metadata.Set(key, value[1:])

		if key == CycleDefinitionKey {
			return metadata, flags, i + 1
		}
	}
	return metadata, flags, -1
}

// parseTechnique splits the technique block into fixed-width parameter rows.
// The block runs from start up to, not including, the last header line.
func parseTechnique(header []string, start int) (*domain.TechniqueTable, *apperrors.AppError) {
	table := &domain.TechniqueTable{Rows: []domain.TechniqueRow{}}
	if start < 0 || start >= len(header) {
		return table, nil
	}

	for i, line := range header[start : len(header)-1] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks, err := SplitFixedWidth(line, TechniqueFieldWidth)
		if err != nil {
			var appErr *apperrors.AppError
			if e, ok := err.(*apperrors.AppError); ok {
				appErr = e
			} else {
				appErr = apperrors.NewFormatError("invalid technique line", err)
			}
			return nil, appErr.WithContext("line", lineHeaderBody+start+i+1)
		}
		table.Rows = append(table.Rows, domain.TechniqueRow{
			Name:   chunks[0],
			Values: chunks[1:],
		})
	}
	return table, nil
}

// parseSeries reads the column header at headerLines-1 and every data line after it
func parseSeries(lines []string, headerLines int) (*domain.Series, *apperrors.AppError) {
	columns := strings.Split(strings.ReplaceAll(lines[headerLines-1], " ", "_"), "\t")
	if len(columns) > 0 && columns[len(columns)-1] == "" {
		columns = columns[:len(columns)-1]
	}
	if len(columns) == 0 {
		return nil, apperrors.NewFormatError("empty column header", nil).WithContext("line", headerLines)
	}

	rows := make([][]float64, 0, len(lines)-headerLines)
	for i := headerLines; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		tokens := strings.Split(lines[i], "\t")
		if len(tokens) < len(columns) {
			return nil, apperrors.NewFormatError(
				fmt.Sprintf("data line has %d values, expected %d", len(tokens), len(columns)), nil).
				WithContext("line", i+1)
		}

		row := make([]float64, len(columns))
		for c := range columns {
			v, err := ParseDecimal(tokens[c])
			if err != nil {
				return nil, apperrors.NewFormatError("non-numeric data cell", err).
					WithContext("line", i+1).
					WithContext("column", columns[c])
			}
			row[c] = v
		}
		rows = append(rows, row)
	}

	return domain.NewSeries(columns, rows), nil
}
