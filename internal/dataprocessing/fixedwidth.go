package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "mptcli/internal/errors"
)

// TechniqueFieldWidth is the character width of one technique parameter cell.
// The export pads every cell of the technique block to this width; a parameter
// line is its name cell followed by one cell per technique sequence.
const TechniqueFieldWidth = 20

// SplitFixedWidth cuts line into width-character chunks, keeping a final partial
// chunk. Chunks are trimmed of padding and whitespace-only trailing chunks are
// dropped, interior empty chunks keep their position as "".
// A line shorter than one full field fails with a FormatError.
func SplitFixedWidth(line string, width int) ([]string, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid field width %d", width)
	}
	runes := []rune(strings.TrimRight(line, "\r\n"))
	if len(runes) < width {
		return nil, apperrors.NewFormatError(
			fmt.Sprintf("fixed-width line shorter than one %d-character field", width), nil).
			WithContext("line", string(runes))
	}

	chunks := make([]string, 0, len(runes)/width+1)
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
	}
	for len(chunks) > 1 && chunks[len(chunks)-1] == "" {
		chunks = chunks[:len(chunks)-1]
	}
	return chunks, nil
}
