package display

// LineWidth is the number of characters drawn per reply row.
const LineWidth = 51

// wrapThreshold keeps the reply layout of the first WellBot release:
// full rows are cut only while more than 52 characters remain, so a
// 52-character tail is drawn as one row.
const wrapThreshold = 52

// Wrap slices content into rows of LineWidth characters. It does not
// look at word boundaries. The tail is always emitted, so empty content
// yields one empty row.
func Wrap(content string) []string {
	runes := []rune(content)

	var (
		lines     []string
		i         int
		remaining = len(runes)
	)

	for remaining > wrapThreshold {
		lines = append(lines, string(runes[i:i+LineWidth]))
		remaining -= LineWidth
		i += LineWidth
	}

	return append(lines, string(runes[i:]))
}
