package pagination

const (
	// DefaultPageLength is the grid page size when none is provided.
	DefaultPageLength = 50
	// MaxPageLength caps a single grid page.
	MaxPageLength = 500
)

// Page holds offset pagination inputs for grid-style queries, where the
// caller thinks in page numbers rather than cursors.
type Page struct {
	Number int
	Length int
}

// NormalizePage clamps page number and length into valid bounds.
func NormalizePage(number, length int) Page {
	if number <= 0 {
		number = 1
	}
	if length <= 0 {
		length = DefaultPageLength
	}
	if length > MaxPageLength {
		length = MaxPageLength
	}
	return Page{Number: number, Length: length}
}

// Offset converts the page into a SQL offset.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Length
}
