package export

// Dataset is a header row plus rows keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Field is a labelled value printed above or below a table.
type Field struct {
	Label string
	Value string
}

// Document is a titled table with optional leading and trailing fields,
// e.g. a report card: student details, subject grades, remarks.
type Document struct {
	Title  string
	Header []Field
	Table  Dataset
	Footer []Field
}

// Renderer turns a Document into bytes of one format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}
