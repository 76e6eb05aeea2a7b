package fetcher

import "fmt"

// TransportError covers network failures, timeouts and non-2xx responses.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StructureKind tells which part of the page layout could not be found.
type StructureKind int

const (
	MissingSection StructureKind = iota + 1
	MissingTable
	MalformedTable
	NoHeaders
	NoDataRows
)

func (k StructureKind) String() string {
	switch k {
	case MissingSection:
		return "missing_section"
	case MissingTable:
		return "missing_table"
	case MalformedTable:
		return "malformed_table"
	case NoHeaders:
		return "no_headers"
	case NoDataRows:
		return "no_data_rows"
	default:
		return "unknown"
	}
}

// StructureError means the source page no longer has the expected layout.
type StructureError struct {
	Kind   StructureKind
	Reason string
}

func (e *StructureError) Error() string { return e.Reason }
