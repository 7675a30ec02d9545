package domain

// SortDirection is the ordering direction for the sort field.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// BBox is an axis-aligned rectangle in 2D-projection coordinates
// (spec.md §4.3.1: normalized so x1<=x2, y1<=y2).
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// YearRange is an inclusive [Start, End] bound on publication_year.
type YearRange struct {
	Start int
	End   int
}

// FilterRequest is the Planner's entire input (spec.md §4.3).
type FilterRequest struct {
	Fields              []string
	SQLFilter           string
	BBox                *BBox
	YearRange           *YearRange
	SearchText          string
	SimilarityThreshold float64
	EmbeddingType       string
	Limit               int
	Offset              int
	SortField           string
	SortDirection       SortDirection
	DisableSort         bool
}

// CountResult carries the Executor's adaptive-count outcome (spec.md §4.4.3).
type CountResult struct {
	Total      int
	IsEstimate bool
}

// CategoryCount is one row of /stats source_distribution or category counts.
type CategoryCount struct {
	Category string
	Count    int64
}
