// Package catalog is the process-wide immutable field registry described
// by spec.md §3 "Field catalog". It is the Planner's only source of truth
// for how a field name maps onto a physical table/column, and it is what
// makes join inference (spec.md §4.3.2) a lookup instead of per-source
// conditional branches — the dynamic-catalog design note in spec.md §9.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// LogicalType is one of the physical column types the Planner understands.
type LogicalType string

const (
	TypeText      LogicalType = "text"
	TypeTextArray LogicalType = "text[]"
	TypeDate      LogicalType = "date"
	TypeTimestamp LogicalType = "timestamp"
	TypeVector    LogicalType = "vector"
	TypePoint     LogicalType = "point"
	TypeUUID      LogicalType = "uuid"
	TypeNumeric   LogicalType = "numeric"
)

// Field is one catalog entry: spec.md §3 "Field catalog" in full.
type Field struct {
	Name       string // externally visible field name
	Table      string // declaring table (base "papers" or an enrichment table)
	Alias      string // stable short alias used in compiled SQL
	Column     string // physical column name
	Type       LogicalType
	Filterable bool
	Sortable   bool
	Searchable bool
}

// QualifiedName is "table.column" as accepted in sql_filter / sort_field.
func (f Field) QualifiedName() string {
	return f.Table + "." + f.Column
}

// BaseTable is the canonical paper table. Every query touches it.
const BaseTable = "papers"

// BaseAlias is the stable alias for the base table in compiled SQL.
const BaseAlias = "dp"

// Catalog is the immutable registry: name/qualified-name -> Field.
type Catalog struct {
	byName map[string]Field
	tables map[string]string // table -> alias, for join inference
}

// New builds the default catalog: the base paper table plus the two
// enrichment tables named as examples in spec.md §3 (enrichment_country)
// and the category enrichment this repo adds in SPEC_FULL.md §3, plus the
// per-source metadata tables for randpub, arxiv and extpub (openalex has
// none).
func New() *Catalog {
	c := &Catalog{byName: map[string]Field{}, tables: map[string]string{}}

	c.tables[BaseTable] = BaseAlias
	base := []Field{
		{Name: "paper_id", Table: BaseTable, Column: "paper_id", Type: TypeUUID, Filterable: true, Sortable: true, Searchable: false},
		{Name: "source", Table: BaseTable, Column: "source", Type: TypeText, Filterable: true, Sortable: true, Searchable: false},
		{Name: "source_id", Table: BaseTable, Column: "source_id", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "title", Table: BaseTable, Column: "title", Type: TypeText, Filterable: true, Sortable: true, Searchable: true},
		{Name: "abstract", Table: BaseTable, Column: "abstract", Type: TypeText, Filterable: true, Sortable: false, Searchable: true},
		{Name: "authors", Table: BaseTable, Column: "authors", Type: TypeTextArray, Filterable: false, Sortable: false, Searchable: false},
		{Name: "primary_date", Table: BaseTable, Column: "primary_date", Type: TypeDate, Filterable: true, Sortable: true, Searchable: false},
		{Name: "publication_year", Table: BaseTable, Column: "publication_year", Type: TypeNumeric, Filterable: true, Sortable: true, Searchable: false},
		{Name: "doi", Table: BaseTable, Column: "doi", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "links", Table: BaseTable, Column: "links", Type: TypeText, Filterable: false, Sortable: false, Searchable: false},
		{Name: "embedding", Table: BaseTable, Column: "embedding", Type: TypeVector, Filterable: false, Sortable: false, Searchable: false},
		{Name: "embedding_2d", Table: BaseTable, Column: "embedding_2d", Type: TypePoint, Filterable: true, Sortable: false, Searchable: false},
		{Name: "created_at", Table: BaseTable, Column: "created_at", Type: TypeTimestamp, Filterable: true, Sortable: true, Searchable: false},
		{Name: "updated_at", Table: BaseTable, Column: "updated_at", Type: TypeTimestamp, Filterable: true, Sortable: true, Searchable: false},
	}
	for _, f := range base {
		f.Alias = BaseAlias
		c.add(f)
	}

	// enrichment_country — named directly in spec.md §3.
	c.registerEnrichmentTable("enrichment_country", "ec", []Field{
		{Name: "country_name", Column: "country_name", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "country_uschina", Column: "country_uschina", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "institution_name", Column: "institution_name", Type: TypeText, Filterable: true, Sortable: true, Searchable: true},
		{Name: "enrichment_method", Column: "enrichment_method", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
	})

	// enrichment_category — this repo's supplemental enrichment table,
	// grounded on the teacher's arXiv taxonomy (SPEC_FULL.md §3).
	c.registerEnrichmentTable("enrichment_category", "ecat", []Field{
		{Name: "category_id", Column: "category_id", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "category_name", Column: "category_name", Type: TypeText, Filterable: true, Sortable: true, Searchable: true},
		{Name: "category_group", Column: "category_group", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
	})

	// Per-source metadata tables, aliased rm/am/em per spec.md §4.3.2 example.
	c.registerEnrichmentTable("randpub_metadata", "rm", []Field{
		{Name: "report_number", Column: "report_number", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "program", Column: "program", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
	})
	c.registerEnrichmentTable("arxiv_metadata", "am", []Field{
		{Name: "primary_category", Column: "primary_category", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "comment", Column: "comment", Type: TypeText, Filterable: false, Sortable: false, Searchable: false},
	})
	c.registerEnrichmentTable("extpub_metadata", "em", []Field{
		{Name: "citing_doi", Column: "citing_doi", Type: TypeText, Filterable: true, Sortable: false, Searchable: false},
		{Name: "cites_randpub_id", Column: "cites_randpub_id", Type: TypeUUID, Filterable: true, Sortable: false, Searchable: false},
	})

	return c
}

func (c *Catalog) registerEnrichmentTable(table, alias string, fields []Field) {
	c.tables[table] = alias
	for _, f := range fields {
		f.Table = table
		f.Alias = alias
		c.add(f)
	}
}

func (c *Catalog) add(f Field) {
	c.byName[f.Name] = f
	c.byName[f.QualifiedName()] = f
}

// Lookup resolves a simple or qualified field name. Invariant 6 of
// spec.md §3: there is exactly one catalog entry for every visible field.
func (c *Catalog) Lookup(name string) (Field, bool) {
	f, ok := c.byName[strings.TrimSpace(name)]
	return f, ok
}

// AliasFor returns the stable alias assigned to a declaring table.
func (c *Catalog) AliasFor(table string) (string, bool) {
	a, ok := c.tables[table]
	return a, ok
}

// EnrichmentTables lists the name of every non-base table in the catalog,
// sorted alphabetically so the order is deterministic.
func (c *Catalog) EnrichmentTables() []string {
	tables := make([]string, 0, len(c.tables)-1)
	for t := range c.tables {
		if t != BaseTable {
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)
	return tables
}

// FieldsForTable returns every catalog field declared by a given table.
func (c *Catalog) FieldsForTable(table string) []Field {
	var out []Field
	seen := map[string]bool{}
	for _, f := range c.byName {
		if f.Table == table && !seen[f.Name] && !strings.Contains(f.Name, ".") {
			out = append(out, f)
			seen[f.Name] = true
		}
	}
	return out
}

// ErrUnknownField is returned by strict lookups (filter/sort references).
type ErrUnknownField struct{ Name string }

func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}
