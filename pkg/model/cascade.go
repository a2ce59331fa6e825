// pkg/model/cascade.go
package model

// Anchor is a table whose rows are the direct deletion target
type Anchor struct {
	Table     string
	KeyColumn string
}

// ForeignKeyEdge is one foreign key column discovered from the live catalog.
// Composite keys yield one edge per column.
type ForeignKeyEdge struct {
	ChildTable  string `db:"child_table"`
	ChildColumn string `db:"child_column"`
	ParentTable string `db:"parent_table"`
}

// TableDeletion is one step of a deletion plan: delete rows of Table where
// any of Columns holds a target id.
type TableDeletion struct {
	Table   string
	Columns []string
}

// DeletionPlan is the ordered list of candidate tables, children first
type DeletionPlan struct {
	Steps []TableDeletion

	// Cyclic is set when the candidate graph had a cycle and the fallback
	// ordering was used. CycleTables lists the tables the sort could not place.
	Cyclic      bool
	CycleTables []string
}

// Tables returns the table names of the plan in deletion order
func (p DeletionPlan) Tables() []string {
	tables := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		tables[i] = step.Table
	}
	return tables
}

// VerifyResult holds the post-delete verification query result
type VerifyResult struct {
	AnchorRemaining int64
}

// DeletionReport is returned after a committed cascade
type DeletionReport struct {
	DeletedCounts map[string]int64
	Verify        VerifyResult
	Plan          DeletionPlan
	// Order lists every table deleted from, candidates then anchors
	Order []string
}

// Total returns the number of rows deleted across all tables
func (r *DeletionReport) Total() int64 {
	var total int64
	for _, n := range r.DeletedCounts {
		total += n
	}
	return total
}

// DeletionPreview is a read-only estimate of what a cascade would delete
type DeletionPreview struct {
	Plan          DeletionPlan
	Order         []string
	MatchedCounts map[string]int64
	// SkippedTables were planned but could not be counted because they no
	// longer exist.
	SkippedTables []string
}
