// pkg/cascade/graph.go
package cascade

import (
	"sort"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

// BuildDeletionPlan orders the tables that reference the anchors so that
// children are deleted before their parents.
//
// referencing holds the edges whose parent is an anchor; they decide which
// tables are candidates and which of their columns hold target ids. all holds
// every edge of the schema; only edges between two candidates shape the
// order. When the candidate graph has a cycle, the tables the sort could not
// place come first, ordered by descending remaining in-degree, followed by the
// placed tables. That order terminates but is not guaranteed to satisfy every
// constraint inside the cycle.
func BuildDeletionPlan(anchors []model.Anchor, referencing, all []model.ForeignKeyEdge) model.DeletionPlan {
	anchorSet := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		anchorSet[a.Table] = struct{}{}
	}

	columns := make(map[string]map[string]struct{})
	for _, e := range referencing {
		if _, ok := anchorSet[e.ParentTable]; !ok {
			continue
		}
		if _, isAnchor := anchorSet[e.ChildTable]; isAnchor {
			continue
		}
		if columns[e.ChildTable] == nil {
			columns[e.ChildTable] = make(map[string]struct{})
		}
		columns[e.ChildTable][e.ChildColumn] = struct{}{}
	}

	candidates := sortedKeys(columns)

	children := make(map[string]map[string]struct{}, len(candidates))
	inDegree := make(map[string]int, len(candidates))
	for _, c := range candidates {
		children[c] = make(map[string]struct{})
		inDegree[c] = 0
	}
	for _, e := range all {
		if e.ChildTable == e.ParentTable {
			continue
		}
		if _, ok := children[e.ParentTable]; !ok {
			continue
		}
		if _, ok := inDegree[e.ChildTable]; !ok {
			continue
		}
		if _, dup := children[e.ParentTable][e.ChildTable]; dup {
			continue
		}
		children[e.ParentTable][e.ChildTable] = struct{}{}
		inDegree[e.ChildTable]++
	}

	sorted := kahn(candidates, children, inDegree)

	var plan model.DeletionPlan
	order := make([]string, 0, len(candidates))

	if len(sorted) < len(candidates) {
		placed := make(map[string]struct{}, len(sorted))
		for _, t := range sorted {
			placed[t] = struct{}{}
		}
		var stalled []string
		for _, c := range candidates {
			if _, ok := placed[c]; !ok {
				stalled = append(stalled, c)
			}
		}
		sort.SliceStable(stalled, func(i, j int) bool {
			return inDegree[stalled[i]] > inDegree[stalled[j]]
		})
		plan.Cyclic = true
		plan.CycleTables = append([]string(nil), stalled...)
		sort.Strings(plan.CycleTables)
		order = append(order, stalled...)
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		order = append(order, sorted[i])
	}

	plan.Steps = make([]model.TableDeletion, len(order))
	for i, table := range order {
		plan.Steps[i] = model.TableDeletion{Table: table, Columns: sortedKeys(columns[table])}
	}
	return plan
}

// kahn returns the nodes in topological order, parents first. It stops early
// when the remaining nodes all sit on or behind a cycle; inDegree then holds
// the remaining in-degrees.
func kahn(nodes []string, children map[string]map[string]struct{}, inDegree map[string]int) []string {
	var queue []string
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	sorted := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)

		for _, child := range sortedKeys(children[n]) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return sorted
}

func sortedKeys[V any](set map[string]V) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
