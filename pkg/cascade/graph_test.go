package cascade

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

var userAnchors = []model.Anchor{
	{Table: "applicants", KeyColumn: "user_id"},
	{Table: "users", KeyColumn: "user_id"},
}

func edge(child, column, parent string) model.ForeignKeyEdge {
	return model.ForeignKeyEdge{ChildTable: child, ChildColumn: column, ParentTable: parent}
}

func indexOf(tables []string, table string) int {
	for i, t := range tables {
		if t == table {
			return i
		}
	}
	return -1
}

func TestBuildDeletionPlanOrdersChildrenFirst(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("applicants", "user_id", "users"),
		edge("applications", "user_id", "users"),
		edge("interviews", "user_id", "users"),
		edge("interviews", "application_id", "applications"),
		edge("offers", "interview_id", "interviews"),
		edge("offers", "user_id", "users"),
	}
	referencing := []model.ForeignKeyEdge{all[0], all[1], all[2], all[5]}

	plan := BuildDeletionPlan(userAnchors, referencing, all)

	assert.False(t, plan.Cyclic)
	assert.Empty(t, plan.CycleTables)
	assert.Equal(t, []string{"offers", "interviews", "applications"}, plan.Tables())
}

func TestBuildDeletionPlanExcludesAnchors(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("applicants", "user_id", "users"),
		edge("saved_jobs", "applicant_id", "applicants"),
	}

	plan := BuildDeletionPlan(userAnchors, all, all)

	assert.Equal(t, []string{"saved_jobs"}, plan.Tables())
	assert.Equal(t, []string{"applicant_id"}, plan.Steps[0].Columns)
}

func TestBuildDeletionPlanCollectsEveryReferencingColumn(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("messages", "sender_id", "users"),
		edge("messages", "recipient_id", "users"),
	}

	plan := BuildDeletionPlan(userAnchors, all, all)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, model.TableDeletion{Table: "messages", Columns: []string{"recipient_id", "sender_id"}}, plan.Steps[0])
}

func TestBuildDeletionPlanIgnoresSelfReferences(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("comments", "user_id", "users"),
		edge("comments", "parent_id", "comments"),
	}

	plan := BuildDeletionPlan(userAnchors, all[:1], all)

	assert.False(t, plan.Cyclic)
	assert.Equal(t, []string{"comments"}, plan.Tables())
}

func TestBuildDeletionPlanIgnoresNonCandidateEdges(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("applications", "user_id", "users"),
		edge("applications", "job_id", "jobs"),
		edge("jobs", "company_id", "companies"),
	}

	plan := BuildDeletionPlan(userAnchors, all, all)

	assert.Equal(t, []string{"applications"}, plan.Tables())
}

func TestBuildDeletionPlanCountsParallelEdgesOnce(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("threads", "user_id", "users"),
		edge("posts", "user_id", "users"),
		edge("posts", "thread_id", "threads"),
		edge("posts", "pinned_thread_id", "threads"),
	}

	plan := BuildDeletionPlan(userAnchors, all[:2], all)

	assert.False(t, plan.Cyclic)
	assert.Equal(t, []string{"posts", "threads"}, plan.Tables())
}

func TestBuildDeletionPlanCycleFallback(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("a", "user_id", "users"),
		edge("a", "b_id", "b"),
		edge("b", "user_id", "users"),
		edge("b", "a_id", "a"),
		edge("d", "user_id", "users"),
		edge("e", "user_id", "users"),
		edge("e", "d_id", "d"),
	}
	referencing := []model.ForeignKeyEdge{all[0], all[2], all[4], all[5]}

	plan := BuildDeletionPlan(userAnchors, referencing, all)

	assert.True(t, plan.Cyclic)
	assert.Equal(t, []string{"a", "b"}, plan.CycleTables)
	assert.Equal(t, []string{"a", "b", "e", "d"}, plan.Tables())
}

func TestBuildDeletionPlanCycleFallbackPrefersHigherInDegree(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("x", "user_id", "users"),
		edge("y", "user_id", "users"),
		edge("z", "user_id", "users"),
		edge("x", "y_id", "y"),
		edge("y", "x_id", "x"),
		edge("y", "z_id", "z"),
		edge("z", "y_id", "y"),
	}

	plan := BuildDeletionPlan(userAnchors, all[:3], all)

	assert.True(t, plan.Cyclic)
	// y has two unresolved parents, x and z have one each
	assert.Equal(t, []string{"y", "x", "z"}, plan.Tables())
}

func TestBuildDeletionPlanEmpty(t *testing.T) {
	plan := BuildDeletionPlan(userAnchors, nil, nil)

	assert.Empty(t, plan.Steps)
	assert.False(t, plan.Cyclic)
}

func TestBuildDeletionPlanRandomDAG(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(12)
		tables := make([]string, n)
		for i := range tables {
			tables[i] = fmt.Sprintf("t%02d", rng.Intn(1000)*100+i)
		}

		var referencing, all []model.ForeignKeyEdge
		for _, table := range tables {
			e := edge(table, "user_id", "users")
			referencing = append(referencing, e)
			all = append(all, e)
		}
		// parent index < child index keeps the graph acyclic
		for child := 1; child < n; child++ {
			for parent := 0; parent < child; parent++ {
				if rng.Intn(3) == 0 {
					all = append(all, edge(tables[child], "ref_"+tables[parent], tables[parent]))
				}
			}
		}
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

		plan := BuildDeletionPlan(userAnchors, referencing, all)
		order := plan.Tables()

		require.False(t, plan.Cyclic, "round %d", round)
		require.Len(t, order, n, "round %d", round)
		for _, e := range all {
			if e.ParentTable == "users" {
				continue
			}
			assert.Less(t, indexOf(order, e.ChildTable), indexOf(order, e.ParentTable),
				"round %d: %s must be deleted before %s", round, e.ChildTable, e.ParentTable)
		}
	}
}

func TestBuildDeletionPlanIsDeterministic(t *testing.T) {
	all := []model.ForeignKeyEdge{
		edge("c", "user_id", "users"),
		edge("a", "user_id", "users"),
		edge("b", "user_id", "users"),
	}
	reversed := []model.ForeignKeyEdge{all[2], all[1], all[0]}

	assert.Equal(t,
		BuildDeletionPlan(userAnchors, all, all).Tables(),
		BuildDeletionPlan(userAnchors, reversed, reversed).Tables())
}
