package cascade

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

const userSchema = `
CREATE TABLE users (user_id TEXT PRIMARY KEY, name TEXT);
CREATE TABLE applicants (applicant_id INTEGER PRIMARY KEY, user_id TEXT NOT NULL REFERENCES users(user_id));
CREATE TABLE applications (id INTEGER PRIMARY KEY, user_id TEXT NOT NULL REFERENCES users(user_id));
CREATE TABLE interviews (
	id INTEGER PRIMARY KEY,
	application_id INTEGER REFERENCES applications(id),
	user_id TEXT REFERENCES users(user_id)
);
CREATE TABLE messages (
	id INTEGER PRIMARY KEY,
	sender_id TEXT REFERENCES users(user_id),
	recipient_id TEXT REFERENCES users(user_id)
);

INSERT INTO users VALUES ('u1', 'Ada'), ('u2', 'Grace'), ('u3', 'Linus');
INSERT INTO applicants VALUES (1, 'u1'), (2, 'u2');
INSERT INTO applications VALUES (1, 'u1'), (2, 'u2'), (3, 'u3');
INSERT INTO interviews VALUES (10, 1, 'u1'), (11, 3, 'u3');
INSERT INTO messages VALUES (100, 'u1', 'u3'), (101, 'u3', 'u2'), (102, 'u3', 'u3');
`

func openTestDB(t *testing.T, schema string) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cascade.db")
	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func newTestPlanner(db *sqlx.DB) *Planner {
	return NewPlanner(db, connector.DialectSQLite, SQLiteIntrospector{}, zap.NewNop()).WithInsertBatch(2)
}

func rowCount(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+connector.QuoteIdentifier(table)))
	return n
}

func tableCounts(t *testing.T, db *sqlx.DB) map[string]int {
	counts := make(map[string]int)
	for _, table := range []string{"users", "applicants", "applications", "interviews", "messages"} {
		counts[table] = rowCount(t, db, table)
	}
	return counts
}

func tempTables(t *testing.T, db *sqlx.DB) []string {
	t.Helper()
	var names []string
	require.NoError(t, db.Select(&names, "SELECT name FROM sqlite_temp_master WHERE type = 'table'"))
	return names
}

func TestPlanAndExecuteDeletesDependents(t *testing.T) {
	db := openTestDB(t, userSchema)
	planner := newTestPlanner(db)

	report, err := planner.PlanAndExecute(context.Background(), []string{"u1", "u2", "u1"}, userAnchors)
	require.NoError(t, err)

	assert.Equal(t, []string{"interviews", "messages", "applications", "applicants", "users"}, report.Order)
	assert.Equal(t, map[string]int64{
		"interviews":   1,
		"messages":     2,
		"applications": 2,
		"applicants":   2,
		"users":        2,
	}, report.DeletedCounts)
	assert.Equal(t, int64(9), report.Total())
	assert.Zero(t, report.Verify.AnchorRemaining)
	assert.False(t, report.Plan.Cyclic)

	assert.Equal(t, map[string]int{
		"users":        1,
		"applicants":   0,
		"applications": 1,
		"interviews":   1,
		"messages":     1,
	}, tableCounts(t, db))
	assert.Empty(t, tempTables(t, db))
}

func TestPlanAndExecuteRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t, userSchema+`
CREATE TRIGGER messages_guard BEFORE DELETE ON messages
BEGIN
	SELECT RAISE(ABORT, 'boom');
END;
`)
	before := tableCounts(t, db)

	report, err := newTestPlanner(db).PlanAndExecute(context.Background(), []string{"u1", "u2"}, userAnchors)
	require.Error(t, err)
	assert.Nil(t, report)

	var rbErr *RollbackError
	require.True(t, errors.As(err, &rbErr))
	assert.Equal(t, StageDelete, rbErr.Stage)
	assert.Equal(t, "messages", rbErr.Table)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, before, tableCounts(t, db))
	assert.Empty(t, tempTables(t, db))
}

func TestPlanAndExecuteEmptyTargetSet(t *testing.T) {
	db := openTestDB(t, userSchema)
	before := tableCounts(t, db)

	report, err := newTestPlanner(db).PlanAndExecute(context.Background(), nil, userAnchors)
	require.NoError(t, err)

	assert.Len(t, report.Order, 5)
	for table, n := range report.DeletedCounts {
		assert.Zero(t, n, table)
	}
	assert.Zero(t, report.Verify.AnchorRemaining)
	assert.Equal(t, before, tableCounts(t, db))
}

func TestPlanAndExecuteUnknownIDs(t *testing.T) {
	db := openTestDB(t, userSchema)

	report, err := newTestPlanner(db).PlanAndExecute(context.Background(), []string{"nobody"}, userAnchors)
	require.NoError(t, err)

	assert.Zero(t, report.Total())
	assert.Equal(t, 3, rowCount(t, db, "users"))
}

func TestPlanAndExecuteMatchesUUIDRenderings(t *testing.T) {
	db := openTestDB(t, `
CREATE TABLE accounts (account_id TEXT PRIMARY KEY);
CREATE TABLE sessions (id INTEGER PRIMARY KEY, account_id TEXT REFERENCES accounts(account_id));

INSERT INTO accounts VALUES
	('6f9619ff-8b86-d011-b42d-00c04fc964ff'),
	('3F2504E0-4F89-11D3-9A0C-0305E82C3301'),
	('ada'),
	('ADA');
INSERT INTO sessions VALUES
	(1, '6f9619ff-8b86-d011-b42d-00c04fc964ff'),
	(2, '3F2504E0-4F89-11D3-9A0C-0305E82C3301'),
	(3, 'ADA');
`)
	anchors := []model.Anchor{{Table: "accounts", KeyColumn: "account_id"}}
	planner := newTestPlanner(db)

	preview, err := planner.Preview(context.Background(), []string{"6F9619FF-8B86-D011-B42D-00C04FC964FF", "ada"}, anchors)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"sessions": 1, "accounts": 2}, preview.MatchedCounts)

	report, err := planner.PlanAndExecute(context.Background(), []string{
		"6F9619FF-8B86-D011-B42D-00C04FC964FF",
		"{3f2504e0-4f89-11d3-9a0c-0305e82c3301}",
		"ada",
	}, anchors)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"sessions": 2, "accounts": 3}, report.DeletedCounts)

	// non-UUID ids still compare exactly
	var left []string
	require.NoError(t, db.Select(&left, "SELECT account_id FROM accounts"))
	assert.Equal(t, []string{"ADA"}, left)
	assert.Equal(t, 1, rowCount(t, db, "sessions"))
}

func TestMatchKeys(t *testing.T) {
	keys := matchKeys([]string{"u1", "U1", "u1", "6F9619FF-8B86-D011-B42D-00C04FC964FF"})
	assert.Equal(t, []string{
		"u1",
		"U1",
		"6F9619FF-8B86-D011-B42D-00C04FC964FF",
		"6f9619ff-8b86-d011-b42d-00c04fc964ff",
	}, keys)
	assert.Empty(t, matchKeys(nil))
}

func TestPlanAndExecuteMutualForeignKeys(t *testing.T) {
	db := openTestDB(t, `
CREATE TABLE users (user_id TEXT PRIMARY KEY);
CREATE TABLE a (id INTEGER PRIMARY KEY, user_id TEXT REFERENCES users(user_id), b_id INTEGER REFERENCES b(id));
CREATE TABLE b (id INTEGER PRIMARY KEY, user_id TEXT REFERENCES users(user_id), a_id INTEGER REFERENCES a(id));

INSERT INTO users VALUES ('u1'), ('u2');
INSERT INTO a VALUES (1, 'u1', NULL), (2, 'u2', NULL);
INSERT INTO b VALUES (1, 'u1', NULL), (2, 'u2', NULL);
`)
	anchors := []model.Anchor{{Table: "users", KeyColumn: "user_id"}}

	report, err := newTestPlanner(db).PlanAndExecute(context.Background(), []string{"u1"}, anchors)
	require.NoError(t, err)

	assert.True(t, report.Plan.Cyclic)
	assert.Equal(t, []string{"a", "b"}, report.Plan.CycleTables)
	assert.Equal(t, []string{"a", "b", "users"}, report.Order)
	assert.Equal(t, 1, rowCount(t, db, "a"))
	assert.Equal(t, 1, rowCount(t, db, "b"))
	assert.Equal(t, 1, rowCount(t, db, "users"))
}

func TestPlanAndExecuteMissingAnchorAborts(t *testing.T) {
	db := openTestDB(t, userSchema)
	before := tableCounts(t, db)

	anchors := []model.Anchor{
		{Table: "legacy_profiles", KeyColumn: "user_id"},
		{Table: "users", KeyColumn: "user_id"},
	}
	_, err := newTestPlanner(db).PlanAndExecute(context.Background(), []string{"u1"}, anchors)
	require.Error(t, err)

	var rbErr *RollbackError
	require.True(t, errors.As(err, &rbErr))
	assert.Equal(t, StageDelete, rbErr.Stage)
	assert.Equal(t, "legacy_profiles", rbErr.Table)
	assert.True(t, IsUndefinedTable(err))
	assert.Equal(t, before, tableCounts(t, db))
}

func TestPlanAndExecuteRequiresAnchors(t *testing.T) {
	db := openTestDB(t, userSchema)

	_, err := newTestPlanner(db).PlanAndExecute(context.Background(), []string{"u1"}, nil)
	assert.ErrorIs(t, err, ErrNoAnchors)
}

func TestPlanAndExecuteCancelledContext(t *testing.T) {
	db := openTestDB(t, userSchema)
	before := tableCounts(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPlanner(db).PlanAndExecute(ctx, []string{"u1"}, userAnchors)
	require.Error(t, err)
	assert.Equal(t, before, tableCounts(t, db))
}

func TestPreviewCountsWithoutDeleting(t *testing.T) {
	db := openTestDB(t, userSchema)
	before := tableCounts(t, db)

	anchors := []model.Anchor{
		{Table: "applicants", KeyColumn: "user_id"},
		{Table: "legacy_profiles", KeyColumn: "user_id"},
		{Table: "users", KeyColumn: "user_id"},
	}
	preview, err := newTestPlanner(db).Preview(context.Background(), []string{"u1", "u2", "u3"}, anchors)
	require.NoError(t, err)

	assert.Equal(t, []string{"legacy_profiles"}, preview.SkippedTables)
	assert.Equal(t, []string{"interviews", "messages", "applications", "applicants", "users"}, preview.Order)
	assert.Equal(t, map[string]int64{
		"interviews":   2,
		"messages":     3,
		"applications": 3,
		"applicants":   2,
		"users":        3,
	}, preview.MatchedCounts)
	assert.Equal(t, before, tableCounts(t, db))
}

func TestRollbackErrorFormatting(t *testing.T) {
	err := rollbackErr(StageVerify, "", ErrVerificationFailed)
	assert.Equal(t, "cascade rolled back at verify: anchor rows remain after delete", err.Error())
	assert.ErrorIs(t, err, ErrVerificationFailed)

	err = rollbackErr(StageDelete, "messages", errors.New("boom"))
	assert.Equal(t, "cascade rolled back at delete (table messages): boom", err.Error())
	assert.Equal(t, "unknown(42)", Stage(42).String())
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, IsUndefinedTable(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, IsUndefinedTable(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUndefinedTable(errors.New("SQL logic error: no such table: ghosts (1)")))
	assert.False(t, IsUndefinedTable(nil))
}

func TestNewIntrospector(t *testing.T) {
	i, err := NewIntrospector(connector.DialectPostgres, "")
	require.NoError(t, err)
	assert.Equal(t, "public", i.(*PostgresIntrospector).schema())

	_, err = NewIntrospector(connector.DialectSnowflake, "")
	assert.Error(t, err)
}

func TestPostgresIntrospectorQuery(t *testing.T) {
	i := &PostgresIntrospector{Schema: "refopen"}
	sqlStr, args, err := i.baseQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlStr, "JOIN LATERAL unnest(con.conkey)")
	assert.Contains(t, sqlStr, "ns.nspname = $1")
	assert.Contains(t, sqlStr, "pns.oid = parent.relnamespace")
	assert.Contains(t, sqlStr, "pns.nspname = $2")
	assert.Equal(t, []interface{}{"refopen", "refopen"}, args)
}
