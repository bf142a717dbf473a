package sqlgen_test

import (
	"database/sql"

	. "gopkg.in/check.v1"
	_ "modernc.org/sqlite"

	"github.com/zephyrtronium/sqlexpr"
	"github.com/zephyrtronium/sqlexpr/sqlgen"
)

type DBSuite struct {
	db *sql.DB
}

var _ = Suite(&DBSuite{})

func (s *DBSuite) SetUpTest(c *C) {
	db, err := sql.Open("sqlite", ":memory:")
	c.Assert(err, IsNil)
	_, err = db.Exec(`
CREATE TABLE Data (
	id integer,
	transactions integer,
	amount real,
	name text
);
INSERT INTO Data VALUES (1, 10, 100, 'Fred');
INSERT INTO Data VALUES (2, 20, 150, 'Mark');
INSERT INTO Data VALUES (3, 30, 200, 'Mary');
`)
	c.Assert(err, IsNil)
	s.db = db
}

func (s *DBSuite) TearDownTest(c *C) {
	c.Assert(s.db.Close(), IsNil)
}

func (s *DBSuite) ids(c *C, src string) []int64 {
	schema := &sqlgen.Schema{
		Table:   "Data",
		Columns: []string{"id", "transactions", "amount", "name"},
	}
	var g sqlgen.Compiler
	q, err := g.Build(src, schema)
	c.Assert(err, IsNil)
	rows, err := s.db.Query(`SELECT id FROM "Data" WHERE `+q.SQL+` ORDER BY id`, q.Args...)
	c.Assert(err, IsNil)
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		c.Assert(rows.Scan(&id), IsNil)
		ids = append(ids, id)
	}
	c.Assert(rows.Err(), IsNil)
	return ids
}

func (s *DBSuite) TestSelectExpression(c *C) {
	e, err := sqlexpr.ParseString("(amount / transactions) * 2")
	c.Assert(err, IsNil)
	var g sqlgen.Compiler
	q, err := g.Select(e, &sqlgen.Schema{Table: "Data"})
	c.Assert(err, IsNil)
	rows, err := s.db.Query(q.SQL+` ORDER BY id`, q.Args...)
	c.Assert(err, IsNil)
	defer rows.Close()
	var got []float64
	for rows.Next() {
		var x float64
		c.Assert(rows.Scan(&x), IsNil)
		got = append(got, x)
	}
	c.Assert(rows.Err(), IsNil)
	c.Assert(got, HasLen, 3)
	c.Check(got[0], Equals, 20.0)
	c.Check(got[1], Equals, 15.0)
	c.Check(got[2] > 13.33 && got[2] < 13.34, Equals, true)
}

func (s *DBSuite) TestWhere(c *C) {
	tests := []struct {
		src string
		ids []int64
	}{
		{"amount / transactions > 7", []int64{1, 2}},
		{"id = 2 or id = 3", []int64{2, 3}},
		{"not (id = 2)", []int64{1, 3}},
		{"lower(name) = 'mary'", []int64{3}},
		{"-amount < -120 and transactions != 30", []int64{2}},
		{"abs(transactions - 25) <= 5", []int64{2, 3}},
		{"id = 4", nil},
	}
	for _, t := range tests {
		c.Logf("%s", t.src)
		c.Check(s.ids(c, t.src), DeepEquals, t.ids)
	}
}

func (s *DBSuite) TestRejectedColumn(c *C) {
	schema := &sqlgen.Schema{Table: "Data", Columns: []string{"id"}}
	var g sqlgen.Compiler
	_, err := g.Build("secret = 1", schema)
	c.Assert(err, ErrorMatches, `unknown column "secret"`)
}
