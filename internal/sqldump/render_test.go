package sqldump

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/condsql/internal/ast"
	"github.com/roach88/condsql/internal/dialect"
	"github.com/roach88/condsql/internal/schema"
	"github.com/roach88/condsql/internal/testutil"
)

func ordersSource() *ast.Source {
	return ast.TableSource(schema.NewName("", "Orders"), "basetbl")
}

func TestRenderCondition(t *testing.T) {
	src := ordersSource()
	amount := ast.Col(src, "Amount")
	name := ast.Col(src, "Name")

	testCases := []struct {
		name string
		dl   *dialect.Dialect
		cond ast.Condition
		want string
	}{
		{"is null", dialect.SQLite, &ast.IsNull{Expr: name}, "basetbl.Name IS NULL"},
		{"is not null", dialect.SQLite, &ast.IsNotNull{Expr: name}, "basetbl.Name IS NOT NULL"},
		{"comparison", dialect.SQLite, ast.Cmp(amount, ast.OpGe, ast.Lit(5)), "basetbl.Amount >= 5"},
		{"not like", dialect.SQLite, ast.Cmp(name, ast.OpNotLike, ast.Lit("a%")), "basetbl.Name NOT LIKE 'a%'"},
		{"not", dialect.SQLite, &ast.Not{Cond: &ast.IsNull{Expr: name}}, "NOT (basetbl.Name IS NULL)"},
		{"between", dialect.SQLite, &ast.Between{Expr: amount, Lower: ast.Lit(1), Upper: ast.Lit(4)}, "basetbl.Amount BETWEEN 1 AND 4"},
		{"not between", dialect.SQLite, &ast.Between{Expr: amount, Lower: ast.Lit(1), Upper: ast.Lit(4), Not: true}, "basetbl.Amount NOT BETWEEN 1 AND 4"},
		{"contains", dialect.SQLite, &ast.StringTest{Kind: ast.Contains, Expr: name, Value: "ab"}, "basetbl.Name LIKE '%ab%'"},
		{"starts with", dialect.SQLite, &ast.StringTest{Kind: ast.StartsWith, Expr: name, Value: "ab"}, "basetbl.Name LIKE 'ab%'"},
		{"ends with", dialect.SQLite, &ast.StringTest{Kind: ast.EndsWith, Expr: name, Value: "ab"}, "basetbl.Name LIKE '%ab'"},
		{"escaped pattern", dialect.SQLite, &ast.StringTest{Kind: ast.StartsWith, Expr: name, Value: "50%"}, `basetbl.Name LIKE '50\%%' ESCAPE '\'`},
		{"escaped pattern mysql", dialect.MySQL, &ast.StringTest{Kind: ast.StartsWith, Expr: name, Value: "a_b"}, `basetbl.Name LIKE 'a\\_b%' ESCAPE '\\'`},
		{"empty and", dialect.SQLite, &ast.And{}, "(1=1)"},
		{"empty or", dialect.SQLite, &ast.Or{}, "(1=0)"},
		{"false", dialect.SQLite, &ast.False{}, "(1=0)"},
		{"single and", dialect.SQLite, ast.AndOf(&ast.IsNull{Expr: name}), "basetbl.Name IS NULL"},
		{
			"nested",
			dialect.SQLite,
			ast.OrOf(ast.AndOf(&ast.IsNull{Expr: name}, ast.Cmp(amount, ast.OpLt, ast.Lit(1.5))), &ast.False{}),
			"((basetbl.Name IS NULL AND basetbl.Amount < 1.5) OR (1=0))",
		},
		{"raw", dialect.SQLite, &ast.RawCondition{SQL: "x = y"}, "x = y"},
		{"reserved column", dialect.SQLServer, ast.Cmp(ast.Col(src, "Order"), ast.OpEq, ast.Lit(1)), "basetbl.[Order] = 1"},
		{"bool literal", dialect.Postgres, ast.Cmp(ast.Col(src, "Active"), ast.OpEq, ast.Lit(true)), "basetbl.Active = TRUE"},
		{
			"time literal",
			dialect.SQLite,
			ast.Cmp(ast.Col(src, "Created"), ast.OpGe, ast.Lit(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))),
			"basetbl.Created >= '2024-03-05 00:00:00'",
		},
		{"placeholder", dialect.SQLite, ast.Cmp(&ast.Placeholder{}, ast.OpGt, ast.Lit(0)), "? > 0"},
		{"unaliased table", dialect.SQLite, &ast.IsNull{Expr: ast.Col(ast.TableSource(schema.NewName("s", "T"), ""), "c")}, "s.T.c IS NULL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderCondition(tc.dl, tc.cond)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRenderCondition_Functions(t *testing.T) {
	created := ast.Col(ordersSource(), "Created")
	name := ast.Col(ordersSource(), "Name")

	testCases := []struct {
		name string
		dl   *dialect.Dialect
		expr ast.Expression
		want string
	}{
		{"trim sqlite", dialect.SQLite, ast.Call(ast.FuncTrim, name), "TRIM(basetbl.Name)"},
		{"trim sqlserver", dialect.SQLServer, ast.Call(ast.FuncTrim, name), "LTRIM(RTRIM(basetbl.Name))"},
		{"year sqlite", dialect.SQLite, ast.Call(ast.FuncYear, created), "CAST(strftime('%Y', basetbl.Created) AS INTEGER)"},
		{"weekday mysql", dialect.MySQL, ast.Call(ast.FuncWeekday, created), "(DAYOFWEEK(basetbl.Created) - 1)"},
		{"weekday sqlserver", dialect.SQLServer, ast.Call(ast.FuncWeekday, created), "((DATEPART(weekday, basetbl.Created) + @@DATEFIRST - 1) % 7)"},
		{"month postgres", dialect.Postgres, ast.Call(ast.FuncMonth, created), "EXTRACT(MONTH FROM basetbl.Created)"},
		{"datepart alias", dialect.SQLServer, ast.Call(ast.FuncDatePart, &ast.RawIdent{Name: "yy"}, created), "DATEPART(year, basetbl.Created)"},
		{"datepart string", dialect.Postgres, ast.Call(ast.FuncDatePart, &ast.StringLit{Value: "day"}, created), "EXTRACT(DAY FROM basetbl.Created)"},
		{"unknown function", dialect.SQLite, ast.Call("COALESCE", name, &ast.StringLit{Value: ""}), "COALESCE(basetbl.Name, '')"},
		{"count", dialect.SQLite, &ast.Count{}, "COUNT(*)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderCondition(tc.dl, ast.Cmp(tc.expr, ast.OpEq, ast.Lit(1)))
			require.NoError(t, err)
			assert.Equal(t, tc.want+" = 1", got)
		})
	}
}

func TestRenderSelect(t *testing.T) {
	src := ordersSource()
	sel := ast.NewSelect(src)
	sel.TopRecords = 10
	sel.AddAndCondition(ast.Cmp(ast.Col(src, "Amount"), ast.OpGt, ast.Lit(5)))

	got, err := RenderCommand(dialect.SQLite, sel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM Orders basetbl\nWHERE basetbl.Amount > 5\nLIMIT 10", got)

	got, err = RenderCommand(dialect.SQLServer, sel, WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP 10 * FROM Orders basetbl WHERE basetbl.Amount > 5", got)
}

func TestRenderSelect_Clauses(t *testing.T) {
	src := ordersSource()
	sel := &ast.Select{
		Distinct: true,
		Columns: []ast.ResultField{
			{Expr: ast.Col(src, "CustomerId")},
			{Expr: &ast.Count{}, Alias: "n"},
		},
		From:    []*ast.FromItem{ast.NewFromItem(src)},
		GroupBy: []ast.Expression{ast.Col(src, "CustomerId")},
		Having:  ast.AndOf(ast.Cmp(&ast.Count{}, ast.OpGt, ast.Lit(1))),
		OrderBy: []ast.SortItem{{Expr: ast.Col(src, "CustomerId"), Desc: true}},
	}

	got, err := RenderCommand(dialect.Postgres, sel, WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT basetbl.CustomerId, COUNT(*) AS n FROM Orders basetbl "+
		"GROUP BY basetbl.CustomerId HAVING COUNT(*) > 1 ORDER BY basetbl.CustomerId DESC", got)
}

func TestRenderExists(t *testing.T) {
	db := testutil.Fixture()
	orders := db.FindTable(schema.NewName("", "Orders"))
	customers := ast.TableSource(schema.NewName("", "Customers"), "c")
	inner := ast.TableSource(orders.FullName, "o")

	sub := ast.NewSelect(inner)
	sub.AddAndCondition(ast.Cmp(ast.Col(inner, "CustomerId"), ast.OpEq, ast.Col(customers, "Id")))
	cond := &ast.Exists{Select: sub, Not: true}

	got, err := RenderCondition(dialect.SQLite, cond)
	require.NoError(t, err)
	assert.Equal(t, "NOT EXISTS (SELECT * FROM Orders o WHERE o.CustomerId = c.Id)", got)
}

// joinedDelete deletes orders of customers from a country, which needs two
// joins through the foreign keys.
func joinedDelete(t *testing.T) *ast.Delete {
	t.Helper()
	db := testutil.Fixture()
	orders := db.FindTable(schema.NewName("", "Orders"))
	src := ordersSource()
	from := ast.NewFromItem(src)

	ref, _, err := from.ResolveColumn(db, orders, src, schema.ParseIdentifier("CustomerId.CountryId.Name"))
	require.NoError(t, err)

	return &ast.Delete{
		Target: src,
		From:   []*ast.FromItem{from},
		Where:  ast.AndOf(ast.Cmp(ref, ast.OpEq, ast.Lit("X"))),
	}
}

const joinedFrom = "Orders basetbl " +
	"LEFT JOIN Customers _REF_CustomerId ON basetbl.CustomerId = _REF_CustomerId.Id " +
	"LEFT JOIN Countries _REF_CustomerId_CountryId ON _REF_CustomerId.CountryId = _REF_CustomerId_CountryId.Id " +
	"WHERE _REF_CustomerId_CountryId.Name = 'X'"

func TestRenderDelete_Forms(t *testing.T) {
	oneLine := WithFormat(FormatOptions{OneLine: true})

	testCases := []struct {
		name string
		dl   *dialect.Dialect
		want string
	}{
		{"delete from", dialect.MySQL, "DELETE basetbl FROM " + joinedFrom},
		{"rowid sqlite", dialect.SQLite, "DELETE FROM Orders WHERE rowid IN ( SELECT basetbl.rowid FROM " + joinedFrom + " )"},
		{"rowid postgres", dialect.Postgres, "DELETE FROM Orders WHERE ctid IN ( SELECT basetbl.ctid FROM " + joinedFrom + " )"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderCommand(tc.dl, joinedDelete(t), oneLine)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRenderDelete_Unsupported(t *testing.T) {
	noRowID := dialect.SQLite.Clone()
	noRowID.Name = "norowid"
	noRowID.Caps.RowID = ""

	_, err := RenderCommand(noRowID, joinedDelete(t))
	var unsupported *UnsupportedOperationError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	assert.Equal(t, "norowid", unsupported.Dialect)
	assert.Equal(t, "delete with joins", unsupported.Operation)
}

func TestRenderDelete_Simple(t *testing.T) {
	src := ordersSource()
	del := &ast.Delete{
		Target: src,
		From:   []*ast.FromItem{ast.NewFromItem(src)},
		Where:  ast.AndOf(ast.Cmp(ast.Col(src, "Amount"), ast.OpGt, ast.Lit(5))),
	}
	for _, dl := range []*dialect.Dialect{dialect.SQLite, dialect.MySQL, dialect.Postgres, dialect.SQLServer} {
		got, err := RenderCommand(dl, del, WithFormat(FormatOptions{OneLine: true}))
		require.NoError(t, err, dl.Name)
		assert.Equal(t, "DELETE FROM Orders WHERE Amount > 5", got, dl.Name)
	}
}

func TestRenderUpdate(t *testing.T) {
	src := ordersSource()
	simple := &ast.Update{
		Target: src,
		Fields: []ast.UpdateField{{Column: "Note", Expr: ast.Lit("x")}},
		From:   []*ast.FromItem{ast.NewFromItem(src)},
		Where:  ast.AndOf(ast.Cmp(ast.Col(src, "Amount"), ast.OpGt, ast.Lit(5))),
	}
	got, err := RenderCommand(dialect.SQLite, simple, WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE Orders SET Note = 'x' WHERE Amount > 5", got)

	del := joinedDelete(t)
	joined := &ast.Update{
		Target: del.Target,
		Fields: []ast.UpdateField{{Column: "Note", Expr: ast.Lit(nil)}},
		From:   del.From,
		Where:  del.Where,
	}
	got, err = RenderCommand(dialect.SQLServer, joined, WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE basetbl SET Note = NULL FROM "+joinedFrom, got)

	got, err = RenderCommand(dialect.SQLite, joined, WithFormat(FormatOptions{OneLine: true}))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE Orders SET Note = NULL WHERE rowid IN ( SELECT basetbl.rowid FROM "+joinedFrom+" )", got)

	_, err = RenderCommand(dialect.MySQL, joined)
	var unsupported *UnsupportedOperationError
	assert.True(t, errors.As(err, &unsupported))
}

func TestRenderInsert(t *testing.T) {
	from := ast.TableSource(schema.NewName("", "OrdersArchive"), "a")
	sel := ast.NewSelect(from)
	sel.Columns = []ast.ResultField{{Expr: ast.Col(from, "Id")}, {Expr: ast.Lit(nil)}}
	ins := &ast.Insert{Table: schema.NewName("", "Orders"), Columns: []string{"Id", "Note"}, Select: sel}

	got, err := RenderCommand(dialect.SQLite, ins)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO Orders (Id, Note)\nSELECT a.Id, NULL\nFROM OrdersArchive a", got)
}

func TestRender_UnknownNodes(t *testing.T) {
	_, err := RenderCondition(dialect.SQLite, ast.Cmp(ast.Lit(1), ast.BinaryOp("~"), ast.Lit(2)))
	assert.Error(t, err)

	_, err = RenderCondition(dialect.SQLite, &ast.StringTest{Kind: "middle", Expr: ast.Lit("a"), Value: "b"})
	assert.Error(t, err)

	_, err = RenderCondition(dialect.SQLite, ast.Cmp(ast.Lit(struct{}{}), ast.OpEq, ast.Lit(1)))
	assert.Error(t, err)
}

// codecTree mixes the node kinds a serialized condition usually carries.
func codecTree() ast.Condition {
	src := ordersSource()
	inner := ast.TableSource(schema.NewName("", "Customers"), "c")
	sub := ast.NewSelect(inner)
	sub.AddAndCondition(ast.Cmp(ast.Col(inner, "Id"), ast.OpEq, ast.Col(src, "CustomerId")))

	return ast.AndOf(
		ast.OrOf(
			&ast.StringTest{Kind: ast.StartsWith, Expr: ast.Col(src, "Note"), Value: "50%"},
			&ast.IsNull{Expr: ast.Col(src, "Note")},
		),
		&ast.Between{Expr: ast.Col(src, "Amount"), Lower: ast.Lit(1), Upper: ast.Lit(2.5), Not: true},
		ast.Cmp(ast.Call(ast.FuncWeekday, ast.Col(src, "Created")), ast.OpEq, ast.Lit(3)),
		ast.Cmp(ast.Col(src, "Created"), ast.OpLt, ast.Lit(time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC))),
		&ast.Not{Cond: ast.Cmp(ast.Col(src, "Active"), ast.OpEq, ast.Lit(false))},
		&ast.Exists{Select: sub},
		ast.Cmp(ast.Call(ast.FuncTrim, ast.Col(src, "Note")), ast.OpNe, &ast.StringLit{Value: "it's"}),
	)
}

func TestRenderCondition_SameAfterCodecRoundTrip(t *testing.T) {
	codecs := []struct {
		name      string
		marshal   func(ast.Node) ([]byte, error)
		unmarshal func([]byte) (ast.Node, error)
	}{
		{"json", ast.MarshalJSON, ast.UnmarshalJSON},
		{"msgpack", ast.MarshalMsgpack, ast.UnmarshalMsgpack},
	}
	dialects := []*dialect.Dialect{dialect.SQLite, dialect.Postgres, dialect.MySQL, dialect.SQLServer}

	for _, c := range codecs {
		for _, dl := range dialects {
			t.Run(c.name+"/"+dl.Name, func(t *testing.T) {
				tree := codecTree()
				want, err := RenderCondition(dl, tree)
				require.NoError(t, err)

				data, err := c.marshal(tree)
				require.NoError(t, err)
				node, err := c.unmarshal(data)
				require.NoError(t, err)
				decoded, ok := node.(ast.Condition)
				require.True(t, ok, "decoded %T is not a condition", node)

				got, err := RenderCondition(dl, decoded)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}
