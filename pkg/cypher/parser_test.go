package cypher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (p:Person) RETURN p.name`, nil)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	m, ok := q.Clauses[0].(MatchClause)
	require.True(t, ok)
	require.Len(t, m.Pattern.Elements, 1)
	node := m.Pattern.Elements[0].(NodePattern)
	require.Equal(t, "p", node.Variable)
	require.Equal(t, []string{"Person"}, node.Labels)

	ret, ok := q.Clauses[1].(ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 1)
	require.Equal(t, "p.name", ret.Items[0].Text)
}

func TestParseInlineWhereOnMatch(t *testing.T) {
	q, err := Parse(`MATCH (p:Person) WHERE p.age > 30 RETURN p`, nil)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	require.NotNil(t, m.Where)
	bin := m.Where.Expression.(BinaryOpExpr)
	require.Equal(t, OpGreaterThan, bin.Op)
}

func TestParseRelationshipPatternDirections(t *testing.T) {
	cases := map[string]RelationshipDirection{
		`MATCH (a)-[r:KNOWS]->(b) RETURN a`: DirOutgoing,
		`MATCH (a)<-[r:KNOWS]-(b) RETURN a`: DirIncoming,
		`MATCH (a)-[r:KNOWS]-(b) RETURN a`:  DirBoth,
	}
	for src, want := range cases {
		q, err := Parse(src, nil)
		require.NoError(t, err, src)
		m := q.Clauses[0].(MatchClause)
		rel := m.Pattern.Elements[1].(RelationshipPattern)
		require.Equal(t, want, rel.Direction, src)
		require.Equal(t, []string{"KNOWS"}, rel.Types)
	}
}

func TestParseZeroOrMoreQuantifier(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS*]->(b) RETURN a`, nil)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	rel := m.Pattern.Elements[1].(RelationshipPattern)
	require.NotNil(t, rel.Quantifier)
	require.Equal(t, 0, rel.Quantifier.Min)
	require.Equal(t, -1, rel.Quantifier.Max)
}

func TestParseBoundedQuantifier(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS{1,3}]->(b) RETURN a`, nil)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	rel := m.Pattern.Elements[1].(RelationshipPattern)
	require.NotNil(t, rel.Quantifier)
	require.Equal(t, 1, rel.Quantifier.Min)
	require.Equal(t, 3, rel.Quantifier.Max)
}

func TestParsePropertyMapOnNode(t *testing.T) {
	q, err := Parse(`MATCH (p:Person {name: "alice"}) RETURN p`, nil)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	node := m.Pattern.Elements[0].(NodePattern)
	require.NotNil(t, node.Properties)
	lit := node.Properties.Properties["name"].(LiteralExpr)
	require.Equal(t, "alice", lit.Value.Str)
}

func TestParseReturnDistinctOrderBySkipLimit(t *testing.T) {
	q, err := Parse(`MATCH (p:Person) RETURN DISTINCT p.name AS n ORDER BY n DESC SKIP 1 LIMIT 10`, nil)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 5)

	ret := q.Clauses[1].(ReturnClause)
	require.True(t, ret.Distinct)
	require.Equal(t, "n", ret.Items[0].Alias)

	ob := q.Clauses[2].(OrderByClause)
	require.True(t, ob.Items[0].Descending)

	skip := q.Clauses[3].(SkipClause)
	lit := skip.Count.(LiteralExpr)
	require.EqualValues(t, 1, lit.Value.Int)

	limit := q.Clauses[4].(LimitClause)
	lit2 := limit.Count.(LiteralExpr)
	require.EqualValues(t, 10, lit2.Value.Int)
}

func TestParseCaseExpression(t *testing.T) {
	q, err := Parse(`MATCH (p) RETURN CASE WHEN p.age > 18 THEN "adult" ELSE "minor" END`, nil)
	require.NoError(t, err)
	ret := q.Clauses[1].(ReturnClause)
	ce := ret.Items[0].Expression.(CaseExpr)
	require.Len(t, ce.WhenClauses, 1)
	require.NotNil(t, ce.Else)
}

func TestParseListAndFunctionCall(t *testing.T) {
	q, err := Parse(`MATCH (p) RETURN count(p), [1, 2, 3]`, nil)
	require.NoError(t, err)
	ret := q.Clauses[1].(ReturnClause)
	fn := ret.Items[0].Expression.(FunctionCallExpr)
	require.Equal(t, "count", fn.Name)
	list := ret.Items[1].Expression.(ListExpr)
	require.Len(t, list.Items, 3)
}

func TestParseParameter(t *testing.T) {
	q, err := Parse(`MATCH (p:Person) WHERE p.name = $name RETURN p`, map[string]any{"name": "alice"})
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	bin := m.Where.Expression.(BinaryOpExpr)
	param := bin.Right.(ParameterExpr)
	require.Equal(t, "name", param.Name)
}

func TestParseErrorReportsLineAndColumn(t *testing.T) {
	_, err := Parse("MATCH (p:Person)\nRETURN p.\n", nil)
	require.Error(t, err)
	nerr, ok := err.(*nexuserr.Error)
	require.True(t, ok)
	require.Equal(t, nexuserr.KindSyntaxError, nerr.Kind)
	require.Equal(t, 3, nerr.Line)
}

func TestParseUnknownKeywordIsFatal(t *testing.T) {
	_, err := Parse(`MATCH (p) FROBNICATE p`, nil)
	require.Error(t, err)
}

func TestParseMultiHopPattern(t *testing.T) {
	q, err := Parse(`MATCH (a:Person)-[:KNOWS]->(b:Person)-[:WORKS_AT]->(c:Company) RETURN c`, nil)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	require.Len(t, m.Pattern.Elements, 5)
}
