package recipe

import (
	"testing"

	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/stretchr/testify/assert"
)

func node(id string, kind core.NodeKind) core.Node {
	return core.Node{ID: id, Type: kind}
}

func edge(source, target string) core.Edge {
	return core.Edge{ID: source + "->" + target, Source: source, Target: target}
}

func TestValidate_EmptyGraph(t *testing.T) {
	errs := Validate(nil, nil)

	assert.NotEmpty(t, errs)
	assert.Contains(t, errs, MsgNoNodes)
	assert.Equal(t, "Recipe must contain at least one node.", errs[0])
}

func TestValidate_OutputRequired(t *testing.T) {
	nodes := []core.Node{node("src", core.KindDataSource)}
	assert.Contains(t, Validate(nodes, nil), MsgNoOutput)

	nodes = append(nodes, node("out", core.KindOutput))
	edges := []core.Edge{edge("src", "out")}
	assert.NotContains(t, Validate(nodes, edges), MsgNoOutput)
}

func TestValidate_DataSourceRequired(t *testing.T) {
	nodes := []core.Node{node("out", core.KindOutput)}
	assert.Contains(t, Validate(nodes, nil), MsgNoDataSource)

	nodes = append(nodes, node("src", core.KindDataSource))
	assert.NotContains(t, Validate(nodes, nil), MsgNoDataSource)
}

func TestValidate_Disconnected(t *testing.T) {
	nodes := []core.Node{
		node("src", core.KindDataSource),
		node("out", core.KindOutput),
	}

	errs := Validate(nodes, nil)
	var disconnected []string
	for _, e := range errs {
		if e == DisconnectedMessage(2) {
			disconnected = append(disconnected, e)
		}
	}
	assert.Len(t, disconnected, 1)
	assert.Contains(t, disconnected[0], "2")

	errs = Validate(nodes, []core.Edge{edge("src", "out")})
	assert.Empty(t, errs)
}

func TestValidate_SingleNodeIsNeverDisconnected(t *testing.T) {
	errs := Validate([]core.Node{node("src", core.KindDataSource)}, nil)
	assert.Equal(t, []string{MsgNoOutput}, errs)
}

func TestValidate_CountsOnlyUntouchedNodes(t *testing.T) {
	nodes := []core.Node{
		node("src", core.KindDataSource),
		node("proc", core.KindProcessor),
		node("out", core.KindOutput),
		node("ai", core.KindAIModel),
	}
	edges := []core.Edge{edge("src", "proc")}

	assert.Equal(t, []string{DisconnectedMessage(2)}, Validate(nodes, edges))
	assert.Equal(t, []string{"out", "ai"}, Disconnected(nodes, edges))
}

func TestValidate_SelfLoopCountsAsConnected(t *testing.T) {
	nodes := []core.Node{
		node("src", core.KindDataSource),
		node("out", core.KindOutput),
	}
	edges := []core.Edge{edge("src", "src"), edge("out", "out")}

	assert.Empty(t, Validate(nodes, edges))
}
