package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodesCommand_JSON(t *testing.T) {
	setupProject(t, "http://localhost:1")

	stdout, _, err := execute(t, NewNodesCommand(), "--defaults")
	require.NoError(t, err)

	var out output.NodesOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Nodes, 7)
	assert.Equal(t, "dataSource", out.Nodes[0].Type)

	for _, n := range out.Nodes {
		assert.NotEmpty(t, n.Label, "%s label", n.Type)
		assert.NotEmpty(t, n.Category, "%s category", n.Type)
	}
}

func TestNodesCommand_Markdown(t *testing.T) {
	setupProject(t, "http://localhost:1", "markdown")

	stdout, _, err := execute(t, NewNodesCommand())
	require.NoError(t, err)

	testutil.AssertNoANSI(t, stdout)
	testutil.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, "# Node Types")
	assert.Contains(t, stdout, "| quantum |")
	assert.NotContains(t, stdout, "Default Config")
}
