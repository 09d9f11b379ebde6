package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/dag"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"go.starlark.net/syntax"
)

// Finding codes.
const (
	CodeDuplicateID      = "duplicate-id"
	CodeDanglingEdge     = "dangling-edge"
	CodeSelfLoop         = "self-loop"
	CodeCycle            = "cycle"
	CodeInvalidConfig    = "invalid-config"
	CodeBadCondition     = "bad-condition"
	CodeUnreachableSink  = "unreachable-output"
	CodeEmptyDestination = "empty-destination"
)

// Lint returns non-blocking findings about a recipe, ordered by code then message.
func Lint(r *core.Recipe) []core.Finding {
	var findings []core.Finding

	seen := make(map[string]int)
	for _, n := range r.Nodes {
		seen[n.ID]++
	}
	for id, count := range seen {
		if count > 1 {
			findings = append(findings, core.Finding{
				Code:     CodeDuplicateID,
				Severity: core.SeverityError,
				Message:  fmt.Sprintf("node id %q is used by %d nodes", id, count),
				NodeIDs:  []string{id},
			})
		}
	}

	g, problems := dag.FromRecipe(r.Nodes, r.Edges)
	for _, p := range problems {
		if p.Source == p.Target {
			findings = append(findings, core.Finding{
				Code:     CodeSelfLoop,
				Severity: core.SeverityWarning,
				Message:  fmt.Sprintf("edge %s connects node %q to itself", p.EdgeID, p.Source),
				NodeIDs:  []string{p.Source},
			})
			continue
		}
		findings = append(findings, core.Finding{
			Code:     CodeDanglingEdge,
			Severity: core.SeverityError,
			Message:  fmt.Sprintf("edge %s: %v", p.EdgeID, p.Err),
		})
	}

	if hasCycle, path := g.HasCycle(); hasCycle {
		findings = append(findings, core.Finding{
			Code:     CodeCycle,
			Severity: core.SeverityWarning,
			Message:  "cycle: " + strings.Join(path, " -> "),
			NodeIDs:  path[:len(path)-1],
		})
	}

	for _, id := range g.Unreachable(core.KindDataSource, core.KindOutput) {
		findings = append(findings, core.Finding{
			Code:     CodeUnreachableSink,
			Severity: core.SeverityInfo,
			Message:  fmt.Sprintf("output %q is not fed by any data source", id),
			NodeIDs:  []string{id},
		})
	}

	for _, n := range r.Nodes {
		findings = append(findings, lintNode(n)...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Code != findings[j].Code {
			return findings[i].Code < findings[j].Code
		}
		return findings[i].Message < findings[j].Message
	})
	return findings
}

func lintNode(n core.Node) []core.Finding {
	cfg, err := catalog.DecodeConfig(n.Type, n.Data.Config)
	if err != nil {
		return []core.Finding{{
			Code:     CodeInvalidConfig,
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("node %q: %v", n.ID, err),
			NodeIDs:  []string{n.ID},
		}}
	}

	switch c := cfg.(type) {
	case *catalog.ConditionalConfig:
		if err := CheckCondition(c.Condition); err != nil {
			return []core.Finding{{
				Code:     CodeBadCondition,
				Severity: core.SeverityWarning,
				Message:  fmt.Sprintf("node %q: %v", n.ID, err),
				NodeIDs:  []string{n.ID},
			}}
		}
	case *catalog.OutputConfig:
		if strings.TrimSpace(c.Destination) == "" {
			return []core.Finding{{
				Code:     CodeEmptyDestination,
				Severity: core.SeverityHint,
				Message:  fmt.Sprintf("output %q has no destination", n.ID),
				NodeIDs:  []string{n.ID},
			}}
		}
	}
	return nil
}

// CheckCondition parses a conditional node expression.
// Conditions use Starlark expression syntax, e.g. `score > 0.5 and region == "eu"`.
func CheckCondition(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("condition is empty")
	}
	if _, err := syntax.ParseExpr("condition", expr, 0); err != nil { //nolint:staticcheck // SA1019: FileOptions migration pending upstream
		return fmt.Errorf("invalid condition: %w", err)
	}
	return nil
}
