package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/recipekit/internal/cli/config"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// pingTimeout bounds the compile service reachability check.
const pingTimeout = 5 * time.Second

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project, state store and compile service",
		Long: `Run a health check of the recipekit setup.

The doctor command checks:
- Configuration (config file found and valid)
- State (store opens and is migrated, a token is stored for the profile)
- Service (the compile service answers)
- Recipes (every file under recipes/ validates and lints clean)

It reports a health score (0-100) and recommendations. The command fails
when any check reports an error.`,
		Example: `  # Run health check
  recipekit doctor

  # Output as JSON
  recipekit doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	ConfigFile    string `json:"config_file,omitempty"`
	APIURL        string `json:"api_url"`
	Profile       string `json:"profile"`
	StateDialect  string `json:"state_dialect"`
	RecipeFiles   int    `json:"recipe_files"`
	StoredRecipes int    `json:"stored_recipes"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func newCheck(id, name, group string) HealthCheck {
	return HealthCheck{ID: id, Name: name, Group: group, Status: checkPass}
}

func (c *HealthCheck) fail(status string, details ...string) {
	if c.Status != checkError {
		c.Status = status
	}
	c.IssueCount += max(len(details), 1)
	c.Details = append(c.Details, details...)
}

func runDoctor(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	out := &DoctorOutput{
		Summary: ProjectSummary{
			ConfigFile:   config.GetConfigFileUsed(),
			APIURL:       cfg.APIURL,
			Profile:      cfg.Profile,
			StateDialect: string(state.DialectFor(cfg.StateDSN())),
		},
	}

	out.HealthChecks = append(out.HealthChecks, checkConfig(out.Summary.ConfigFile))
	out.HealthChecks = append(out.HealthChecks, checkState(ctx, cmdCtx, &out.Summary)...)
	out.HealthChecks = append(out.HealthChecks, checkService(ctx, cmdCtx))
	out.HealthChecks = append(out.HealthChecks, checkRecipes(cfg.ProjectRoot, &out.Summary)...)

	slices.SortStableFunc(out.HealthChecks, func(a, b HealthCheck) int {
		return strings.Compare(a.Group, b.Group)
	})

	errorCount := 0
	for _, c := range out.HealthChecks {
		out.IssueCount += c.IssueCount
		if c.Status == checkError {
			errorCount++
		}
	}
	out.Score = calculateHealthScore(out.HealthChecks)
	out.Recommendations = generateRecommendations(out.HealthChecks)

	var err error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}
	if errorCount > 0 {
		return fmt.Errorf("%d check(s) failed", errorCount)
	}
	return nil
}

func checkConfig(configFile string) HealthCheck {
	c := newCheck("CF01", "Config file", "configuration")
	if configFile == "" {
		c.fail(checkWarn, "no recipekit.yaml found, using defaults")
	}
	return c
}

func checkState(ctx context.Context, cmdCtx *CommandContext, summary *ProjectSummary) []HealthCheck {
	store := newCheck("ST01", "State store", "state")
	token := newCheck("ST02", "Session token", "state")

	s, cleanup, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		store.fail(checkError, err.Error())
		token.fail(checkWarn, "state store unavailable")
		return []HealthCheck{store, token}
	}
	defer cleanup()

	if v, err := s.MigrationVersion(ctx); err != nil {
		store.fail(checkError, err.Error())
	} else {
		store.Details = append(store.Details, fmt.Sprintf("schema version %d", v))
	}
	if list, err := s.ListRecipes(ctx); err == nil {
		summary.StoredRecipes = len(list)
	}

	sess, err := cmdCtx.RestoreSession(ctx, s)
	switch {
	case err != nil:
		token.fail(checkError, err.Error())
	case !sess.Authenticated():
		token.fail(checkWarn, fmt.Sprintf("no token stored for profile %q", cmdCtx.Cfg.Profile))
	}
	return []HealthCheck{store, token}
}

func checkService(ctx context.Context, cmdCtx *CommandContext) HealthCheck {
	c := newCheck("SV01", "Compile service reachable", "service")
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := cmdCtx.NewClient(nil).Ping(ctx); err != nil {
		c.fail(checkError, fmt.Sprintf("%s: %v", cmdCtx.Cfg.APIURL, err))
	}
	return c
}

// recipeFiles lists the recipe files under dir/recipes.
func recipeFiles(dir string) []string {
	var files []string
	_ = filepath.WalkDir(filepath.Join(dir, "recipes"), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	return files
}

func checkRecipes(root string, summary *ProjectSummary) []HealthCheck {
	valid := newCheck("RC01", "Recipes valid", "recipes")
	lint := newCheck("RC02", "Recipes lint clean", "recipes")

	files := recipeFiles(root)
	summary.RecipeFiles = len(files)
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		res := validateFile(path)
		for _, msg := range res.Errors {
			valid.fail(checkError, rel+": "+msg)
		}
		for _, f := range res.Findings {
			status := checkWarn
			if f.Severity == core.SeverityError {
				status = checkError
			}
			lint.fail(status, fmt.Sprintf("%s: [%s] %s", rel, f.Code, f.Message))
		}
	}
	return []HealthCheck{valid, lint}
}

func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case checkError:
			score -= 25
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

func generateRecommendations(checks []HealthCheck) []string {
	var recs []string
	for _, c := range checks {
		if c.Status == checkPass {
			continue
		}
		if rec := getRecommendation(c.ID); rec != "" {
			recs = append(recs, rec)
		}
	}
	return recs
}

func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Create recipekit.yaml with 'recipekit init' to pin the API URL and state path"
	case "ST01":
		return "Check state_path / database_url and that the database is reachable"
	case "ST02":
		return "Run 'recipekit login' to store a token for this profile"
	case "SV01":
		return "Check api_url, or run 'recipekit serve --stub-compiler' for a local compile endpoint"
	case "RC01":
		return "Fix validation errors with 'recipekit validate' before compiling"
	case "RC02":
		return "Review lint findings; cycles and invalid node config fail at compile time"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	// Header
	r.Println("")
	r.Println(styles.Header1.Render("recipekit Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	// Summary
	r.Println(styles.Header2.Render("Summary"))
	configFile := out.Summary.ConfigFile
	if configFile == "" {
		configFile = "(defaults)"
	}
	r.Printf("   Config: %s | Profile: %s\n", configFile, out.Summary.Profile)
	r.Printf("   API: %s | State: %s\n", out.Summary.APIURL, out.Summary.StateDialect)
	r.Printf("   Recipe files: %d | Stored recipes: %d\n", out.Summary.RecipeFiles, out.Summary.StoredRecipes)
	r.Println("")

	// Health Checks grouped by category
	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.StatusFailed.String()
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.ID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	// Health Score
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	// Recommendations
	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# recipekit Health Report")
	r.Println("")

	r.Println("## Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Config", out.Summary.ConfigFile))
	r.Println(output.FormatKeyValue("Profile", out.Summary.Profile))
	r.Println(output.FormatKeyValue("API", out.Summary.APIURL))
	r.Println(output.FormatKeyValue("State", out.Summary.StateDialect))
	r.Println(output.FormatKeyValue("Recipe files", out.Summary.RecipeFiles))
	r.Println(output.FormatKeyValue("Stored recipes", out.Summary.StoredRecipes))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.ID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
