package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/editor"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const editPrompt = "recipe> "

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [recipe]",
		Short: "Edit a recipe interactively",
		Long: `Open an interactive editor on a recipe file, a stored recipe id, or a new
untitled recipe.

Nodes are placed from the palette (see 'recipekit nodes'), connected, and
configured with line commands. Type 'help' inside the editor for the list.`,
		Example: `  # Start a new recipe
  recipekit edit

  # Edit a file
  recipekit edit recipes/forecast.yaml

  # Edit a stored recipe
  recipekit edit 3f2a9c4e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runEdit(cmd, target)
		},
	}
	return cmd
}

func runEdit(cmd *cobra.Command, target string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := NewCommandContext(cmd)

	store, cleanup, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := cmdCtx.RestoreSession(ctx, store)
	if err != nil {
		return err
	}

	settings, err := compileSettings(cmd, cmdCtx.Cfg.Compile)
	if err != nil {
		return err
	}

	rp := newREPL(ctx, cmdCtx.Renderer, store, editor.Options{
		Compiler: &state.RecordingCompiler{Next: cmdCtx.NewClient(sess), Store: store, Logger: cmdCtx.Logger},
		Settings: settings,
		Logger:   cmdCtx.Logger,
	})
	if target != "" {
		if err := rp.load(target); err != nil {
			return err
		}
	}

	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "edit_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          editPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newEditCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize editor: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Println(r.Styles().Bold.Render("recipekit editor") + " " + r.Styles().Muted.Render("("+rp.ed.Recipe().Name+")"))
	r.Muted("Type help for commands, quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		quit, err := rp.exec(line)
		if err != nil {
			r.Error("Error: " + err.Error())
		}
		if quit {
			return nil
		}
	}
}

// repl executes editor line commands. It holds no terminal state so it can
// be driven directly.
type repl struct {
	ctx   context.Context
	ed    *editor.Editor
	r     *output.Renderer
	store *state.SQLStore
	file  string
}

func newREPL(ctx context.Context, r *output.Renderer, store *state.SQLStore, opts editor.Options) *repl {
	rp := &repl{ctx: ctx, r: r, store: store}
	opts.Alerter = editor.AlertFunc(func(msg string) {
		_, _ = fmt.Fprintln(r.ErrWriter(), r.Styles().Error.Render(msg))
	})
	if store != nil {
		opts.OnSave = store.SaveRecipe
	}
	rp.ed = editor.New(opts, nil)
	// The terminal view is ready immediately, at the origin and unit zoom.
	rp.ed.SetViewport(core.Viewport{Zoom: 1})
	return rp
}

// exec runs one command line.
func (rp *repl) exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		printEditHelp(rp.r.Writer())
	case "add":
		return false, rp.add(args)
	case "drop":
		return false, rp.drop(args)
	case "connect":
		return false, rp.connect(args)
	case "move":
		return false, rp.move(args)
	case "label":
		return false, rp.label(args)
	case "describe":
		return false, rp.describe(args)
	case "set":
		return false, rp.set(args)
	case "unset":
		return false, rp.unset(args)
	case "rm":
		return false, rp.remove(args)
	case "rmedge":
		return false, rp.removeEdges(args)
	case "select":
		return false, rp.selectNode(args)
	case "name":
		if len(args) == 0 {
			return false, errors.New("usage: name <text>")
		}
		rp.ed.SetName(strings.Join(args, " "))
	case "desc":
		rp.ed.SetDescription(strings.Join(args, " "))
	case "viewport":
		return false, rp.viewport(args)
	case "settings":
		return false, rp.settings(args)
	case "show":
		rp.show()
	case "validate":
		rp.validate()
	case "lint":
		rp.lint()
	case "plan":
		return false, rp.plan()
	case "compile":
		return false, rp.compile()
	case "result":
		rp.result()
	case "clear":
		rp.ed.Clear()
		rp.file = ""
		rp.r.Success("Cleared")
	case "save":
		return false, rp.save()
	case "write":
		return false, rp.write(args)
	case "load":
		if len(args) != 1 {
			return false, errors.New("usage: load <file|id>")
		}
		return false, rp.load(args[0])
	case "recipes":
		return false, rp.recipes()
	default:
		return false, fmt.Errorf("unknown command %q (type help for commands)", name)
	}
	return false, nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out = append(out, f)
	}
	return out, nil
}

func (rp *repl) add(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errors.New("usage: add <type> [x y]")
	}
	kind, ok := core.ParseNodeKind(args[0])
	if !ok {
		return fmt.Errorf("%w: %q", editor.ErrUnknownNodeType, args[0])
	}
	var pos core.Position
	if len(args) == 3 {
		xy, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		pos = core.Position{X: xy[0], Y: xy[1]}
	}
	n, err := rp.ed.AddNode(kind, pos)
	if err != nil {
		return err
	}
	rp.r.Success("Added " + nodeLabel(n))
	return nil
}

// drop places a node the way the graph view does: from a palette token at
// a screen position. Unknown tokens leave the graph untouched.
func (rp *repl) drop(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: drop <token> <screen-x> <screen-y>")
	}
	xy, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	n, err := rp.ed.Drop(args[0], core.Position{X: xy[0], Y: xy[1]})
	switch {
	case errors.Is(err, editor.ErrUnknownNodeType), errors.Is(err, editor.ErrViewNotReady):
		rp.r.Muted("Nothing dropped: " + err.Error())
		return nil
	case err != nil:
		return err
	}
	rp.r.Success(fmt.Sprintf("Dropped %s at (%g, %g)", nodeLabel(n), n.Position.X, n.Position.Y))
	return nil
}

func (rp *repl) connect(args []string) error {
	if len(args) != 2 && len(args) != 4 {
		return errors.New("usage: connect <source> <target> [source-handle target-handle]")
	}
	c := core.Connection{Source: args[0], Target: args[1]}
	if len(args) == 4 {
		c.SourceHandle, c.TargetHandle = args[2], args[3]
	}
	e := rp.ed.Connect(c)
	rp.r.Success(fmt.Sprintf("Connected %s -> %s (%s)", e.Source, e.Target, e.ID))
	return nil
}

func (rp *repl) move(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: move <id> <x> <y>")
	}
	xy, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	return rp.ed.MoveNode(args[0], core.Position{X: xy[0], Y: xy[1]})
}

func (rp *repl) label(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: label <id> <text>")
	}
	text := strings.Join(args[1:], " ")
	return rp.ed.UpdateNode(args[0], editor.NodePatch{Label: &text})
}

func (rp *repl) describe(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: describe <id> [text]")
	}
	text := strings.Join(args[1:], " ")
	return rp.ed.UpdateNode(args[0], editor.NodePatch{Description: &text})
}

// nodeConfig returns a copy of a node's config.
func (rp *repl) nodeConfig(id string) (map[string]any, error) {
	n, ok := rp.ed.Recipe().NodeByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", editor.ErrNodeNotFound, id)
	}
	cfg := maps.Clone(n.Data.Config)
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg, nil
}

// set merges key=value pairs into a node's config. Values are parsed as
// YAML scalars, so numbers and booleans keep their type.
func (rp *repl) set(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: set <id> key=value...")
	}
	cfg, err := rp.nodeConfig(args[0])
	if err != nil {
		return err
	}
	for _, kv := range args[1:] {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid assignment %q (want key=value)", kv)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		cfg[key] = value
	}
	return rp.ed.UpdateNode(args[0], editor.NodePatch{Config: cfg})
}

func (rp *repl) unset(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: unset <id> key...")
	}
	cfg, err := rp.nodeConfig(args[0])
	if err != nil {
		return err
	}
	for _, key := range args[1:] {
		delete(cfg, key)
	}
	return rp.ed.UpdateNode(args[0], editor.NodePatch{Config: cfg})
}

func (rp *repl) remove(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rm <id>...")
	}
	n := rp.ed.RemoveNodes(args...)
	if n == 0 {
		return fmt.Errorf("%w: %s", editor.ErrNodeNotFound, strings.Join(args, ", "))
	}
	rp.r.Success(fmt.Sprintf("Removed %d node(s)", n))
	return nil
}

func (rp *repl) removeEdges(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rmedge <id>...")
	}
	n := rp.ed.RemoveEdges(args...)
	if n == 0 {
		return fmt.Errorf("no edge named %s", strings.Join(args, ", "))
	}
	rp.r.Success(fmt.Sprintf("Removed %d edge(s)", n))
	return nil
}

func (rp *repl) selectNode(args []string) error {
	if len(args) == 0 {
		rp.ed.ClearSelection()
		return nil
	}
	if err := rp.ed.Select(args[0]); err != nil {
		return err
	}
	snap := rp.ed.Snapshot()
	n := snap.SelectedNode
	styles := rp.r.Styles()
	rp.r.Println(nodeGlyph(rp.r, n.Type) + " " + styles.Bold.Render(nodeLabel(*n)))
	rp.r.StatusLine("Type", output.Title(n.Type.String()))
	rp.r.StatusLine("Position", fmt.Sprintf("(%g, %g)", n.Position.X, n.Position.Y))
	if n.Data.Description != "" {
		rp.r.StatusLine("Description", n.Data.Description)
	}
	rp.r.StatusLine("Config", formatConfig(n.Data.Config))
	return nil
}

func (rp *repl) viewport(args []string) error {
	if len(args) != 3 {
		v := rp.ed.Snapshot().Viewport
		rp.r.StatusLine("Viewport", fmt.Sprintf("x=%g y=%g zoom=%g", v.X, v.Y, v.Zoom))
		return nil
	}
	vals, err := parseFloats(args)
	if err != nil {
		return err
	}
	rp.ed.SetViewport(core.Viewport{X: vals[0], Y: vals[1], Zoom: vals[2]})
	return nil
}

func (rp *repl) settings(args []string) error {
	s := rp.ed.Settings()
	for _, a := range args {
		if level, err := core.ParseOptimizationLevel(a); err == nil {
			s.OptimizationLevel = level
			continue
		}
		rt, err := core.ParseTargetRuntime(a)
		if err != nil {
			return fmt.Errorf("%q is neither an optimization level nor a runtime", a)
		}
		s.TargetRuntime = rt
	}
	if len(args) > 0 {
		if err := rp.ed.SetSettings(s); err != nil {
			return err
		}
	}
	rp.r.StatusLine("Optimization", string(s.OptimizationLevel))
	rp.r.StatusLine("Runtime", string(s.TargetRuntime))
	return nil
}

func (rp *repl) show() {
	snap := rp.ed.Snapshot()
	rc := snap.Recipe
	styles := rp.r.Styles()

	rp.r.Header(1, rc.Name)
	if rc.Description != "" {
		rp.r.Muted(rc.Description)
	}
	rp.r.StatusLine("State", snap.State.String())
	if rc.ID != "" {
		rp.r.StatusLine("Stored as", styles.ID.Render(rc.ID))
	}
	if rp.file != "" {
		rp.r.StatusLine("File", rp.file)
	}

	if len(rc.Nodes) == 0 {
		rp.r.Muted("No nodes. Use add or drop to place one.")
		return
	}

	rows := make([][]string, 0, len(rc.Nodes))
	for _, n := range rc.Nodes {
		mark := ""
		if snap.SelectedNode != nil && snap.SelectedNode.ID == n.ID {
			mark = "*"
		}
		rows = append(rows, []string{
			mark + n.ID,
			output.Title(n.Type.String()),
			n.Data.Label,
			fmt.Sprintf("(%g, %g)", n.Position.X, n.Position.Y),
			truncateOneLine(formatConfig(n.Data.Config), 60),
		})
	}
	rp.r.Println("")
	rp.r.Table([]string{"ID", "Type", "Label", "Position", "Config"}, rows)

	if len(rc.Edges) > 0 {
		edges := make([][]string, 0, len(rc.Edges))
		for _, e := range rc.Edges {
			edges = append(edges, []string{e.ID, e.Source, e.Target})
		}
		rp.r.Println("")
		rp.r.Table([]string{"Edge", "Source", "Target"}, edges)
	}
}

func (rp *repl) validate() {
	errs := rp.ed.Validate()
	if len(errs) == 0 {
		rp.r.Success("Recipe is valid")
		return
	}
	for _, msg := range errs {
		rp.r.Println(rp.r.Styles().StatusFailed.String() + " " + msg)
	}
}

func (rp *repl) lint() {
	findings := recipe.Lint(rp.ed.Recipe())
	if len(findings) == 0 {
		rp.r.Success("No findings")
		return
	}
	styles := rp.r.Styles()
	for _, f := range findings {
		rp.r.Printf("%s %s %s\n", getSeverityStyle(styles, f.Severity).Render(f.Severity.String()), styles.Muted.Render("["+f.Code+"]"), f.Message)
	}
}

func (rp *repl) plan() error {
	rc := rp.ed.Recipe()
	levels, err := recipe.Plan(rc)
	if err != nil {
		return err
	}
	planText(rp.r, rc, levels)
	return nil
}

func (rp *repl) compile() error {
	var spinner *output.Spinner
	if rp.r.IsTTY() {
		spinner = rp.r.NewSpinner("Compiling...")
		spinner.Start()
	}
	res, err := rp.ed.Compile(rp.ctx)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Compilation failed")
		}
		var verr *editor.ValidationError
		if errors.As(err, &verr) {
			rp.validate()
			return nil
		}
		if errors.Is(err, editor.ErrCompileInProgress) || errors.Is(err, editor.ErrCompileSuperseded) {
			rp.r.Muted(err.Error())
			return nil
		}
		if errors.Is(err, editor.ErrNoCompiler) {
			return err
		}
		// The alerter already reported compiler failures.
		return nil
	}
	if spinner != nil {
		spinner.Success("Compiled")
	}
	compileText(rp.r, output.CompileOutput{Settings: rp.ed.Settings(), Result: res}, "")
	return nil
}

func (rp *repl) result() {
	res := rp.ed.Result()
	if res == nil {
		rp.r.Muted("No compile result yet")
		return
	}
	compileText(rp.r, output.CompileOutput{Settings: rp.ed.Settings(), Result: res}, "")
}

func (rp *repl) save() error {
	if rp.store == nil {
		return errors.New("no state store configured")
	}
	saved, err := rp.ed.Save(rp.ctx)
	if err != nil {
		return err
	}
	rp.r.Success(fmt.Sprintf("Saved %s (%s)", saved.Name, saved.ID))
	return nil
}

func (rp *repl) write(args []string) error {
	path := rp.file
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("usage: write <file>")
	}
	if err := recipe.Save(path, rp.ed.Recipe()); err != nil {
		return err
	}
	rp.file = path
	rp.r.Success("Wrote " + path)
	return nil
}

// load opens a recipe file, or a stored recipe when no such file exists.
func (rp *repl) load(target string) error {
	if _, err := os.Stat(target); err == nil {
		rc, err := recipe.Load(target)
		if err != nil {
			return err
		}
		rp.ed.Reset(rc)
		rp.file = target
		rp.r.Success(fmt.Sprintf("Loaded %s (%d nodes)", rc.Name, len(rc.Nodes)))
		return nil
	}
	if rp.store == nil {
		return fmt.Errorf("no such file: %s", target)
	}
	rc, err := rp.store.GetRecipe(rp.ctx, target)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("no file or stored recipe named %s", target)
		}
		return err
	}
	rp.ed.Reset(rc)
	rp.file = ""
	rp.r.Success(fmt.Sprintf("Loaded %s (%d nodes)", rc.Name, len(rc.Nodes)))
	return nil
}

func (rp *repl) recipes() error {
	if rp.store == nil {
		return errors.New("no state store configured")
	}
	list, err := rp.store.ListRecipes(rp.ctx)
	if err != nil {
		return err
	}
	renderRecipeTable(rp.r, list)
	return nil
}

func printEditHelp(w io.Writer) {
	help := `
Graph:
  add <type> [x y]              Place a node at a flow position
  drop <token> <sx> <sy>        Place a node at a screen position
  connect <src> <dst> [sh th]   Connect two nodes
  move <id> <x> <y>             Move a node
  label <id> <text>             Set a node's label
  describe <id> [text]          Set a node's description
  set <id> key=value...         Set node config values
  unset <id> key...             Remove node config values
  rm <id>...                    Remove nodes and their edges
  rmedge <id>...                Remove edges
  select [id]                   Select a node (no id clears)

Recipe:
  name <text>                   Rename the recipe
  desc [text]                   Set the recipe description
  show                          Show nodes and edges
  validate                      Show compile-blocking errors
  lint                          Show lint findings
  plan                          Show execution levels
  settings [level] [runtime]    Show or change compile settings
  compile                       Compile with the compile service
  result                        Show the last compile result
  viewport [x y zoom]           Show or set the view transform

Files:
  write [file]                  Write the recipe to a file
  load <file|id>                Open a file or a stored recipe
  save                          Store the recipe in the state database
  recipes                       List stored recipes
  clear                         Start over with an empty recipe
  quit                          Exit

Node types: dataSource, processor, aiModel, quantum, output, conditional, integration
`
	_, _ = fmt.Fprintln(w, help)
}

// newEditCompleter completes command names and node type tokens.
func newEditCompleter() *readline.PrefixCompleter {
	kinds := make([]readline.PrefixCompleterInterface, 0, len(core.AllKinds()))
	for _, t := range catalog.All() {
		kinds = append(kinds, readline.PcItem(t.Kind.String()))
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem("add", kinds...),
		readline.PcItem("drop", kinds...),
		readline.PcItem("settings",
			readline.PcItem(string(core.OptimizationBasic)),
			readline.PcItem(string(core.OptimizationOptimized)),
			readline.PcItem(string(core.OptimizationAggressive)),
			readline.PcItem(string(core.RuntimePython)),
			readline.PcItem(string(core.RuntimeJavaScript)),
			readline.PcItem(string(core.RuntimeQuantum)),
		),
	}
	for _, name := range []string{
		"connect", "move", "label", "describe", "set", "unset", "rm", "rmedge", "select",
		"name", "desc", "show", "validate", "lint", "plan", "compile", "result", "viewport",
		"write", "load", "save", "recipes", "clear", "help", "quit",
	} {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
