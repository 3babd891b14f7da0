package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/crucible/search/engine"
	"github.com/wricardo/crucible/search/puzzle"
	"github.com/wricardo/crucible/search/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Crucible Path Solver",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Crucible Path Solver - MCP Interface

This is a thin client that proxies all requests to the REST API server.

The solver finds the cheapest route from the top-left to the bottom-right
cell of a grid of digit costs. Entering a cell costs its digit. The route
may not move more than max_run times in a row in one direction, must move
at least min_run times before turning, and may never reverse.

AVAILABLE TOOLS:
- solve_grid: Solve a grid you supply (rows of digits)
- solve_puzzle: Solve a stored puzzle, optionally overriding its settings
- list_puzzles: List stored puzzles
- get_run: Get a recorded run with its moves
- list_runs: List recorded runs
- solver_instructions: Detailed rules and examples`),
	)

	c.registerTools()
}

var overrideProperties = map[string]interface{}{
	"max_run": map[string]interface{}{
		"type":        "integer",
		"description": "Maximum consecutive moves in one direction (default 3)",
	},
	"min_run": map[string]interface{}{
		"type":        "integer",
		"description": "Minimum consecutive moves before turning or stopping (default 1)",
	},
	"start_directions": map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string", "enum": []string{"up", "down", "left", "right"}},
		"description": "Headings the search may start with (default right and down)",
	},
	"origin_cost_counted": map[string]interface{}{
		"type":        "boolean",
		"description": "Add the start cell's cost to the total",
	},
	"timeout_ms": map[string]interface{}{
		"type":        "integer",
		"description": "Abort the search after this many milliseconds",
	},
}

func withOverrides(props map[string]interface{}) map[string]interface{} {
	for k, v := range overrideProperties {
		props[k] = v
	}
	return props
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_grid",
		Description: "Find the minimal-cost constrained path through a grid of digits",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withOverrides(map[string]interface{}{
				"layout": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Grid rows, each a string of digits 0-9 of equal length",
				},
			}),
			Required: []string{"layout"},
		},
	}, c.handleSolveGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_puzzle",
		Description: "Solve a stored puzzle by ID, optionally overriding its settings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withOverrides(map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID from list_puzzles",
				},
			}),
			Required: []string{"puzzle_id"},
		},
	}, c.handleSolvePuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List stored puzzles with their sizes and settings",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Get a recorded run including its moves and rendered path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID returned by a solve",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded runs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle": map[string]interface{}{
					"type":        "string",
					"description": "Only runs of this puzzle",
				},
				"outcome": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"solved", "no_path", "cancelled", "failed"},
					"description": "Only runs with this outcome",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs to return (default 20)",
				},
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_instructions",
		Description: "Get the solver rules, settings and examples",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSolverInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (*int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	v := int(f)
	return &v, nil
}

func stringsArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		// Accept a newline separated grid as a single string
		return strings.Fields(v), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be an array of strings", key)
}

// solveRequestFromArgs reads the override arguments shared by both solve tools
func solveRequestFromArgs(args map[string]interface{}) (service.SolveRequest, error) {
	var req service.SolveRequest
	var err error

	if req.MaxRun, err = intArg(args, "max_run"); err != nil {
		return req, err
	}
	if req.MinRun, err = intArg(args, "min_run"); err != nil {
		return req, err
	}
	if req.StartDirections, err = stringsArg(args, "start_directions"); err != nil {
		return req, err
	}
	if v, ok := args["origin_cost_counted"].(bool); ok {
		req.OriginCostCounted = &v
	}
	timeout, err := intArg(args, "timeout_ms")
	if err != nil {
		return req, err
	}
	if timeout != nil {
		req.TimeoutMs = *timeout
	}
	return req, nil
}

func (c *Client) handleSolveGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req, err := solveRequestFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.Layout, err = stringsArg(args, "layout"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(req.Layout) == 0 {
		return mcp.NewToolResultError("layout is required"), nil
	}

	var result service.SolveResult
	if err := c.apiCall(ctx, "POST", "/api/solve", req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSolveResult(&result)), nil
}

func (c *Client) handleSolvePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	puzzleID, _ := args["puzzle_id"].(string)
	if puzzleID == "" {
		return mcp.NewToolResultError("puzzle_id is required"), nil
	}

	req, err := solveRequestFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.SolveResult
	path := "/api/puzzles/" + url.PathEscape(puzzleID) + "/solve"
	if err := c.apiCall(ctx, "POST", path, req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSolveResult(&result)), nil
}

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var infos []*puzzle.Info
	if err := c.apiCall(ctx, "GET", "/api/puzzles", nil, &infos); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(infos) == 0 {
		return mcp.NewToolResultText("No puzzles stored"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available puzzles (%d):\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, runs %d..%d)", info.PuzzleID, info.Name,
			info.Width, info.Height, info.MinRun, info.MaxRun)
		if info.ExpectedCost != nil {
			fmt.Fprintf(&b, " known cost %d", *info.ExpectedCost)
		}
		if info.Description != "" {
			fmt.Fprintf(&b, " - %s", info.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, _ := arguments(request)["run_id"].(string)
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.Run
	if err := c.apiCall(ctx, "GET", "/api/runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if p, _ := args["puzzle"].(string); p != "" {
		query.Set("puzzle", p)
	}
	if o, _ := args["outcome"].(string); o != "" {
		query.Set("outcome", o)
	}
	limit := 20
	if l, err := intArg(args, "limit"); err == nil && l != nil && *l > 0 {
		limit = *l
	}
	query.Set("limit", fmt.Sprint(limit))

	var resp struct {
		Count int            `json:"count"`
		Total int            `json:"total"`
		Runs  []*service.Run `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", "/api/runs?"+query.Encode(), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No runs recorded"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d of %d):\n", resp.Count, resp.Total)
	for _, run := range resp.Runs {
		fmt.Fprintf(&b, "- %s %s %dx%d %s", run.ID, run.PuzzleID, run.Width, run.Height, run.Outcome)
		if run.Cost != nil {
			fmt.Fprintf(&b, " cost=%d", *run.Cost)
		}
		fmt.Fprintf(&b, " expanded=%d %s\n", run.Stats.Expanded, run.CreatedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSolverInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(solverInstructions), nil
}

const solverInstructions = `CRUCIBLE PATH SOLVER

GRID
- Rows of digits 0-9, all rows the same length.
- The route starts at the top-left cell and ends at the bottom-right cell.
- Entering a cell adds its digit to the cost. The start cell is free unless
  origin_cost_counted is true.

MOVEMENT
- Each step moves one cell up, down, left or right.
- A run is the number of consecutive steps in the same direction.
- A run may not exceed max_run (default 3). max_run 0 forbids moving at all.
- A run must reach min_run (default 1) before turning, and the final run
  must reach min_run before the goal counts as reached.
- Reversing (right then left, up then down) is never allowed.
- The first step must use one of start_directions (default right, down).

RESULTS
- solved: the minimal cost, the moves and the visited cells.
- no_path: no route satisfies the constraints. This is an answer, not an error.
- cancelled: timeout_ms elapsed before the search finished.

EXAMPLES
- solve_grid layout ["19","11"] -> cost 2, moves down right
- solve_puzzle puzzle_id "reference" -> cost 102
- solve_puzzle puzzle_id "reference" max_run 10 min_run 4 -> cost 94
- solve_grid layout ["12345"] max_run 3 -> no_path`

func formatSolveResult(result *service.SolveResult) string {
	var b strings.Builder
	b.WriteString(result.Message)
	b.WriteString("\n")
	if result.MatchesExpected != nil && result.Run != nil && result.Run.ExpectedCost != nil {
		fmt.Fprintf(&b, "Known cost %d: match=%t\n", *result.Run.ExpectedCost, *result.MatchesExpected)
	}
	if result.Run != nil {
		b.WriteString(formatRun(result.Run))
	}
	return b.String()
}

func formatRun(run *service.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Puzzle: %s (%dx%d)\n", run.PuzzleID, run.Width, run.Height)
	fmt.Fprintf(&b, "Settings: max_run=%d min_run=%d origin_cost_counted=%t\n",
		run.Config.MaxRun, run.Config.MinRun, run.Config.OriginCostCounted)
	fmt.Fprintf(&b, "Outcome: %s\n", run.Outcome)
	if run.Cost != nil {
		fmt.Fprintf(&b, "Cost: %d\n", *run.Cost)
	}
	fmt.Fprintf(&b, "Search: expanded=%d pushed=%d discarded=%d in %s\n",
		run.Stats.Expanded, run.Stats.Pushed, run.Stats.Discarded, run.Duration)
	if run.Error != "" {
		fmt.Fprintf(&b, "Detail: %s\n", run.Error)
	}
	if len(run.Moves) > 0 {
		fmt.Fprintf(&b, "Moves (%d): %s\n", len(run.Moves), compactMoves(run.Moves))
	}
	if len(run.Path) > 0 && len(run.Layout) > 0 {
		b.WriteString("Path:\n")
		b.WriteString(renderPath(run.Layout, run.Path))
	}
	return b.String()
}

// compactMoves groups runs, e.g. "right x3, down x2"
func compactMoves(moves []engine.Direction) string {
	var parts []string
	for i := 0; i < len(moves); {
		j := i
		for j < len(moves) && moves[j] == moves[i] {
			j++
		}
		parts = append(parts, fmt.Sprintf("%s x%d", moves[i], j-i))
		i = j
	}
	return strings.Join(parts, ", ")
}

// renderPath draws the layout with visited cells replaced by '#'
func renderPath(layout []string, path []engine.Position) string {
	rows := make([][]byte, len(layout))
	for i, row := range layout {
		rows[i] = []byte(row)
	}
	for _, p := range path {
		if p.Y >= 0 && p.Y < len(rows) && p.X >= 0 && p.X < len(rows[p.Y]) {
			rows[p.Y][p.X] = '#'
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.Write(row)
		b.WriteString("\n")
	}
	return b.String()
}
