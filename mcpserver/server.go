// Package mcpserver exposes position analysis as MCP tools, so an assistant
// can ask what the agent would play from a given board.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brensch/kalah/analysis"
)

const (
	Name    = "Kalah Analyzer"
	Version = "1.0.0"
)

const instructions = `Kalah position analysis.

Boards are given the way they are printed: "north" is player two's row
(pits A2..A(n+1) left to right) and "south" is player one's row
(pits B2..B(n+1) left to right). Stores are separate.

TOOLS:
- analyze_position: search a position and return the moves the agent would play
- play_pit: play one pit and return the resulting board
- rules: a short description of the rules in use`

const rulesText = `Sowing goes counter-clockwise: player one sows B2 -> B(n+1), then their own
store, then A(n+1) -> A2, skipping player two's store. Player two mirrors this.
The last seed landing in the mover's store gives another turn.
The last seed landing in an empty pit of the mover captures that seed and the
facing pit into the mover's store (also when the facing pit is empty).
The game ends when either row is empty; the remaining seeds go to their
owners' stores. The larger store wins.`

// New returns an MCP server with every tool registered.
func New() *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)
	registerTools(s)
	return s
}

func positionProperties() map[string]interface{} {
	intArray := map[string]interface{}{
		"type":     "array",
		"items":    map[string]interface{}{"type": "integer", "minimum": 0},
		"maxItems": analysis.MaxPits,
	}
	return map[string]interface{}{
		"player": map[string]interface{}{
			"type":        "integer",
			"enum":        []int{1, 2},
			"description": "Side to move",
		},
		"north": withDescription(intArray, fmt.Sprintf(
			"Player two's pits, A2..A(n+1), left to right. Both rows together hold at most %d seeds", analysis.MaxSeeds)),
		"south":       withDescription(intArray, "Player one's pits, B2..B(n+1), left to right"),
		"north_store": map[string]interface{}{"type": "integer", "description": "Player two's store"},
		"south_store": map[string]interface{}{"type": "integer", "description": "Player one's store"},
	}
}

func withDescription(schema map[string]interface{}, desc string) map[string]interface{} {
	out := make(map[string]interface{}, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	out["description"] = desc
	return out
}

func registerTools(s *server.MCPServer) {
	analyzeProps := positionProperties()
	analyzeProps["task"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"greedy", "minimax", "alphabeta", "competition"},
		"description": "Search mode and evaluation",
	}
	analyzeProps["depth"] = map[string]interface{}{
		"type":        "integer",
		"description": fmt.Sprintf("Depth budget in turns, 1..%d (minimax and alphabeta only)", analysis.MaxDepth),
	}
	analyzeProps["trace"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Include the traversal log",
	}
	s.AddTool(mcp.Tool{
		Name:        "analyze_position",
		Description: "Search a Kalah position and return the moves the agent would play, the expected value and node statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: analyzeProps,
			Required:   []string{"task", "player", "north", "south"},
		},
	}, handleAnalyze)

	playProps := positionProperties()
	playProps["pit"] = map[string]interface{}{
		"type":        "string",
		"description": "Pit to play, e.g. B3 for player one or A4 for player two",
	}
	s.AddTool(mcp.Tool{
		Name:        "play_pit",
		Description: "Play one pit and return the board after it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playProps,
			Required:   []string{"player", "north", "south", "pit"},
		},
	}, handlePlay)

	s.AddTool(mcp.Tool{
		Name:        "rules",
		Description: "Describe the Kalah rules this analyzer uses",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handleRules)
}

func handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	req, err := requestFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	withTrace, _ := args["trace"].(bool)

	resp, err := analysis.Analyze(req, withTrace)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAnalysis(resp)), nil
}

func handlePlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	req, err := requestFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pit, _ := args["pit"].(string)

	board, err := analysis.Play(req, strings.ToUpper(strings.TrimSpace(pit)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(board)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(board.Text + "\n" + string(data)), nil
}

func handleRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(rulesText), nil
}

// requestFromArgs converts decoded JSON arguments. Numbers arrive as
// float64.
func requestFromArgs(args map[string]interface{}) (analysis.Request, error) {
	if args == nil {
		return analysis.Request{}, fmt.Errorf("missing arguments")
	}
	var req analysis.Request
	req.Task, _ = args["task"].(string)

	var err error
	if req.Player, err = intArg(args, "player", true); err != nil {
		return req, err
	}
	if req.Depth, err = intArg(args, "depth", false); err != nil {
		return req, err
	}
	if req.NorthStore, err = intArg(args, "north_store", false); err != nil {
		return req, err
	}
	if req.SouthStore, err = intArg(args, "south_store", false); err != nil {
		return req, err
	}
	if req.North, err = intsArg(args, "north"); err != nil {
		return req, err
	}
	if req.South, err = intsArg(args, "south"); err != nil {
		return req, err
	}
	return req, nil
}

func intArg(args map[string]interface{}, key string, required bool) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("%s is required", key)
		}
		return 0, nil
	}
	return toInt(key, v)
}

func intsArg(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		n, err := toInt(fmt.Sprintf("%s[%d]", key, i), v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func toInt(name string, v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(i), nil
	}
	return 0, fmt.Errorf("%s must be an integer", name)
}

func formatAnalysis(resp *analysis.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s (cutoff %d)\n", resp.Task, resp.Cutoff)
	fmt.Fprintf(&sb, "Moves: %s\n", strings.Join(resp.Moves, " "))
	fmt.Fprintf(&sb, "Expected value: %s\n", resp.Value)
	fmt.Fprintf(&sb, "Principal line: %s\n", strings.Join(resp.Line, " "))
	fmt.Fprintf(&sb, "Nodes: %d, leaves: %d, cutoffs: %d, elapsed: %dus\n",
		resp.Stats.Nodes, resp.Stats.Leaves, resp.Stats.Cutoffs, resp.ElapsedUs)
	sb.WriteString("\nBoard after the moves:\n")
	sb.WriteString(resp.Next.Text)
	if len(resp.Trace) > 0 {
		sb.WriteString("\n\nTraversal log:\n")
		sb.WriteString(strings.Join(resp.Trace, "\n"))
	}
	return sb.String()
}
