// Package mcp exposes the solver to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call is translated into a REST API
// request against a running server, so the MCP surface always sees the same
// puzzles and run history as HTTP clients.
//
// Tools:
//   - solve_grid: solve rows of digits supplied in the call
//   - solve_puzzle: solve a stored puzzle, with optional setting overrides
//   - list_puzzles: list stored puzzles
//   - get_run: show one recorded run with its rendered path
//   - list_runs: list recorded runs
//   - solver_instructions: rules and examples
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//   - HTTP: POST /mcp on the main server, handled by HandleMessage
package mcp
