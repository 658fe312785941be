package stdio

// TODO: Port 23 MCP tool handlers from old-contextd/pkg/mcp/tools.go
//
// Tools to port:
// 1. checkpoint_save
// 2. checkpoint_search
// 3. checkpoint_list
// 4. checkpoint_delete
// 5. remediation_save
// 6. remediation_search
// 7. remediation_list
// 8. skills_save
// 9. skills_search
// 10. skills_list
// 11. index_repository
// 12. search_code
// 13. analytics_track
// 14. composition_save
// 15. composition_search
// 16-23. Additional tools from old implementation
//
// Each tool handler follows pattern:
// func (s *Server) handleToolName(ctx context.Context, req *mcpsdk.CallToolRequest, input ToolInput) (*mcpsdk.CallToolResult, ToolOutput, error)
