package stdio

// Regression Test Suite for stdio MCP Package
//
// This file contains regression tests for bugs discovered in the stdio MCP
// implementation. Each test is named after the bug report using the format:
// TestRegression_BUG_YYYY_MM_DD_NNN_Description
//
// DOCUMENTATION: See docs/testing/regression/STDIO-MCP-REGRESSION-TESTS.md
//
// HOW TO ADD A NEW REGRESSION TEST:
//
// 1. When a bug is filed, create a new test function following this template:
//
//    func TestRegression_BUG_2025_11_20_001_ShortDescription(t *testing.T) {
//        // Bug: Brief description of the bug
//        // Root Cause: What caused the bug
//        // Fix: How it was fixed
//        //
//        // Reproduction:
//        // - Steps to reproduce the bug
//        // - Expected behavior
//        // - Actual behavior (before fix)
//
//        // Test implementation that would FAIL before fix, PASS after fix
//    }
//
// 2. Use table-driven tests for related bug scenarios:
//
//    func TestRegression_BUG_2025_11_20_002_MultipleScenarios(t *testing.T) {
//        tests := []struct {
//            name string
//            // test fields
//        }{
//            {name: "scenario 1", ...},
//            {name: "scenario 2", ...},
//        }
//        for _, tt := range tests {
//            t.Run(tt.name, func(t *testing.T) {
//                // test implementation
//            })
//        }
//    }
//
// 3. Link to bug report in comments (GitHub issue, Jira ticket, etc.)
//
// 4. Include minimal reproduction that clearly shows the bug
//
// 5. Run test before and after fix to verify:
//    - Before fix: go test -run TestRegression_BUG_YYYY_MM_DD_NNN (should FAIL)
//    - After fix: go test -run TestRegression_BUG_YYYY_MM_DD_NNN (should PASS)
//

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TestRegression_EXAMPLE_2025_11_20_000_ExampleBugPattern demonstrates the pattern
// for regression tests. This is a template - copy and modify for actual bugs.
func TestRegression_EXAMPLE_2025_11_20_000_ExampleBugPattern(t *testing.T) {
	// Bug: [Brief description of the bug]
	// Root Cause: [What caused the bug - e.g., "nil pointer dereference when daemon returns empty response"]
	// Fix: [How it was fixed - e.g., "Added nil check before accessing response fields"]
	// Issue: [Link to GitHub issue or bug report]
	//
	// Reproduction:
	// 1. [Step to reproduce]
	// 2. [Step to reproduce]
	// Expected: [Expected behavior]
	// Actual (before fix): [Actual buggy behavior]

	// Example test implementation
	t.Skip("This is a template test - remove for actual bugs")

	// Create mock server that reproduces the bug condition
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate the condition that triggers the bug
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			// Response that would trigger the bug
		})
	}))
	defer mockServer.Close()

	// Create server with mock daemon
	server, err := NewServer(mockServer.URL)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Call the handler that had the bug
	params := &CheckpointSaveParams{
		Summary:     "Test",
		ProjectPath: "/test",
	}

	result, _, err := server.handleCheckpointSave(context.Background(), &mcpsdk.CallToolRequest{}, params)

	// Before fix: This would panic/fail
	// After fix: This should succeed
	if err != nil {
		t.Errorf("Expected success after fix, got error: %v", err)
	}

	if result == nil {
		t.Error("Expected result, got nil")
	}
}

// ============================================================================
// ACTUAL REGRESSION TESTS START HERE
// ============================================================================
// Add new regression tests below this line, following the pattern above.
// Keep tests in chronological order (oldest first).

// TestRegression_BUG_2025_11_20_001_DaemonTimeoutNotHandled tests that daemon
// timeouts are properly handled and return appropriate errors instead of hanging.
func TestRegression_BUG_2025_11_20_001_DaemonTimeoutNotHandled(t *testing.T) {
	// Bug: Client doesn't handle daemon timeouts gracefully, causing stdio server to hang
	// Root Cause: HTTP client timeout not tested in integration scenarios
	// Fix: Already present (30s timeout), adding regression test to prevent removal
	// Issue: Hypothetical - preemptive regression test
	//
	// Reproduction:
	// 1. Start stdio server with daemon that takes >30s to respond
	// 2. Call checkpoint_save
	// Expected: Error after 30s timeout
	// Actual: Would hang indefinitely if timeout was removed

	// Create slow mock server (simulates overloaded daemon)
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second) // Simulate slow daemon (not full timeout for test speed)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"checkpoint_id": "test-id",
		})
	}))
	defer mockServer.Close()

	// Create server with short timeout for test speed
	server, err := NewServer(mockServer.URL)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Override timeout to 1s for fast test
	server.client.httpClient.Timeout = 1 * time.Second

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	params := &CheckpointSaveParams{
		Summary:     "Test",
		ProjectPath: "/test",
	}

	// This should timeout and return error, not hang
	start := time.Now()
	_, _, err = server.handleCheckpointSave(ctx, &mcpsdk.CallToolRequest{}, params)
	duration := time.Since(start)

	// Should fail with context deadline exceeded
	if err == nil {
		t.Error("Expected timeout error, got nil")
	}

	// Should timeout quickly (within 2s), not hang
	if duration > 3*time.Second {
		t.Errorf("Timeout took too long: %v (expected <3s)", duration)
	}
}

// TestRegression_BUG_2025_11_20_002_EmptyResponseNilPanicPrevention tests that
// empty daemon responses don't cause nil pointer panics.
func TestRegression_BUG_2025_11_20_002_EmptyResponseNilPanicPrevention(t *testing.T) {
	// Bug: Empty response from daemon causes panic when accessing checkpoint_id
	// Root Cause: No nil/empty check before type assertion on response fields
	// Fix: Type assertion with ok check: checkpointID, _ := response["checkpoint_id"].(string)
	// Issue: Hypothetical - preemptive regression test
	//
	// Reproduction:
	// 1. Daemon returns 200 OK with empty JSON body
	// 2. Call checkpoint_save
	// Expected: Return success with empty checkpoint_id
	// Actual (before fix): Would panic on nil map access

	tests := []struct {
		name         string
		responseBody map[string]interface{}
		wantPanic    bool
	}{
		{
			name:         "empty response",
			responseBody: map[string]interface{}{},
			wantPanic:    false, // Should NOT panic
		},
		{
			name: "missing checkpoint_id",
			responseBody: map[string]interface{}{
				"status": "success",
				// checkpoint_id missing
			},
			wantPanic: false, // Should NOT panic
		},
		{
			name: "nil checkpoint_id",
			responseBody: map[string]interface{}{
				"checkpoint_id": nil,
			},
			wantPanic: false, // Should NOT panic
		},
		{
			name: "wrong type checkpoint_id",
			responseBody: map[string]interface{}{
				"checkpoint_id": 123, // int instead of string
			},
			wantPanic: false, // Should NOT panic, just empty string
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					if !tt.wantPanic {
						t.Errorf("Unexpected panic: %v", r)
					}
				}
			}()

			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(tt.responseBody)
			}))
			defer mockServer.Close()

			server, err := NewServer(mockServer.URL)
			if err != nil {
				t.Fatalf("Failed to create server: %v", err)
			}

			params := &CheckpointSaveParams{
				Summary:     "Test",
				ProjectPath: "/test",
			}

			result, _, err := server.handleCheckpointSave(context.Background(), &mcpsdk.CallToolRequest{}, params)

			// Should not panic, should handle gracefully
			if err != nil {
				t.Errorf("Expected success, got error: %v", err)
			}

			if result == nil {
				t.Error("Expected result, got nil")
			}

			// Result should contain text even with empty checkpoint_id
			if len(result.Content) == 0 {
				t.Error("Expected content, got empty")
			}
		})
	}
}

// TestRegression_BUG_2025_11_20_003_ConcurrentRequestsSafety tests that
// concurrent requests to the stdio server don't cause race conditions.
func TestRegression_BUG_2025_11_20_003_ConcurrentRequestsSafety(t *testing.T) {
	// Bug: Concurrent requests cause race conditions in shared state
	// Root Cause: Shared mutable state without synchronization
	// Fix: Server is stateless, but adding test to prevent future regressions
	// Issue: Hypothetical - preemptive regression test
	//
	// Reproduction:
	// 1. Send 100 concurrent checkpoint_save requests
	// 2. Run with -race flag
	// Expected: No race conditions detected
	// Actual: Would show races if shared state was added later

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate some processing time
		time.Sleep(10 * time.Millisecond)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"checkpoint_id": fmt.Sprintf("id-%d", time.Now().UnixNano()),
		})
	}))
	defer mockServer.Close()

	server, err := NewServer(mockServer.URL)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Send 100 concurrent requests
	const numRequests = 100
	errChan := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		go func(id int) {
			params := &CheckpointSaveParams{
				Summary:     fmt.Sprintf("Test %d", id),
				ProjectPath: "/test",
			}

			_, _, err := server.handleCheckpointSave(context.Background(), &mcpsdk.CallToolRequest{}, params)
			errChan <- err
		}(i)
	}

	// Collect results
	for i := 0; i < numRequests; i++ {
		if err := <-errChan; err != nil {
			t.Errorf("Request %d failed: %v", i, err)
		}
	}

	// If we get here without race detector warnings, test passes
	// Run with: go test -race -run TestRegression_BUG_2025_11_20_003
}

// ============================================================================
// HELPER FUNCTIONS FOR REGRESSION TESTS
// ============================================================================

// createMockServerWithDelay creates a mock server with configurable delay
func createMockServerWithDelay(delay time.Duration, response map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}))
}

// createMockServerWithError creates a mock server that returns an error status
func createMockServerWithError(statusCode int, errorMsg string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": errorMsg,
		})
	}))
}
