// Package testdata provides utilities for generating sample metrics data
// to test Grafana dashboards without using real production data.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards
var (
	// Checkpoint metrics
	checkpointSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_checkpoint_saves_total",
			Help: "Total number of checkpoints saved",
		},
		[]string{"project_id", "auto_created"},
	)
	checkpointResumes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_checkpoint_resumes_total",
			Help: "Total number of checkpoint resumes",
		},
		[]string{"project_id", "level"},
	)
	checkpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_checkpoint_errors_total",
			Help: "Total number of checkpoint errors",
		},
		[]string{"project_id", "operation", "reason"},
	)
	checkpointCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contextd_checkpoint_count",
			Help: "Current number of checkpoints stored",
		},
		[]string{"project_id"},
	)
	checkpointSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextd_checkpoint_size_bytes",
			Help:    "Checkpoint size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 10), // 1KB to 1MB
		},
		[]string{"project_id"},
	)

	// Memory metrics
	memorySearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_memory_searches_total",
			Help: "Total number of memory searches",
		},
		[]string{"project_id", "result_count"},
	)
	memoryRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_memory_records_total",
			Help: "Total number of memories recorded",
		},
		[]string{"project_id", "outcome"},
	)
	memoryFeedbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_memory_feedbacks_total",
			Help: "Total number of feedback events",
		},
		[]string{"project_id", "helpful"},
	)
	memoryOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_memory_outcomes_total",
			Help: "Total number of outcome events",
		},
		[]string{"project_id", "succeeded"},
	)
	memoryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_memory_errors_total",
			Help: "Total number of memory errors",
		},
		[]string{"project_id", "operation", "reason"},
	)
	memoryCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contextd_memory_count",
			Help: "Current number of memories stored",
		},
		[]string{"project_id"},
	)
	memoryConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextd_memory_confidence",
			Help:    "Memory confidence score distribution",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"project_id"},
	)
	memorySearchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextd_memory_search_duration_seconds",
			Help:    "Memory search latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"project_id"},
	)

	// Remediation metrics
	remediationSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_remediation_searches_total",
			Help: "Total number of remediation searches",
		},
		[]string{"project_id", "scope", "result_count"},
	)
	remediationRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_remediation_records_total",
			Help: "Total number of remediations recorded",
		},
		[]string{"project_id", "scope", "category"},
	)
	remediationFeedbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_remediation_feedbacks_total",
			Help: "Total number of feedback events",
		},
		[]string{"project_id", "rating"},
	)
	remediationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_remediation_errors_total",
			Help: "Total number of remediation errors",
		},
		[]string{"project_id", "operation", "reason"},
	)

	// Compression metrics
	compressionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compression_operations_total",
			Help: "Total compression operations",
		},
		[]string{"method", "status"},
	)
	compressionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compression_duration_seconds",
			Help:    "Compression operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	compressionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compression_errors_total",
			Help: "Total compression errors",
		},
		[]string{"method", "reason"},
	)
	compressionRatioHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compression_ratio",
			Help:    "Compression ratio achieved",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	compressionQualityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compression_quality_score",
			Help:    "Compression quality score",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	compressionInputTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compression_input_tokens_total",
			Help: "Total input tokens processed",
		},
		[]string{"method"},
	)
	compressionOutputTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compression_output_tokens_total",
			Help: "Total output tokens produced",
		},
		[]string{"method"},
	)

	// Context folding metrics
	foldingBranchCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folding_branch_created_total",
			Help: "Total branches created",
		},
		[]string{"project_id", "session_id", "depth"},
	)
	foldingBranchReturned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folding_branch_returned_total",
			Help: "Total branches returned",
		},
		[]string{"project_id", "session_id", "status"},
	)
	foldingBranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folding_branch_duration_seconds",
			Help:    "Branch execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"project_id", "session_id"},
	)
	foldingBranchTokensUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folding_branch_tokens_used",
			Help: "Tokens used in branch",
		},
		[]string{"project_id", "session_id", "branch_id"},
	)
	foldingBranchDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folding_branch_depth",
			Help: "Current branch depth",
		},
		[]string{"project_id", "session_id"},
	)
	foldingActiveBranches = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "folding_branch_active_count",
			Help: "Number of active branches",
		},
		[]string{"project_id"},
	)
	foldingBranchFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folding_branch_failed_total",
			Help: "Total failed branches",
		},
		[]string{"project_id", "failure_reason"},
	)
	foldingBranchTimeout = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folding_branch_timeout_total",
			Help: "Total timed out branches",
		},
		[]string{"project_id"},
	)
	foldingBudgetConsumed = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folding_budget_consumed_tokens",
			Help:    "Tokens consumed per branch",
			Buckets: prometheus.ExponentialBuckets(100, 2, 8),
		},
		[]string{"project_id"},
	)
	foldingBudgetUtilization = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folding_budget_utilization_ratio",
			Help:    "Budget utilization ratio (0-1)",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"project_id"},
	)

	// Workflow metrics
	workflowExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_workflows_version_validation_executions_total",
			Help: "Total workflow executions",
		},
		[]string{"status"},
	)
	workflowMatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contextd_workflows_version_validation_matches_total",
			Help: "Total version matches",
		},
	)
	workflowMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contextd_workflows_version_validation_mismatches_total",
			Help: "Total version mismatches",
		},
	)
	workflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextd_workflows_version_validation_duration_seconds",
			Help:    "Workflow execution duration",
			Buckets: prometheus.DefBuckets,
		},
	)
	workflowActivityDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextd_workflows_activity_duration_seconds",
			Help:    "Activity execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"activity"},
	)
	workflowActivityErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_workflows_activity_errors_total",
			Help: "Total activity errors",
		},
		[]string{"activity"},
	)

	// HTTP server metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contextd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		// Checkpoint
		checkpointSaves,
		checkpointResumes,
		checkpointErrors,
		checkpointCount,
		checkpointSize,
		// Memory
		memorySearches,
		memoryRecords,
		memoryFeedbacks,
		memoryOutcomes,
		memoryErrors,
		memoryCount,
		memoryConfidence,
		memorySearchLatency,
		// Remediation
		remediationSearches,
		remediationRecords,
		remediationFeedbacks,
		remediationErrors,
		// Compression
		compressionOperations,
		compressionDuration,
		compressionErrors,
		compressionRatioHist,
		compressionQualityScore,
		compressionInputTokens,
		compressionOutputTokens,
		// Context folding
		foldingBranchCreated,
		foldingBranchReturned,
		foldingBranchDuration,
		foldingBranchTokensUsed,
		foldingBranchDepth,
		foldingActiveBranches,
		foldingBranchFailed,
		foldingBranchTimeout,
		foldingBudgetConsumed,
		foldingBudgetUtilization,
		// Workflows
		workflowExecutions,
		workflowMatches,
		workflowMismatches,
		workflowDuration,
		workflowActivityDuration,
		workflowActivityErrors,
		// HTTP
		httpRequestsTotal,
		httpRequestDuration,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'contextd-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func generateSampleData() {
	projects := []string{"contextd", "my-project", "test-project"}
	operations := []string{"save", "list", "get", "delete", "search", "record", "feedback"}
	reasons := []string{"get_store_failed", "not_found", "validation_failed", "store_failed"}
	compressionTypes := []string{"extractive", "abstractive", "hybrid"}

	// Generate checkpoint data per project
	for i := 0; i < 50; i++ {
		project := randomChoice(projects)
		checkpointSaves.WithLabelValues(project, randomBool()).Inc()
		checkpointSize.WithLabelValues(project).Observe(float64(rand.Intn(100000) + 1000))
	}
	for i := 0; i < 30; i++ {
		checkpointResumes.WithLabelValues(randomChoice(projects), randomChoice([]string{"summary", "context", "full"})).Inc()
	}
	for i := 0; i < 5; i++ {
		checkpointErrors.WithLabelValues(randomChoice(projects), randomChoice(operations), randomChoice(reasons)).Inc()
	}
	// Set checkpoint count per project
	for _, project := range projects {
		checkpointCount.WithLabelValues(project).Set(float64(rand.Intn(100) + 10))
	}

	// Generate memory data per project
	for i := 0; i < 100; i++ {
		project := randomChoice(projects)
		memorySearches.WithLabelValues(project, fmt.Sprintf("%d", rand.Intn(10))).Inc()
		memorySearchLatency.WithLabelValues(project).Observe(rand.Float64() * 0.5)
	}
	for i := 0; i < 40; i++ {
		project := randomChoice(projects)
		memoryRecords.WithLabelValues(project, randomChoice([]string{"success", "failure"})).Inc()
		memoryConfidence.WithLabelValues(project).Observe(0.3 + rand.Float64()*0.7)
	}
	for i := 0; i < 25; i++ {
		memoryFeedbacks.WithLabelValues(randomChoice(projects), randomChoice([]string{"true", "false"})).Inc()
	}
	for i := 0; i < 20; i++ {
		memoryOutcomes.WithLabelValues(randomChoice(projects), randomChoice([]string{"true", "false"})).Inc()
	}
	for i := 0; i < 8; i++ {
		memoryErrors.WithLabelValues(randomChoice(projects), randomChoice(operations), randomChoice(reasons)).Inc()
	}
	// Set memory count per project
	for _, project := range projects {
		memoryCount.WithLabelValues(project).Set(float64(rand.Intn(500) + 50))
	}

	// Generate remediation data per project
	for i := 0; i < 60; i++ {
		project := randomChoice(projects)
		remediationSearches.WithLabelValues(project, randomChoice([]string{"org", "team", "project"}), fmt.Sprintf("%d", rand.Intn(5))).Inc()
	}
	for i := 0; i < 30; i++ {
		project := randomChoice(projects)
		remediationRecords.WithLabelValues(
			project,
			randomChoice([]string{"org", "team", "project"}),
			randomChoice([]string{"build", "runtime", "dependency", "config"}),
		).Inc()
	}
	for i := 0; i < 15; i++ {
		remediationFeedbacks.WithLabelValues(randomChoice(projects), randomChoice([]string{"helpful", "not_helpful", "outdated"})).Inc()
	}
	for i := 0; i < 3; i++ {
		remediationErrors.WithLabelValues(randomChoice(projects), randomChoice(operations), randomChoice(reasons)).Inc()
	}

	// Generate compression data
	for i := 0; i < 80; i++ {
		cType := randomChoice(compressionTypes)
		compressionOperations.WithLabelValues(cType, randomChoice([]string{"success", "failure"})).Inc()
		compressionDuration.WithLabelValues(cType).Observe(rand.Float64() * 2.0)
		compressionInputTokens.WithLabelValues(cType).Add(float64(rand.Intn(5000) + 1000))
		compressionOutputTokens.WithLabelValues(cType).Add(float64(rand.Intn(2000) + 200))
	}
	// Generate histogram observations for ratio and quality
	for i := 0; i < 50; i++ {
		compressionRatioHist.Observe(0.3 + rand.Float64()*0.5)
		compressionQualityScore.Observe(0.5 + rand.Float64()*0.5)
	}
	for i := 0; i < 5; i++ {
		compressionErrors.WithLabelValues(randomChoice(compressionTypes), randomChoice([]string{"timeout", "invalid_input", "llm_error"})).Inc()
	}

	// Generate context folding data per project
	sessions := []string{"sess_001", "sess_002", "sess_003"}
	depths := []string{"1", "2", "3"}
	failureReasons := []string{"budget_exceeded", "timeout", "max_depth", "scrub_failed"}
	for i := 0; i < 40; i++ {
		project := randomChoice(projects)
		sess := randomChoice(sessions)
		depth := randomChoice(depths)
		foldingBranchCreated.WithLabelValues(project, sess, depth).Inc()
		foldingBranchReturned.WithLabelValues(project, sess, randomChoice([]string{"completed", "timeout", "error"})).Inc()
		foldingBranchDuration.WithLabelValues(project, sess).Observe(rand.Float64() * 30.0)
		// Budget metrics
		foldingBudgetConsumed.WithLabelValues(project).Observe(float64(rand.Intn(4000) + 500))
		foldingBudgetUtilization.WithLabelValues(project).Observe(rand.Float64())
	}
	for _, project := range projects {
		for _, sess := range sessions {
			foldingBranchTokensUsed.WithLabelValues(project, sess, fmt.Sprintf("branch_%d", rand.Intn(10))).Set(float64(rand.Intn(4000) + 500))
			foldingBranchDepth.WithLabelValues(project, sess).Set(float64(rand.Intn(3) + 1))
		}
		foldingActiveBranches.WithLabelValues(project).Set(float64(rand.Intn(5)))
	}
	// Failure and timeout metrics per project
	for i := 0; i < 5; i++ {
		foldingBranchFailed.WithLabelValues(randomChoice(projects), randomChoice(failureReasons)).Inc()
	}
	for i := 0; i < 3; i++ {
		foldingBranchTimeout.WithLabelValues(randomChoice(projects)).Inc()
	}

	// Generate workflow data
	activities := []string{"fetch_pr", "validate_schema", "post_comment", "update_labels"}
	for i := 0; i < 50; i++ {
		status := randomChoice([]string{"completed", "failed", "cancelled"})
		workflowExecutions.WithLabelValues(status).Inc()
		workflowDuration.Observe(rand.Float64() * 60.0)
		// Generate matches/mismatches based on status
		if status == "completed" {
			if rand.Float64() > 0.3 {
				workflowMatches.Inc()
			} else {
				workflowMismatches.Inc()
			}
		}
	}
	for i := 0; i < 100; i++ {
		activity := randomChoice(activities)
		workflowActivityDuration.WithLabelValues(activity).Observe(rand.Float64() * 10.0)
	}
	for i := 0; i < 10; i++ {
		workflowActivityErrors.WithLabelValues(
			randomChoice(activities),
		).Inc()
	}

	// Generate HTTP data
	paths := []string{"/api/v1/scrub", "/api/v1/status", "/api/v1/threshold"}
	methods := []string{"GET", "POST"}
	statuses := []string{"200", "400", "500"}
	for i := 0; i < 200; i++ {
		path := randomChoice(paths)
		method := randomChoice(methods)
		httpRequestsTotal.WithLabelValues(method, path, randomChoice(statuses)).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(rand.Float64() * 0.5)
	}
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	projects := []string{"contextd", "my-project", "test-project"}
	compressionTypes := []string{"extractive", "abstractive", "hybrid"}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Add some random activity
			if rand.Float64() > 0.5 {
				project := randomChoice(projects)
				checkpointSaves.WithLabelValues(project, randomBool()).Inc()
				checkpointSize.WithLabelValues(project).Observe(float64(rand.Intn(100000) + 1000))
			}
			if rand.Float64() > 0.3 {
				project := randomChoice(projects)
				memorySearches.WithLabelValues(project, fmt.Sprintf("%d", rand.Intn(10))).Inc()
				memorySearchLatency.WithLabelValues(project).Observe(rand.Float64() * 0.5)
			}
			// Add memory records and confidence
			if rand.Float64() > 0.6 {
				project := randomChoice(projects)
				memoryRecords.WithLabelValues(project, randomChoice([]string{"success", "failure"})).Inc()
				memoryConfidence.WithLabelValues(project).Observe(0.3 + rand.Float64()*0.7)
			}
			// Add memory feedback
			if rand.Float64() > 0.7 {
				memoryFeedbacks.WithLabelValues(randomChoice(projects), randomChoice([]string{"true", "false"})).Inc()
			}
			// Add memory outcomes
			if rand.Float64() > 0.8 {
				memoryOutcomes.WithLabelValues(randomChoice(projects), randomChoice([]string{"true", "false"})).Inc()
			}
			if rand.Float64() > 0.7 {
				remediationSearches.WithLabelValues(randomChoice(projects), randomChoice([]string{"org", "team", "project"}), fmt.Sprintf("%d", rand.Intn(5))).Inc()
			}
			if rand.Float64() > 0.6 {
				cType := randomChoice(compressionTypes)
				compressionOperations.WithLabelValues(cType, "success").Inc()
				compressionDuration.WithLabelValues(cType).Observe(rand.Float64() * 2.0)
				compressionRatioHist.Observe(0.3 + rand.Float64()*0.5)
				compressionQualityScore.Observe(0.5 + rand.Float64()*0.5)
			}
			if rand.Float64() > 0.8 {
				project := randomChoice(projects)
				sess := fmt.Sprintf("sess_%03d", rand.Intn(10))
				foldingBranchCreated.WithLabelValues(project, sess, fmt.Sprintf("%d", rand.Intn(3)+1)).Inc()
				foldingBranchDuration.WithLabelValues(project, sess).Observe(rand.Float64() * 30.0)
				foldingBudgetConsumed.WithLabelValues(project).Observe(float64(rand.Intn(4000) + 500))
				foldingBudgetUtilization.WithLabelValues(project).Observe(rand.Float64() * 0.9)
			}

			// Update workflow metrics
			if rand.Float64() > 0.4 {
				status := randomChoice([]string{"completed", "failed", "cancelled"})
				workflowExecutions.WithLabelValues(status).Inc()
				workflowDuration.Observe(rand.Float64() * 60.0)
				if status == "completed" {
					if rand.Float64() > 0.3 {
						workflowMatches.Inc()
					} else {
						workflowMismatches.Inc()
					}
				}
			}
			if rand.Float64() > 0.5 {
				activities := []string{"fetch_pr", "validate_schema", "post_comment", "update_labels"}
				activity := randomChoice(activities)
				workflowActivityDuration.WithLabelValues(activity).Observe(rand.Float64() * 10.0)
				if rand.Float64() > 0.9 {
					workflowActivityErrors.WithLabelValues(activity).Inc()
				}
			}

			// Update gauges per project
			for _, project := range projects {
				memoryCount.WithLabelValues(project).Add(float64(rand.Intn(3) - 1))
				checkpointCount.WithLabelValues(project).Add(float64(rand.Intn(3) - 1))
				foldingActiveBranches.WithLabelValues(project).Set(float64(rand.Intn(5)))
			}
		}
	}
}

func randomBool() string {
	if rand.Float64() > 0.5 {
		return "true"
	}
	return "false"
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
