package autonomous

import (
	"context"
	"fmt"
)

// Activity functions for the autonomous development workflow.
// These are called by Temporal and execute the actual agent work.

// AnalyzeFeature performs requirements analysis, architecture planning, and research.
// This is the Analysis Crew phase.
func AnalyzeFeature(ctx context.Context, input AnalyzeFeatureInput) (*AnalysisResult, error) {
	// TODO: Implement Analysis Crew
	// - Requirements Agent: Extract specs, edge cases, acceptance criteria
	// - Architecture Agent: Review codebase, identify affected components
	// - Research Agent: Search ReasoningBank for similar patterns

	return &AnalysisResult{
		FeatureSpec:         "TODO: Extract feature specification",
		AcceptanceCriteria:  []string{"TODO: Define acceptance criteria"},
		EdgeCases:           []string{"TODO: Identify edge cases"},
		ArchitecturePlan:    "TODO: Create architecture plan",
		AffectedFiles:       []string{},
		NewFilesNeeded:      []string{},
		SimilarPatterns:     []Memory{},
		RecommendedApproach: "TODO: Recommend approach",
		CollectionName:      fmt.Sprintf("feature-%d-analysis", input.IssueNumber),
		Metrics:             AgentMetrics{},
	}, nil
}

// ImplementFeature writes code, tests, and documentation.
// This is the Implementation Crew phase.
func ImplementFeature(ctx context.Context, input ImplementFeatureInput) (*ImplementationResult, error) {
	// TODO: Implement Implementation Crew
	// - Code Agent: Write production code
	// - Test Agent: Write unit + integration tests
	// - Documentation Agent: Update README, CHANGELOG, inline docs

	return &ImplementationResult{
		CodeFiles:      []Artifact{},
		TestFiles:      []Artifact{},
		DocFiles:       []Artifact{},
		BranchName:     fmt.Sprintf("feature/issue-%d", input.IssueNumber),
		Commits:        []CommitInfo{},
		CollectionName: fmt.Sprintf("feature-%d-impl", input.IssueNumber),
		Metrics:        AgentMetrics{},
	}, nil
}

// ValidateQuality runs usage tests, benchmarks, and security scans.
// This is the Quality Crew phase.
func ValidateQuality(ctx context.Context, input ValidateQualityInput) (*QualityResult, error) {
	// TODO: Implement Quality Crew
	// - Usage Test Agent: Write and run usage tests (ReasoningBank integration, feature-specific, edge cases)
	// - Benchmark Agent: Run performance benchmarks and detect regressions
	// - Security Agent: Run security scans and dependency audits

	return &QualityResult{
		UsageTestFiles:       []Artifact{},
		UsageTestsPassed:     true, // Stub: assume pass
		EdgeCasesFound:       []string{},
		BenchmarkResults:     []BenchmarkResult{},
		RegressionDetected:   false, // Stub: no regression
		SecurityReport:       SecurityReport{Passed: true},
		VulnerabilitiesFound: false, // Stub: no vulnerabilities
		CollectionName:       fmt.Sprintf("feature-%d-qa", input.IssueNumber),
		Metrics:              AgentMetrics{},
	}, nil
}

// ConsensusReview performs technical review and UX persona validation.
// This is the Review & Ship Crew phase.
func ConsensusReview(ctx context.Context, input ConsensusReviewInput) (*ReviewResult, error) {
	// TODO: Implement Review & Ship Crew
	// - Technical reviewers (3): code quality, architecture, security
	// - UX persona validators (4): Marcus, Sarah, Alex, Jordan
	// - Consensus: 7/7 approvals required

	return &ReviewResult{
		TechnicalReviews:  []TechnicalReview{},
		TechnicalApproved: true, // Stub: approve
		PersonaReviews:    []PersonaReview{},
		PersonaApproved:   true, // Stub: approve
		ConsensusReached:  true,
		Approved:          true,
		Reason:            "TODO: Implement consensus review",
		PRNumber:          0, // TODO: Create PR
		PRURL:             "",
		PRBody:            "",
		CollectionName:    fmt.Sprintf("feature-%d-review", input.IssueNumber),
		Metrics:           AgentMetrics{},
	}, nil
}

// Cleanup archives collections and records completion.
// This is the final cleanup phase.
func Cleanup(ctx context.Context, input CleanupInput) error {
	// TODO: Implement cleanup
	// - Archive short-lived collections
	// - Record feature completion in ReasoningBank
	// - Update issue status
	// - Post PR link to issue

	return nil
}

// PostReviewFeedback posts feedback to GitHub issue when quality gates fail.
func PostReviewFeedback(ctx context.Context, input PostReviewFeedbackInput) error {
	// TODO: Implement GitHub comment posting
	// - Format feedback message with details
	// - Post comment to issue
	// - Tag with appropriate labels

	return nil
}
