// Command test-reality probes the read-only endpoints of a live factory with
// response validation enabled and reports where the server disagrees with the
// bundled OpenAPI document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/internal/config"
)

var (
	envFile = flag.String("env-file", "", "read settings from this file instead of ./.env")
	env     = flag.String("env", "", "environment to probe (overrides ACSF_ENVIRONMENT)")
	verbose = flag.Bool("verbose", false, "Verbose output with full JSON responses")
)

// TestResult is the outcome of probing one endpoint.
type TestResult struct {
	Endpoint   string
	Success    bool
	Error      string
	Issues     []string
	JSONSample string
	Duration   time.Duration
}

func main() {
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *env != "" {
		cfg.Environment = *env
	}

	fmt.Println("🧪 Testing go-acsf against reality...")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	client, err := sitefactory.NewWithConfig(&sitefactory.ClientConfig{
		Username:          cfg.Username,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		SiteGroup:         cfg.SiteGroup,
		Environment:       cfg.Environment,
		ValidateResponses: true,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	fmt.Printf("📡 Connecting to %s...\n", client.BaseURL())
	if pong, err := client.Ping(ctx); err == nil {
		fmt.Printf("   Server time: %s\n", pong.ServerTime)
	}
	fmt.Println()

	results := runProbes(ctx, client)

	// Print summary
	fmt.Println()
	fmt.Println("📊 Test Summary")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	totalIssues := 0
	for _, result := range results {
		status := "✅"
		if !result.Success {
			status = "❌"
		} else if len(result.Issues) > 0 {
			status = "⚠️"
		}

		fmt.Printf("%s %s (%v)\n", status, result.Endpoint, result.Duration)

		if result.Error != "" {
			fmt.Printf("   Error: %s\n", result.Error)
		}

		if len(result.Issues) > 0 {
			fmt.Printf("   ⚠️  Schema issues: %d\n", len(result.Issues))
			for _, issue := range result.Issues {
				fmt.Printf("      - %s\n", issue)
			}
			totalIssues += len(result.Issues)
		}

		if *verbose && result.JSONSample != "" {
			fmt.Printf("   JSON Sample:\n%s\n", indentJSON(result.JSONSample, "      "))
		}

		fmt.Println()
	}

	fmt.Println("=" + strings.Repeat("=", 60))
	if totalIssues == 0 {
		fmt.Println("✅ All probes passed! Responses match the OpenAPI document.")
	} else {
		fmt.Printf("⚠️  Found %d schema mismatches\n", totalIssues)
		fmt.Println()
		fmt.Println("Recommendations:")
		fmt.Println("  1. Loosen the types in api/sitefactory/openapi.yaml")
		fmt.Println("  2. Check FlexInt is used for fields the server sends as strings")
	}
}

// runProbes calls every read-only endpoint. Later probes reuse IDs found by earlier ones.
func runProbes(ctx context.Context, client *sitefactory.Client) []TestResult {
	var results []TestResult

	var firstSite int64
	results = append(results, probe("ListSites", func() (any, error) {
		resp, err := client.ListSites(ctx, &sitefactory.ListParams{Limit: 5})
		if err == nil && len(resp.Sites) > 0 {
			firstSite = resp.Sites[0].ID
		}
		return resp, err
	}))

	if firstSite > 0 {
		results = append(results,
			probe("GetSite", func() (any, error) { return client.GetSite(ctx, firstSite) }),
			probe("ListSiteBackups", func() (any, error) {
				return client.ListSiteBackups(ctx, firstSite, &sitefactory.ListParams{Limit: 5})
			}),
		)
	}

	var firstTask int64
	results = append(results, probe("ListTasks", func() (any, error) {
		tasks, err := client.ListTasks(ctx, &sitefactory.ListTasksParams{ListParams: sitefactory.ListParams{Limit: 5}})
		if err == nil && len(tasks) > 0 {
			firstTask = int64(tasks[0].ID)
		}
		return tasks, err
	}))

	if firstTask > 0 {
		results = append(results,
			probe("GetTaskStatus", func() (any, error) { return client.GetTaskStatus(ctx, firstTask) }),
			probe("GetTaskLogs", func() (any, error) { return client.GetTaskLogs(ctx, firstTask) }),
		)
	}

	results = append(results, probe("ListVCSRefs", func() (any, error) {
		return client.ListVCSRefs(ctx, &sitefactory.VCSParams{Type: "sites"})
	}))

	return results
}

func probe(endpoint string, call func() (any, error)) TestResult {
	start := time.Now()
	result := TestResult{Endpoint: endpoint}

	resp, err := call()
	result.Duration = time.Since(start)

	switch {
	case errors.Is(err, sitefactory.ErrSchemaViolation):
		result.Success = true
		result.Issues = append(result.Issues, err.Error())
		return result
	case err != nil:
		result.Error = err.Error()
		return result
	}

	result.Success = true

	if *verbose {
		data, _ := json.MarshalIndent(resp, "", "  ")
		result.JSONSample = string(data)
	}

	return result
}

func indentJSON(jsonStr, indent string) string {
	lines := strings.Split(jsonStr, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
