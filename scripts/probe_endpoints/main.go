package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/config"
)

func main() {
	var (
		baseURL      string
		availability string
		blackout     string
		timeout      time.Duration
		asJSON       bool
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	flag.StringVar(&baseURL, "base", cfg.Backend.BaseURL, "Backend base URL")
	flag.StringVar(&availability, "availability", strings.Join(cfg.Backend.AvailabilityCandidates, ","), "Comma-separated availability candidates")
	flag.StringVar(&blackout, "blackout", strings.Join(cfg.Backend.BlackoutCandidates, ","), "Comma-separated blackout candidates")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	flag.Parse()

	client, err := backend.New(backend.Config{BaseURL: baseURL, Timeout: timeout})
	if err != nil {
		log.Fatalf("invalid backend configuration: %v", err)
	}

	discovery := service.NewDiscoveryService(client, service.DiscoveryConfig{
		AvailabilityCandidates: splitList(availability),
		BlackoutCandidates:     splitList(blackout),
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*timeout)
	defer cancel()
	reports := discovery.Report(ctx)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("encode report: %v", err)
		}
	} else {
		printReport(baseURL, reports)
	}

	missing := 0
	for _, r := range reports {
		if firstExisting(r) == "" {
			missing++
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstExisting(r dto.EndpointReport) string {
	for _, c := range r.Candidates {
		if c.Exists {
			return c.Path
		}
	}
	return ""
}

func printReport(base string, reports []dto.EndpointReport) {
	fmt.Println("Endpoint Probe Report")
	fmt.Println("=====================")
	fmt.Printf("Backend: %s\n", base)
	for _, r := range reports {
		fmt.Printf("\n%s\n", r.Resource)
		for _, c := range r.Candidates {
			status := "MISSING"
			if c.Exists {
				status = "OK"
			}
			fmt.Printf("  [%s] %s -> %d (%dms)", status, c.Path, c.StatusCode, c.DurationMs)
			if c.Error != "" {
				fmt.Printf(" %s", c.Error)
			}
			fmt.Println()
		}
		if path := firstExisting(r); path != "" {
			fmt.Printf("  use: %s\n", path)
		} else {
			fmt.Println("  no candidate answered; set the endpoint explicitly")
		}
	}
}
