// drift-monitor reads a drift engine report, classifies its severity, and
// writes the monitoring summary the control-plane sentinel consumes.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/frauddesk/control-plane/internal/drift"
	"github.com/frauddesk/control-plane/internal/sentinel"
)

func main() {
	reportPath := flag.String("report", "", "path to the drift engine report JSON")
	reportDir := flag.String("report-dir", "shared/reports", "directory to write the monitoring summary into")
	flag.Parse()

	logger := log.New(os.Stdout, "[drift-monitor] ", log.LstdFlags)

	if *reportPath == "" {
		logger.Fatalf("--report is required")
	}

	f, err := os.Open(*reportPath)
	if err != nil {
		logger.Fatalf("open report: %v", err)
	}
	defer f.Close()

	table, err := drift.ParseEngineReport(f)
	if err != nil {
		logger.Fatalf("parse report: %v", err)
	}

	summary := drift.Classify(table)
	summary.ReportPath = *reportPath

	if err := os.MkdirAll(*reportDir, 0o755); err != nil {
		logger.Fatalf("create report dir: %v", err)
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatalf("encode summary: %v", err)
	}
	dest := filepath.Join(*reportDir, sentinel.SummaryFileName)
	if err := os.WriteFile(dest, append(out, '\n'), 0o644); err != nil {
		logger.Fatalf("write summary: %v", err)
	}

	logger.Printf("wrote %s: severity=%s drifted=%d/%d",
		dest, summary.Severity, summary.DriftedFeatures, summary.TotalFeaturesChecked)
}
