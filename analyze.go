package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"featuremap/internal/pipeline"
)

var (
	analyzeDescription     string
	analyzeDescriptionFile string
	analyzeVerify          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <archive>",
	Short: "Analyze a local archive and print the report JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "feature requirement description")
	analyzeCmd.Flags().StringVar(&analyzeDescriptionFile, "description-file", "", "read the description from a file")
	analyzeCmd.Flags().BoolVar(&analyzeVerify, "verify", false, "attach the functional verification block")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	description := analyzeDescription
	if analyzeDescriptionFile != "" {
		data, err := os.ReadFile(analyzeDescriptionFile)
		if err != nil {
			return fmt.Errorf("reading description file: %w", err)
		}
		description = string(data)
	}
	if description == "" {
		return fmt.Errorf("a description is required (use --description or --description-file)")
	}

	archive, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	ctx := cmd.Context()
	engine := newEngine(ctx)

	var out any
	if analyzeVerify {
		r, diag, err := engine.AnalyzeWithVerification(ctx, archive, description)
		if err != nil {
			return err
		}
		logDiagnostics(diag)
		out = r
	} else {
		r, diag, err := engine.Analyze(ctx, archive, description)
		if err != nil {
			return err
		}
		logDiagnostics(diag)
		out = r
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func logDiagnostics(diag pipeline.Diagnostics) {
	logger.Debug("analysis diagnostics",
		zap.Int("files", diag.Files),
		zap.Int("units", diag.Units),
		zap.Strings("unreadable", diag.Unreadable),
		zap.Strings("truncated", diag.Truncated),
		zap.Strings("partial", diag.Partial))
}
