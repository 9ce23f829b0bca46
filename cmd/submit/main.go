// Command submit sends one local report to the audit endpoint and prints the
// normalized outcome.
// Usage: go run ./cmd/submit [--text] [--report out.csv] <file>
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"medaudit/internal/config"
	"medaudit/internal/domain"
	"medaudit/internal/export"
	"medaudit/internal/extract/pdftext"
	"medaudit/internal/normalize"
	"medaudit/internal/service"
	"medaudit/internal/submission"
)

type options struct {
	asText   bool
	name     string
	output   string
	report   string
	demo     bool
	rawText  bool
	endpoint string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a medical report for audit",
		Long: "Submit a PDF (or, with --text, a plain-text file) to the configured audit endpoint " +
			"and print the normalized findings. Configuration is read from MEDAUDIT_* environment variables.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asText, "text", false, "treat the file as plain text")
	cmd.Flags().StringVar(&opts.name, "name", "", "document name sent to the endpoint (defaults to the file name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	cmd.Flags().StringVar(&opts.report, "report", "", "also write a report file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "substitute demonstration findings for unstructured replies")
	cmd.Flags().BoolVar(&opts.rawText, "raw", false, "surface unstructured reply text as the message")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "audit endpoint URL (overrides MEDAUDIT_ENDPOINT_URL)")
	return cmd
}

func run(cmd *cobra.Command, path string, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.endpoint != "" {
		cfg.Endpoint.URL = opts.endpoint
	}
	if cfg.Endpoint.URL == "" {
		return errors.New("no endpoint configured; set MEDAUDIT_ENDPOINT_URL or pass --endpoint")
	}
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	name := opts.name
	if name == "" {
		name = filepath.Base(path)
	}
	input := service.SubmitInput{Name: name}
	if opts.asText {
		input.Text = string(data)
	} else {
		input.Bytes = data
		input.ContentType = contentTypeFor(path)
	}

	session := service.NewAuditSession("cli", service.Pipeline{
		Extractor:  pdftext.NewExtractor(cfg.Extractor.Pdftotext),
		Submitter:  submission.NewClient(&cfg.Endpoint),
		Normalizer: normalize.New(normalize.Options{DemoFallback: opts.demo || cfg.Normalizer.DemoFallback, RawPassthrough: opts.rawText || cfg.Normalizer.RawPassthrough}),
	}, service.SessionConfig{
		MaxFileBytes: cfg.Endpoint.MaxFileSizeBytes(),
		SubmitAsText: cfg.Endpoint.SubmitAsText,
		Source:       cfg.Endpoint.Source,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Submitting %s (timeout %s)...\n", name, cfg.Endpoint.Timeout)
	outcome, err := session.Submit(ctx, input)
	if err != nil {
		return errors.New(domain.Describe(err))
	}

	if opts.report != "" {
		if err := writeReport(opts.report, name, outcome); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", opts.report)
	}

	if opts.output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	return printTable(cmd.OutOrStdout(), outcome)
}

func contentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return domain.ContentTypePDF
	}
	return "application/octet-stream"
}

func writeReport(path, documentName string, outcome *domain.AuditOutcome) error {
	format := domain.ReportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	writer, err := export.DefaultRegistry().Get(format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := writer.Write(f, documentName, outcome); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

func printTable(w io.Writer, outcome *domain.AuditOutcome) error {
	tally := outcome.Tally()
	fmt.Fprintf(w, "%s\n", outcome.Message)
	fmt.Fprintf(w, "%d Passed, %d Warnings, %d Issues\n", tally.Passed, tally.Warnings, tally.Failed)
	if outcome.Demo {
		fmt.Fprintln(w, "(demonstration findings)")
	}
	if len(outcome.Findings) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCATEGORY\tSTATEMENT")
	for _, f := range outcome.Findings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Severity, f.Category, f.Statement)
	}
	return tw.Flush()
}
