package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Afrawles/trackreport/internal/api"
	"github.com/Afrawles/trackreport/internal/app"
	"github.com/Afrawles/trackreport/internal/client"
	"github.com/Afrawles/trackreport/internal/config"
	"github.com/Afrawles/trackreport/internal/report"
)

var (
	configFile string

	projectID  string
	reportType string
	format     string
	startDate  string
	endDate    string
	output     string
	serverURL  string
	apiToken   string

	tokenUser string
	tokenOrg  string
	tokenTTL  time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "trackreport",
	Short:         "Project analytics reports for the issue tracker",
	Long:          `trackreport aggregates sprints, issues and time logs into velocity, resolution, team and time reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the report API (and scheduled exports when configured)",
		RunE:  runServe,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Fetch a report from the API and write it to disk",
		RunE:  runExport,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local use",
		RunE:  runToken,
	}
)

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")
	rootCmd.AddCommand(serveCmd, exportCmd, migrateCmd, tokenCmd)

	exportCmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	exportCmd.Flags().StringVarP(&reportType, "type", "t", string(api.DefaultReportType), "Report type: velocity, resolution, team, time")
	exportCmd.Flags().StringVarP(&format, "format", "f", string(api.DefaultFormat), "Output format: pdf, csv, xlsx, json")
	exportCmd.Flags().StringVarP(&startDate, "from", "s", "", "Start date (YYYY-MM-DD), default 30 days ago")
	exportCmd.Flags().StringVarP(&endDate, "to", "e", "", "End date (YYYY-MM-DD), default today")
	exportCmd.Flags().StringVarP(&output, "out", "o", "", "Output directory (default export.output_dir)")
	exportCmd.Flags().StringVar(&serverURL, "server", "", "API base URL (default client.base_url)")
	exportCmd.Flags().StringVar(&apiToken, "token", "", "Bearer token (default client.token)")
	_ = exportCmd.MarkFlagRequired("project")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (token subject)")
	tokenCmd.Flags().StringVar(&tokenOrg, "org", "", "Organization ID")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("org")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg).Serve(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	bar := newSpinner("Applying migrations")
	err = app.New(cfg).Migrate(cmd.Context())
	finishBar(bar)
	if err != nil {
		return err
	}
	fmt.Println("Migrations applied")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	token, err := app.New(cfg).MintToken(tokenUser, tokenOrg, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	now := time.Now()
	start, err := parseDate(startDate, now.AddDate(0, 0, -30), false)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDate(endDate, now, true)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	c := client.New(firstNonEmpty(serverURL, cfg.Client.BaseURL), firstNonEmpty(apiToken, cfg.Client.Token), cfg.Client.Timeout)

	fmt.Printf("Generating %s report for project %s (%s to %s)\n",
		reportType, projectID, start.Format(time.DateOnly), end.Format(time.DateOnly))

	bar := newSpinner("Fetching report")
	env, _, err := c.FetchReport(cmd.Context(), api.ExportRequest{
		ProjectID:  projectID,
		DateRange:  api.DateRange{From: start, To: end},
		ReportType: reportType,
		Format:     string(f),
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	out, err := report.NewExporter().Export(env, f)
	if err != nil {
		return err
	}
	path, err := report.WriteFile(firstNonEmpty(output, cfg.Export.OutputDir), out)
	if err != nil {
		return err
	}

	fmt.Printf("\nReport written to %s\n\n", path)
	return printSummary(os.Stdout, env)
}
