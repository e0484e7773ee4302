package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/younsl/lamstat/internal/config"
	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/internal/version"
	"github.com/younsl/lamstat/pkg/aws"
	"github.com/younsl/lamstat/pkg/formatter"
	"github.com/younsl/lamstat/pkg/output"
	"github.com/younsl/lamstat/pkg/pipeline"
	"github.com/younsl/lamstat/pkg/report"
	"github.com/younsl/lamstat/pkg/utils"
)

// Command-line values; applied over the loaded config only when set
var (
	configPath    string
	functions     []string
	region        string
	mode          string
	lookback      string
	startDate     string
	endDate       string
	period        int32
	outputDir     string
	filterPattern string
	s3Bucket      string
	s3Prefix      string
	logLevel      string
	allFunctions  bool
	showModes     bool
	showVersion   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lamstat",
		Short: "Extract Lambda execution telemetry from CloudWatch into CSV",
		Long: `lamstat collects per-invocation REPORT records, Logs Insights rows or
CloudWatch metric statistics for AWS Lambda functions and writes one CSV
file per function.`,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringSliceVarP(&functions, "functions", "f", nil, "Lambda function names (comma separated)")
	flags.StringVarP(&region, "region", "r", "", "AWS region (default from AWS_REGION, else ap-northeast-2)")
	flags.StringVarP(&mode, "mode", "m", "", "Extraction mode: logs, insights, metrics, series (default logs)")
	flags.StringVar(&lookback, "lookback", "", "Lookback period, e.g. 30d, 12h, 1y or all (default 30d)")
	flags.StringVar(&startDate, "start", "", "Window start, YYYY-MM-DD or RFC3339 (overrides --lookback)")
	flags.StringVar(&endDate, "end", "", "Window end, YYYY-MM-DD or RFC3339 (default now)")
	flags.Int32Var(&period, "period", 0, "Metric period in seconds, multiple of 60 (default 3600)")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "Directory for CSV files (default .)")
	flags.StringVar(&filterPattern, "filter-pattern", "", "CloudWatch Logs filter pattern for logs mode")
	flags.StringVar(&s3Bucket, "s3-bucket", "", "Also upload each CSV to this S3 bucket")
	flags.StringVar(&s3Prefix, "s3-prefix", "", "Key prefix for S3 uploads")
	flags.BoolVar(&allFunctions, "all-functions", false, "Extract every Lambda function in the region")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	flags.BoolVarP(&showModes, "list-modes", "l", false, "List extraction modes")
	flags.BoolVarP(&showVersion, "version", "v", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	if showModes {
		formatter.PrintModeTable(os.Stdout)
		fmt.Println("\nExample usage:")
		fmt.Printf("  %s --mode insights --functions my-func --lookback 7d\n", os.Args[0])
		return nil
	}

	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	if err := setLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	window, err := cfg.Window(time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := aws.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return err
	}

	if allFunctions {
		discovered, err := aws.ListFunctions(ctx, aws.NewLambdaClient(awsCfg))
		if err != nil {
			return err
		}
		fmt.Printf("Found %d Lambda functions in %s\n", len(discovered), cfg.Region)
		formatter.PrintFunctionTable(os.Stdout, discovered)
		fmt.Println()

		cfg.Functions = nil
		for _, f := range discovered {
			cfg.Functions = append(cfg.Functions, f.FunctionName)
		}
	}

	source, err := newSource(cfg, awsCfg, window)
	if err != nil {
		return err
	}

	fmt.Printf("Extracting %s for %d functions in %s (%s), %s\n",
		cfg.Mode, len(cfg.Functions), cfg.Region, utils.GetRegionDescriptiveName(cfg.Region), window)

	extractor := pipeline.NewExtractor(source, output.NewFileWriter(cfg.OutputDir))
	extractor.SetProgress(log.IsLevelEnabled(log.InfoLevel) && !log.IsLevelEnabled(log.DebugLevel))
	if cfg.S3Bucket != "" {
		extractor.SetPublisher(aws.NewS3Publisher(aws.NewS3Client(awsCfg), cfg.S3Bucket, cfg.S3Prefix))
	}

	runStart := time.Now()
	results := extractor.Run(ctx, cfg.Functions)

	fmt.Println()
	formatter.PrintSummaryTable(os.Stdout, results, runStart, time.Since(runStart))
	return nil
}

// applyFlags copies explicitly set flags over cfg
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("functions") {
		var names []string
		for _, f := range functions {
			names = append(names, config.SplitList(f)...)
		}
		cfg.Functions = names
	}
	if changed("region") {
		cfg.Region = region
	}
	if changed("mode") {
		cfg.Mode = strings.ToLower(mode)
	}
	if changed("lookback") {
		cfg.Lookback = lookback
	}
	if changed("start") {
		cfg.Start = startDate
	}
	if changed("end") {
		cfg.End = endDate
	}
	if changed("period") {
		cfg.Period = period
	}
	if changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if changed("filter-pattern") {
		cfg.FilterPattern = filterPattern
	}
	if changed("s3-bucket") {
		cfg.S3Bucket = s3Bucket
	}
	if changed("s3-prefix") {
		cfg.S3Prefix = s3Prefix
	}
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

func setLogLevel(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	log.SetOutput(os.Stderr)
	return nil
}

// newSource builds the Source for the configured mode
func newSource(cfg *config.Config, awsCfg awssdk.Config, window utils.Window) (pipeline.Source, error) {
	switch cfg.Mode {
	case models.ModeLogs:
		return aws.NewLogStreamSource(aws.NewLogsClient(awsCfg), report.NewReconciler(nil), aws.LogStreamOptions{
			Window:        window,
			PageSize:      cfg.PageSize,
			FilterPattern: cfg.FilterPattern,
		}), nil
	case models.ModeInsights:
		return aws.NewInsightsSource(aws.NewLogsClient(awsCfg), aws.InsightsOptions{
			Window:       window,
			Limit:        cfg.QueryLimit,
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
		}), nil
	case models.ModeMetrics, models.ModeSeries:
		opts := aws.MetricOptions{
			Window:  window,
			Metrics: cfg.Metrics,
			Stat:    cfg.SeriesStat,
			Period:  cfg.Period,
		}
		for _, s := range cfg.Statistics {
			opts.Statistics = append(opts.Statistics, cwTypes.Statistic(s))
		}
		if cfg.Mode == models.ModeSeries {
			return aws.NewMetricSeriesSource(aws.NewMetricsClient(awsCfg), opts), nil
		}
		return aws.NewMetricStatisticsSource(aws.NewMetricsClient(awsCfg), opts), nil
	default:
		return nil, fmt.Errorf("unsupported mode %q", cfg.Mode)
	}
}
