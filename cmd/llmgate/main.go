// Command llmgate runs one chat task from an input file, optionally enforces
// a JSON Schema on the output, and writes a result envelope. Built for CI
// pipelines: exit code 0 means a valid result was written, anything else
// means the pipeline should fail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/llmgate/llmgate"
	"github.com/llmgate/llmgate/config"
	"github.com/llmgate/llmgate/internal/runio"
	"github.com/llmgate/llmgate/types"
)

var (
	inputFile  string
	schemaFile string
	outputFile string
	configFile string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "llmgate",
		Short: "Run a chat task with schema enforcement and backend fallback",
		RunE:  run,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Flags().StringVar(&inputFile, "input-file", "", "task file with messages (JSON or YAML)")
	root.Flags().StringVar(&schemaFile, "schema-file", "", "JSON Schema to enforce on the output")
	root.Flags().StringVar(&outputFile, "output-file", "", "result file; stdout when empty")
	root.Flags().StringVar(&configFile, "config", "", "YAML config file; environment otherwise")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.MarkFlagRequired("input-file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := buildLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, _, err := runio.LoadInput(inputFile)
	if err != nil {
		return err
	}

	var schema map[string]any
	if schemaFile != "" {
		schema, err = runio.LoadSchema(schemaFile)
		if err != nil {
			return err
		}
	}

	result, err := llmgate.Run(ctx, llmgate.Options{
		Config:  cfg,
		History: history,
		Schema:  schema,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("task failed",
			zap.String("error_code", string(types.GetErrorCode(err))),
			zap.Error(err),
		)
		// Best effort failure envelope for the pipeline to inspect
		_ = runio.WriteOutput(outputFile, &runio.Output{
			Success: false,
			Metadata: map[string]any{
				"error":      err.Error(),
				"error_code": string(types.GetErrorCode(err)),
			},
		})
		return err
	}

	return runio.WriteOutput(outputFile, &runio.Output{
		Success:  true,
		Response: result.Value,
		Metadata: map[string]any{
			"mode":     result.Mode,
			"backend":  result.Backend,
			"attempts": result.Attempts,
			"model":    result.Model,
			"usage":    result.Usage,
			"trace_id": result.TraceID,
		},
	})
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.FromEnv(), nil
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("invalid log level %q", level))
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
