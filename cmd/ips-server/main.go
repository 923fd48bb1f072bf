package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/ips/internal/config"
	"github.com/ehr/ips/internal/platform/flatten"
	"github.com/ehr/ips/internal/platform/ips"
	"github.com/ehr/ips/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ips-server",
		Short: "International Patient Summary API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(flattenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient summary API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// summarizeCmd assembles an IPS document from a record bundle on disk and
// prints the document bundle to stdout.
func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [bundle.json]",
		Short: "Assemble an IPS document bundle from a record bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timezone, _ := cmd.Flags().GetString("timezone")
			aggressive, _ := cmd.Flags().GetBool("aggressive")

			bundle, err := readBundleFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if timezone == "" {
				timezone = cfg.DefaultTimezone
			}

			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
			builder := ips.NewSummaryBuilder(logger)
			if aggressive {
				builder.UseAggressiveMinification()
			}
			if _, err := builder.ReadBundle(bundle, timezone); err != nil {
				return err
			}
			doc, err := builder.BuildBundle(cfg.OrgID, cfg.OrgName, cfg.BaseURL, timezone)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().String("timezone", "", "IANA timezone for narrative dates")
	cmd.Flags().Bool("aggressive", false, "Use aggressive narrative minification")
	return cmd
}

// flattenCmd projects one resource type from a bundle file into CSV on stdout.
func flattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten [bundle.json]",
		Short: "Flatten bundle resources of one type into CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			if _, ok := flatten.ExtractorFor(kind); !ok {
				return fmt.Errorf("unsupported resource type %q", kind)
			}

			bundle, err := readBundleFile(args[0])
			if err != nil {
				return err
			}

			return flatten.BundleToCSV(os.Stdout, bundle, kind)
		},
	}
	cmd.Flags().String("type", "Patient", "FHIR resource type to flatten")
	return cmd
}

func readBundleFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var bundle map[string]interface{}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	return bundle, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "20M"))
	e.Use(middleware.RequestTimeout(60 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Summary operations
	fhirGroup := e.Group("/fhir")
	summaryHandler := ips.NewSummaryHandler(cfg.OrgID, cfg.OrgName, cfg.BaseURL, logger)
	summaryHandler.RegisterRoutes(fhirGroup)

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
	return e.Start(":" + cfg.Port)
}
