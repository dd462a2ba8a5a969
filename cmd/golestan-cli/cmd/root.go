package cmd

import (
	"context"
	"fmt"
	"os"

	"golestan-backend/lib/captcha"
	"golestan-backend/lib/restyutil"
	"golestan-backend/lib/scrapers/golestan"
	"golestan-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	baseUrl    string
	solverCmd  string
	solverUrl  string
	dumpDir    string
	jsonOutput bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "golestan-cli",
	Short: "golestan-cli scrapes student records and course offerings from the Golestan portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)
		_, err := telemetry.SetupFromEnv(cmd.Context(), "golestan-cli")
		if err != nil {
			return err
		}
		telemetry.InstrumentPerfStats(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&baseUrl, "base-url", golestan.DefaultBaseUrl,
		"base url of the portal",
	)
	rootCmd.PersistentFlags().StringVar(
		&solverCmd, "solver-cmd", "",
		"captcha recognizer command, receives an image path and prints the text",
	)
	rootCmd.PersistentFlags().StringVar(
		&solverUrl, "solver-url", "",
		"base url of a captcha recognizer service",
	)
	rootCmd.PersistentFlags().StringVar(
		&dumpDir, "dump-dir", "",
		"dump every http exchange into this directory",
	)
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// credentials reads the student number and password from the environment.
func credentials() (string, string, error) {
	username, ok := os.LookupEnv("GOLESTAN_USERNAME")
	if !ok {
		return "", "", fmt.Errorf("GOLESTAN_USERNAME is not set")
	}
	password, ok := os.LookupEnv("GOLESTAN_PASSWORD")
	if !ok {
		return "", "", fmt.Errorf("GOLESTAN_PASSWORD is not set")
	}
	return username, password, nil
}

func newClient(ctx context.Context) (*golestan.Client, error) {
	var solver golestan.CaptchaSolver
	switch {
	case solverCmd != "":
		solver = captcha.CommandSolver{Command: solverCmd}
	case solverUrl != "":
		solver = captcha.NewServiceSolver(solverUrl)
	default:
		return nil, fmt.Errorf("one of --solver-cmd or --solver-url is required")
	}

	opts := golestan.ClientOptions{
		BaseUrl: baseUrl,
		Solver:  solver,
	}
	if dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(dumpDir)
		if err != nil {
			return nil, err
		}
		opts.DebugOutput = output
	}
	return golestan.NewClient(opts)
}
