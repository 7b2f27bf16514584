package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/plugward/plugward/internal/conf"
	logutil "github.com/plugward/plugward/internal/log"
	"github.com/plugward/plugward/internal/manifest"
	"github.com/plugward/plugward/internal/security"
	"github.com/plugward/plugward/internal/security/integrity"
	"github.com/plugward/plugward/internal/security/validator"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// InspectCmd runs the admission checks against a manifest file without
// touching the database or starting the server.
var InspectCmd = &cobra.Command{
	Use:   "inspect <manifest.json>",
	Short: "Validate and verify a manifest offline",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var v *validator.Validator
		var iv *integrity.Verifier
		fxApp := fx.New(
			conf.FxModule(),
			security.FxModule(),
			fx.NopLogger,
			fx.Populate(&v, &iv),
		)
		err := runFxWith(context.Background(), fxApp, 5*time.Second, func(_ context.Context) error {
			return inspectManifest(args[0], v, iv)
		})
		if err != nil {
			cmd.PrintErrln(err)
			os.Exit(1)
		}
	},
}

func inspectManifest(path string, v *validator.Validator, iv *integrity.Verifier) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	res := v.Validate(&m)
	for _, e := range res.Errors {
		fmt.Println(logutil.Red("error: %s", e))
	}
	for _, w := range res.Warnings {
		fmt.Println(logutil.Yellow("warning: %s", w))
	}
	if res.Valid {
		fmt.Println(logutil.Green("validation passed (level %s)", res.Level))
	} else {
		return fmt.Errorf("validation failed with %d errors", len(res.Errors))
	}

	report := integrity.NewReport(m.Id, iv.Verify(&m))
	for _, c := range report.Checks {
		line := fmt.Sprintf("%-14s %s  %s", c.Name, c.Status, c.Message)
		if c.Status == "PASS" {
			fmt.Println(logutil.Gray("%s", line))
		} else {
			fmt.Println(logutil.Red("%s", line))
		}
	}
	for _, r := range report.Recommendations {
		fmt.Println(logutil.Cyan("hint: %s", r))
	}
	if !report.Passed {
		return fmt.Errorf("integrity verification failed: %s", report.Summary)
	}
	fmt.Println(logutil.Green("%s", report.Summary))
	return nil
}

func init() {
	RootCmd.AddCommand(InspectCmd)
}
