package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"skillkit/internal/installer"
	"skillkit/internal/skillerr"
)

func print(out io.Writer, jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(blob))
		return nil
	}
	if message != "" {
		_, _ = fmt.Fprintln(out, message)
	}
	return nil
}

func statusLabel(s installer.Status) string {
	switch s {
	case installer.StatusInstalled:
		return color.GreenString("installed")
	case installer.StatusUpdated:
		return color.CyanString("updated")
	case installer.StatusFailed:
		return color.RedString("failed")
	default:
		return color.New(color.Faint).Sprint(string(s))
	}
}

func levelLabel(level string) string {
	switch level {
	case "error":
		return color.RedString("ERROR")
	case "warn":
		return color.YellowString("WARN")
	default:
		return color.New(color.Faint).Sprint("INFO")
	}
}

func errorLabel(err error) string {
	if kind := skillerr.KindOf(err); kind != skillerr.KindUnknown {
		return color.RedString("error (%s): ", kind) + err.Error()
	}
	return color.RedString("error: ") + err.Error()
}

func printInstallResult(out io.Writer, res installer.Result) {
	if len(res.Items) == 0 {
		_, _ = fmt.Fprintln(out, "nothing to install")
		return
	}
	for _, it := range res.Items {
		name := it.Name
		if name == "" {
			name = it.Source
		}
		line := fmt.Sprintf("%-10s %s", statusLabel(it.Status), name)
		if it.Version != "" {
			line += "@" + it.Version
		}
		if it.InstalledBy != "" && it.InstalledBy != "user" {
			line += color.New(color.Faint).Sprintf(" (required by %s)", it.InstalledBy)
		}
		_, _ = fmt.Fprintln(out, line)
		if it.Error != "" {
			_, _ = fmt.Fprintf(out, "           %s\n", it.Error)
		}
		for _, f := range it.Findings {
			_, _ = fmt.Fprintln(out, color.YellowString("           scan %s %s: %s", f.Severity, f.RuleID, f.Description))
		}
		if len(it.MissingTools) > 0 {
			_, _ = fmt.Fprintln(out, color.YellowString("           missing tools on PATH: %v", it.MissingTools))
		}
	}
}
