package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"skillkit/internal/config"
	"skillkit/internal/discovery"
	"skillkit/internal/installer"
	"skillkit/internal/projection"
)

func newInitCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the skill store for this project (or the global scope)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.Init()
			if err != nil {
				return err
			}
			verb := "initialized"
			if res.AlreadyExisting {
				verb = "already initialized"
			}
			msg := fmt.Sprintf("%s %s store at %s (targets: %s)", verb, res.Scope, res.StoreRoot, strings.Join(res.DefaultTargets, ", "))
			return print(cmd.OutOrStdout(), *jsonOutput, res, msg)
		},
	}
}

func newInstallCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var opts installer.Options
	cmd := &cobra.Command{
		Use:     "install [source]",
		Aliases: []string{"add", "i"},
		Short:   "Install a skill and its dependencies, or everything in skills.toml",
		Long: `Install a skill from a source:

  github:org/repo[#path][@branch]   GitHub repository (path selects a subdirectory)
  https://github.com/org/repo/...   GitHub URL
  registry:<name>                   remote catalog
  local:<name>                      skill already in the store
  ./dir                             skill directory on disk

Without a source, installs every skill declared in .skillkit/skills.toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			var res installer.Result
			if len(args) == 0 {
				res, err = svc.InstallFromManifest(cmd.Context())
			} else {
				res, err = svc.Install(cmd.Context(), args[0], opts)
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				if perr := print(out, true, res, ""); perr != nil {
					return perr
				}
			} else {
				printInstallResult(out, res)
			}
			if err != nil {
				return err
			}
			if failed := res.Failed(); len(failed) > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d skill(s) failed to install", len(failed))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "reinstall even if the same or a newer version is present")
	cmd.Flags().BoolVar(&opts.NoDeps, "no-deps", false, "do not install skill dependencies")
	return cmd
}

func newUninstallCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var opts installer.UninstallOptions
	var check bool
	cmd := &cobra.Command{
		Use:     "uninstall <name>",
		Aliases: []string{"remove", "rm"},
		Short:   "Remove an installed skill",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if check {
				verdict, err := svc.CanUninstall(args[0])
				if err != nil {
					return err
				}
				msg := args[0] + " can be uninstalled"
				switch {
				case !verdict.Installed:
					msg = args[0] + " is not installed"
				case !verdict.CanUninstall:
					msg = fmt.Sprintf("%s is required by %s", args[0], strings.Join(verdict.Dependents, ", "))
				}
				return print(out, *jsonOutput, verdict, msg)
			}
			res, err := svc.Uninstall(cmd.Context(), args[0], opts)
			if err != nil {
				if *jsonOutput {
					_ = print(out, true, res, "")
				}
				return err
			}
			msg := args[0] + " was not installed"
			if res.Removed {
				msg = color.GreenString("removed ") + args[0]
				if len(res.Dependents) > 0 {
					msg += color.YellowString(" (still required by %s)", strings.Join(res.Dependents, ", "))
				}
				if len(res.Orphans) > 0 {
					msg += "\nremoved orphaned dependencies: " + strings.Join(res.Orphans, ", ")
				}
			}
			return print(out, *jsonOutput, res, msg)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "remove even if other skills depend on it")
	cmd.Flags().BoolVar(&opts.RemoveOrphans, "remove-orphans", false, "also remove dependencies nothing else needs")
	cmd.Flags().BoolVar(&check, "check", false, "only report whether the skill can be removed")
	return cmd
}

func newListCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed skills",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			rows, err := svc.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, rows, "")
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(out, "no skills installed")
				return nil
			}
			for _, r := range rows {
				line := fmt.Sprintf("%s@%s", color.New(color.Bold).Sprint(r.Name), r.Version)
				if r.InstalledBy != "user" {
					line += color.New(color.Faint).Sprintf(" (dependency of %s)", strings.Join(r.DependedBy, ", "))
				}
				if r.Source != "" {
					line += "  " + r.Source
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newSearchCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var opts discovery.SearchOptions
	cmd := &cobra.Command{
		Use:     "search <query>",
		Aliases: []string{"find"},
		Short:   "Search skill catalogs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			opts.Query = strings.Join(args, " ")
			res, err := svc.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, res, "")
			}
			if len(res.Skills) == 0 {
				_, _ = fmt.Fprintln(out, "no results")
			}
			for _, s := range res.Skills {
				stars := ""
				if s.Stars != nil {
					stars = color.YellowString(" ★%d", *s.Stars)
				}
				_, _ = fmt.Fprintf(out, "%s%s  %s\n", color.New(color.Bold).Sprint(s.Name), stars, s.Source)
				if s.Description != "" {
					_, _ = fmt.Fprintf(out, "    %s\n", s.Description)
				}
			}
			for id, msg := range res.Errors {
				_, _ = fmt.Fprintln(out, color.YellowString("%s: %s", id, msg))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results (default from config)")
	cmd.Flags().StringSliceVar(&opts.Sources, "source", nil, "providers to query: priority, local, skillsmp, awesome, github")
	return cmd
}

func newSyncCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var opts projection.Options
	cmd := &cobra.Command{
		Use:   "sync [targets...]",
		Short: "Copy installed skills into tool directories (" + strings.Join(projection.Names(), ", ") + ")",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			opts.Targets = args
			res, err := svc.Sync(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				return print(out, true, res, "")
			}
			failed := 0
			for _, t := range res.Targets {
				if t.Error != "" {
					failed++
					_, _ = fmt.Fprintf(out, "%s %s\n", color.RedString(t.Target+":"), t.Error)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s %d written, %d unchanged, %d removed\n",
					color.GreenString(t.Target+":"), len(t.Written), len(t.Unchanged), len(t.Removed))
				for _, c := range t.Conflicts {
					_, _ = fmt.Fprintln(out, color.YellowString("  skipped %s: destination is not managed by skillkit", c))
				}
			}
			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("%d target(s) failed", failed)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report changes without writing")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "remove projections of skills that are no longer installed")
	return cmd
}

func newDoctorCmd(newSvc serviceFactory, jsonOutput *bool) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Check the store, state and config for problems",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report, err := svc.RunDoctor(cmd.Context(), fix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *jsonOutput {
				if err := print(out, true, report, ""); err != nil {
					return err
				}
			} else {
				for _, f := range report.Findings {
					line := fmt.Sprintf("%s [%s] %s", levelLabel(f.Level), f.Code, f.Message)
					if f.Skill != "" {
						line = fmt.Sprintf("%s [%s] %s: %s", levelLabel(f.Level), f.Code, f.Skill, f.Message)
					}
					if f.Fixed {
						line += color.GreenString(" (fixed)")
					}
					_, _ = fmt.Fprintln(out, line)
				}
				if report.Healthy {
					_, _ = fmt.Fprintln(out, color.GreenString("healthy"))
				}
			}
			if !report.Healthy {
				return &exitError{code: 1, msg: "doctor found errors; run skillkit doctor --fix"}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "repair what can be repaired")
	return cmd
}

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func newVersionCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the skillkit build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo{Version: config.Version, Commit: config.Commit, Date: config.Date}
			msg := fmt.Sprintf("skillkit %s (%s, %s)", info.Version, info.Commit, info.Date)
			return print(cmd.OutOrStdout(), *jsonOutput, info, msg)
		},
	}
}
