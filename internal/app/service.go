package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"

	"skillkit/internal/audit"
	"skillkit/internal/config"
	"skillkit/internal/discovery"
	"skillkit/internal/doctor"
	"skillkit/internal/installer"
	"skillkit/internal/logging"
	"skillkit/internal/projection"
	"skillkit/internal/security"
	"skillkit/internal/source"
	"skillkit/internal/state"
	storepkg "skillkit/internal/store"
)

type Options struct {
	// Global selects the user-wide store under the home directory.
	Global bool
	// ProjectRoot is the project to operate on. When empty it is found by
	// walking up from the working directory.
	ProjectRoot string
	// Home overrides the home directory used by the global scope.
	Home       string
	HTTPClient *http.Client
	// LogOutput receives diagnostic logs; stderr when nil.
	LogOutput io.Writer
	// RawBaseURL overrides where github: sources are read from.
	RawBaseURL string
	// GitHubAPIURL overrides the configured GitHub REST API, used to list
	// bundled files and to search repositories.
	GitHubAPIURL string
	// Getenv looks up credential overrides; os.LookupEnv when nil.
	Getenv func(string) (string, bool)
}

type Service struct {
	Scope config.Scope
	// Root is the directory the scope hangs off: the project root, or
	// the home directory for the global scope.
	Root   string
	Config config.Config
	Logger *slog.Logger

	Store      *storepkg.Store
	Audit      *audit.Logger
	Fetcher    *source.Resolver
	Installer  *installer.Service
	Discovery  *discovery.Manager
	Projection *projection.Syncer
	Doctor     *doctor.Service
}

func New(opts Options) (*Service, error) {
	scope, root, err := resolveRoot(opts)
	if err != nil {
		return nil, err
	}

	cfg, cfgErr := config.Load(storepkg.ConfigPath(config.ProjectStateRoot(root)))
	lookup := opts.Getenv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg = config.ApplyEnv(cfg, lookup)

	logOpts := []logging.Option{
		logging.WithLevel(logging.ParseLevel(cfg.Logging.Level)),
		logging.WithFormat(logging.ParseFormat(cfg.Logging.Format)),
	}
	if opts.LogOutput != nil {
		logOpts = append(logOpts, logging.WithOutput(opts.LogOutput))
	}
	logger := logging.New(logOpts...).With("scope", string(scope))
	if cfgErr != nil {
		logger.Warn("config unreadable, using defaults", "error", cfgErr)
	}
	st := storepkg.NewLocal(root, storepkg.WithLogger(logger))

	auditLog := audit.New(storepkg.AuditPath(st.Root()))
	client := source.NewClient(opts.HTTPClient)
	rawBase := opts.RawBaseURL
	if rawBase == "" {
		rawBase = source.DefaultRawBaseURL
	}
	if opts.GitHubAPIURL != "" {
		cfg.Discovery.GitHubAPIURL = opts.GitHubAPIURL
	}
	fetcher := &source.Resolver{
		GitHub: &source.GitHubFetcher{
			Client:     client,
			BaseURL:    rawBase,
			APIBaseURL: cfg.Discovery.GitHubAPIURL,
			Token:      cfg.Discovery.GitHubToken,
		},
		Local: &source.LocalFetcher{Store: st},
		Registry: &source.RegistryFetcher{
			Client: client,
			BaseURLs: map[string]string{
				source.DefaultRegistry:     cfg.RegistryURL,
				discovery.ProviderSkillsMP: cfg.Discovery.SkillsMPURL,
			},
		},
	}

	ttl := time.Duration(cfg.Discovery.CacheTTLSeconds) * time.Second
	manager := discovery.NewManager([]discovery.Provider{
		&discovery.PriorityProvider{Entries: cfg.Discovery.Priority},
		&discovery.LocalProvider{Store: st},
		discovery.NewSkillsMPProvider(client, cfg.Discovery.SkillsMPURL, cfg.Discovery.SkillsMPAPIKey, ttl),
		discovery.NewAwesomeProvider(client, cfg.Discovery.AwesomeListURL, ttl),
		&discovery.GitHubProvider{
			Client:  client,
			BaseURL: cfg.Discovery.GitHubAPIURL,
			Token:   cfg.Discovery.GitHubToken,
			Topic:   discovery.DefaultGitHubTopic,
			Enabled: cfg.Enabled(config.FeatureGitHubDiscovery),
		},
	},
		discovery.WithTimeout(time.Duration(cfg.Discovery.TimeoutSeconds)*time.Second),
		discovery.WithDefaultLimit(cfg.Discovery.DefaultLimit),
		discovery.WithLogger(logger),
	)

	return &Service{
		Scope:   scope,
		Root:    root,
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Audit:   auditLog,
		Fetcher: fetcher,
		Installer: &installer.Service{
			Fetcher:      fetcher,
			Audit:        auditLog,
			Logger:       logger,
			StoreOptions: []storepkg.Option{storepkg.WithLogger(logger)},
			Scanner:      security.NewScanner(cfg.Scan),
		},
		Discovery:  manager,
		Projection: &projection.Syncer{Store: st, Root: root, Audit: auditLog, Logger: logger},
		Doctor:     &doctor.Service{Store: st, ProjectRoot: root, TargetRoot: root, Audit: auditLog, Logger: logger},
	}, nil
}

func resolveRoot(opts Options) (config.Scope, string, error) {
	if opts.Global {
		home := opts.Home
		if home == "" {
			var err error
			if home, err = homedir.Dir(); err != nil {
				return "", "", fmt.Errorf("APP_HOME: %w", err)
			}
		}
		return config.ScopeGlobal, home, nil
	}
	if opts.ProjectRoot != "" {
		abs, err := filepath.Abs(opts.ProjectRoot)
		if err != nil {
			return "", "", fmt.Errorf("PRJ_ROOT: %w", err)
		}
		return config.ScopeProject, abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return config.ResolveScope(string(config.ScopeProject), cwd)
}

// InitResult reports what Init created.
type InitResult struct {
	Scope           config.Scope `json:"scope"`
	StoreRoot       string       `json:"storeRoot"`
	ManifestPath    string       `json:"manifestPath,omitempty"`
	DefaultTargets  []string     `json:"defaultTargets"`
	AlreadyExisting bool         `json:"alreadyExisting,omitempty"`
}

// Init creates the store and, for a project, an empty skills.toml. On a
// fresh store the detected tool directories become the default targets.
func (s *Service) Init() (InitResult, error) {
	existed := s.Store.IsInitialized()
	if err := s.Store.Init(); err != nil {
		return InitResult{}, err
	}
	res := InitResult{Scope: s.Scope, StoreRoot: s.Store.Root(), AlreadyExisting: existed}
	if s.Scope == config.ScopeProject {
		path := config.ProjectManifestPath(s.Root)
		if _, err := os.Stat(path); err != nil {
			if err := config.SaveProjectManifest(s.Root, config.DefaultProjectManifest()); err != nil {
				return InitResult{}, err
			}
		}
		res.ManifestPath = path
	}
	if !existed {
		if detected := projection.Detect(s.Root); len(detected) > 0 {
			targets := make([]string, 0, len(detected))
			for _, d := range detected {
				targets = append(targets, d.Name)
			}
			cfg := s.Store.LoadConfig()
			cfg.DefaultTargets = targets
			if err := s.Store.SaveConfig(cfg); err != nil {
				return InitResult{}, err
			}
			s.Config.DefaultTargets = targets
		}
	}
	res.DefaultTargets = s.Store.LoadConfig().DefaultTargets
	return res, nil
}

// Install installs src with its dependencies. In a project the source is
// recorded in skills.toml once the requested skill is in place.
func (s *Service) Install(ctx context.Context, src string, opts installer.Options) (installer.Result, error) {
	res, err := s.Installer.Install(ctx, s.Root, src, opts)
	if err != nil {
		return res, err
	}
	if s.Scope == config.ScopeProject && len(res.Items) > 0 {
		root := res.Items[0]
		if err := s.recordInManifest(root.Source); err != nil {
			return res, err
		}
	}
	s.autoSync(ctx, res)
	return res, nil
}

// InstallFromManifest installs whatever skills.toml declares and the store
// lacks.
func (s *Service) InstallFromManifest(ctx context.Context) (installer.Result, error) {
	res, err := s.Installer.InstallFromConfig(ctx, s.Root)
	if err != nil {
		return res, err
	}
	s.autoSync(ctx, res)
	return res, nil
}

func (s *Service) recordInManifest(src string) error {
	m, err := config.LoadProjectManifest(s.Root)
	if err != nil {
		return err
	}
	for _, e := range m.Skills {
		if e.Source == src {
			return nil
		}
	}
	config.UpsertManifestSkill(&m, config.ProjectSkillEntry{Source: src})
	return config.SaveProjectManifest(s.Root, m)
}

func (s *Service) autoSync(ctx context.Context, res installer.Result) {
	if !s.Config.Enabled(config.FeatureAutoSync) {
		return
	}
	var changed []string
	for _, it := range res.Items {
		if it.Status == installer.StatusInstalled || it.Status == installer.StatusUpdated {
			changed = append(changed, it.Name)
		}
	}
	if len(changed) == 0 {
		return
	}
	if _, err := s.Projection.Sync(ctx, projection.Options{Skills: changed}); err != nil {
		s.Logger.Warn("auto sync failed", "error", err)
	}
}

// CanUninstall reports whether name could be removed without --force.
func (s *Service) CanUninstall(name string) (installer.UninstallCheck, error) {
	return s.Installer.CanUninstall(s.Root, name)
}

// Uninstall removes name, drops its managed projections and, in a
// project, its skills.toml entry. Orphans removed by the cascade are
// cleaned up the same way.
func (s *Service) Uninstall(ctx context.Context, name string, opts installer.UninstallOptions) (installer.UninstallResult, error) {
	before, _ := state.Load(s.Root)
	res, err := s.Installer.Uninstall(ctx, s.Root, name, opts)
	if err != nil || !res.Removed {
		return res, err
	}
	removed := append([]string{name}, res.Orphans...)
	for _, n := range removed {
		if _, err := s.Projection.Remove(n, nil); err != nil {
			s.Logger.Warn("cannot remove projection", "skill", n, "error", err)
		}
	}
	if s.Scope != config.ScopeProject {
		return res, nil
	}
	m, err := config.LoadProjectManifest(s.Root)
	if err != nil {
		return res, err
	}
	changed := false
	for _, n := range removed {
		for _, src := range manifestSources(m, before, n) {
			if config.RemoveManifestSkill(&m, src) {
				changed = true
			}
		}
	}
	if changed {
		return res, config.SaveProjectManifest(s.Root, m)
	}
	return res, nil
}

// manifestSources returns the skills.toml sources that install name.
func manifestSources(m config.ProjectManifest, before *state.State, name string) []string {
	var out []string
	for _, e := range m.Skills {
		if e2, ok := before.Get(name); ok && e2.Source == e.Source {
			out = append(out, e.Source)
			continue
		}
		if ref, err := source.Parse(e.Source); err == nil && ref.SkillName() == name {
			out = append(out, e.Source)
		}
	}
	return out
}

// ListedSkill is one row of List.
type ListedSkill struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Description     string   `json:"description,omitempty"`
	Source          string   `json:"source,omitempty"`
	InstalledBy     string   `json:"installedBy"`
	DependedBy      []string `json:"dependedBy"`
	SyncedPlatforms []string `json:"syncedPlatforms"`
}

// List joins the store with the dependency state, sorted by name.
func (s *Service) List() ([]ListedSkill, error) {
	installed, err := s.Store.ListSkills()
	if err != nil {
		return nil, err
	}
	st, err := state.Load(s.Root)
	if err != nil {
		s.Logger.Warn("state unreadable, dependency columns are empty", "error", err)
	}
	out := make([]ListedSkill, 0, len(installed))
	for _, it := range installed {
		row := ListedSkill{
			Name:            it.Skill.Name,
			Version:         it.Skill.Version,
			Description:     it.Skill.Description,
			Source:          it.Entry.SourceURL,
			InstalledBy:     state.InstalledByUser,
			DependedBy:      st.Dependents(it.Skill.Name),
			SyncedPlatforms: it.Entry.SyncedPlatforms,
		}
		if e, ok := st.Get(it.Skill.Name); ok {
			row.InstalledBy = e.InstalledBy
			if e.Source != "" {
				row.Source = e.Source
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, opts discovery.SearchOptions) (discovery.SearchResult, error) {
	return s.Discovery.Search(ctx, opts)
}

func (s *Service) Sync(ctx context.Context, opts projection.Options) (projection.Result, error) {
	return s.Projection.Sync(ctx, opts)
}

func (s *Service) RunDoctor(ctx context.Context, fix bool) (doctor.Report, error) {
	return s.Doctor.Run(ctx, doctor.Options{Fix: fix})
}
