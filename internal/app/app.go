package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/yaml"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	errW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	executor *executor.Executor
}

// LoaderFor picks the configuration loader for path by its extension.
// Directories and .hcl files use HCL.
func LoaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.NewLoader()
	default:
		return hcl.NewLoader()
	}
}

// NewApp loads and validates the configuration and returns a ready App.
// outW receives command output such as `list`; errW receives logs and the
// per-step status list. Any configuration problem is returned before
// anything is written. With no modules given, the core modules are used.
func NewApp(outW, errW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if loader == nil {
		loader = LoaderFor(appConfig.ConfigPath)
	}
	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Settings may now refine the bootstrap logger.
	level, format := model.Settings.LogLevel, model.Settings.LogFormat
	if appConfig.LogLevel != "" {
		level = appConfig.LogLevel
	}
	if appConfig.LogFormat != "" {
		format = appConfig.LogFormat
	}
	logger = newLogger(level, format, errW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Configuration loaded and translated into unified model.", "path", appConfig.ConfigPath)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.PopulateFromModel(model); err != nil {
		return nil, err
	}
	if err := reg.Validate(ctx, model.Settings.OutputRoot); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		registry: reg,
		model:    model,
		executor: executor.New(reg, model.Settings.Workers, model.Settings.PlanTimeout),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded configuration.
func (a *App) Model() *config.Model {
	return a.model
}
