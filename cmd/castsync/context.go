package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"castsync/internal/config"
	"castsync/internal/importer"
	"castsync/internal/library"
	"castsync/internal/logging"
	"castsync/internal/notifications"
	"castsync/internal/opencast"
	"castsync/internal/provision"
	"castsync/internal/sbs"
	"castsync/internal/seriessync"
	"castsync/internal/workflows"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// services bundles the wired subsystems commands operate on.
type services struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *library.Store
	client    *opencast.Client
	notifier  notifications.Service
	series    *seriessync.Service
	importer  *importer.Service
	workflows *workflows.Service
}

// withServices builds the full service graph for one command invocation and
// tears it down afterwards.
func (c *commandContext) withServices(fn func(*services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	store, err := library.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := buildClient(cfg, logger)
	notifier := notifications.NewService(cfg)

	seriesSvc := seriessync.New(store, client, cfg.Import.DefaultLanguage, cfg.Import.OtherLocales, logger)

	mapper := sbs.NewMapper(cfg.URLMapping, cfg.SBS.ErrorIfFileNotExist)
	sbsSvc := sbs.NewService(cfg.SBS, mapper, sbs.NewHTTPSubmitter(cfg.SBS.EncoderURL), store, cfg.Import.DefaultLanguage, logger)

	imp := importer.New(client, store, seriesSvc, sbsSvc, importer.NewFFProbeInspector(""), cfg.Import, logger)
	imp.AddSink(importer.NewNotifierSink(notifier, cfg.Import.DefaultLanguage))

	return fn(&services{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		notifier:  notifier,
		series:    seriesSvc,
		importer:  imp,
		workflows: workflows.New(client, store, cfg.Opencast.DeleteArchiveMediaPackage, cfg.Opencast.DeletionWorkflowName, logger),
	})
}

func buildClient(cfg *config.Config, logger *slog.Logger) *opencast.Client {
	opts := []opencast.Option{
		opencast.WithLogger(logger),
		opencast.WithInsecure(cfg.Opencast.Insecure),
		opencast.WithTimeouts(
			time.Duration(cfg.Opencast.ConnectTimeout)*time.Second,
			time.Duration(cfg.Opencast.RequestTimeout)*time.Second),
		opencast.WithPaths(cfg.Opencast.PlayerPath, cfg.Opencast.SchedulerPath, cfg.Opencast.DashboardPath),
		opencast.WithDeletionPolicy(cfg.Opencast.DeletionWorkflowName, cfg.Opencast.DeleteArchiveMediaPackage),
		opencast.WithUserManagement(cfg.Opencast.ManageUsers, cfg.Opencast.UserPassword),
	}
	if cfg.Opencast.Username != "" {
		opts = append(opts, opencast.WithCredentials(cfg.Opencast.Username, cfg.Opencast.Password))
	}
	if cfg.Opencast.AdminURL != "" {
		opts = append(opts, opencast.WithAdminURL(cfg.Opencast.AdminURL))
	}
	if len(cfg.Opencast.RoleHierarchy) > 0 {
		opts = append(opts, opencast.WithRoleResolver(provision.NewRoleHierarchy(cfg.Opencast.RoleHierarchy)))
	}
	return opencast.New(cfg.Opencast.Host, opts...)
}
