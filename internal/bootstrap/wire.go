package bootstrap

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"introspect/internal/audio"
	"introspect/internal/config"
	"introspect/internal/history"
	"introspect/internal/imagecodec"
	"introspect/internal/logging"
	"introspect/internal/ports"
	"introspect/internal/providers/insights"
	"introspect/internal/settings"
	"introspect/internal/usecase"
	"introspect/internal/vitals"
)

// Options are the process level overrides that come from flags.
type Options struct {
	ConfigFile string
	LogDir     string
	// Console mirrors logs to a terminal when set.
	Console io.Writer
	// ReplayDir forces the recorded session source.
	ReplayDir string
}

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	History    *history.SQLiteStore
	Settings   *settings.Store
	// Feed is set when vitals are pushed by the host rather than replayed.
	Feed   *vitals.Feed
	Logger zerolog.Logger

	closers []io.Closer
}

// Close releases the history database and the log file.
func (s Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, opts Options) (services Services, rErr error) {
	cfg, err := config.Load(config.LoadOptions{File: opts.ConfigFile})
	if err != nil {
		return Services{}, err
	}
	if opts.ReplayDir != "" {
		cfg.Vitals.ReplayDir = opts.ReplayDir
	}

	defer func() {
		if rErr != nil {
			_ = services.Close()
			services = Services{}
		}
	}()

	logDir := opts.LogDir
	if logDir == "" {
		logDir = cfg.Log.Dir
	}
	logDir, err = logging.ResolveDir(logDir)
	if err != nil {
		return services, err
	}
	logger, logFile, err := logging.New(logging.Options{Dir: logDir, Level: cfg.Log.Level, Console: opts.Console})
	if err != nil {
		return services, err
	}
	services.closers = append(services.closers, logFile)
	services.Logger = logger
	services.Config = cfg

	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return services, err
	}
	services.closers = append(services.closers, store)
	services.History = store

	prefs, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return services, err
	}
	services.Settings = prefs

	var source ports.VitalsSource
	if cfg.Vitals.ReplayDir != "" {
		source = vitals.NewReplay(vitals.ReplayConfig{
			Dir:    cfg.Vitals.ReplayDir,
			Period: cfg.Vitals.ReplayPeriod,
			Loop:   cfg.Vitals.ReplayLoop,
		}, logger)
	} else {
		services.Feed = vitals.NewFeed()
		source = services.Feed
	}

	var player ports.AudioPlayer = audio.NopPlayer{}
	if cfg.Audio.Enabled {
		player = audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand)
	}

	services.Controller = usecase.NewSessionController(
		usecase.Deps{
			Source:   source,
			Encoder:  imagecodec.NewEncoder(cfg.Image.MaxDimension, cfg.Image.Quality),
			Service:  insights.NewClient(insights.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, logger),
			Player:   player,
			History:  store,
			Settings: prefs,
			Events:   eventSink,
			Logger:   logger,
		},
		usecase.Config{TickInterval: cfg.Session.TickInterval},
	)

	logger.Info().
		Str("api", cfg.API.BaseURL).
		Dur("tick_interval", cfg.Session.TickInterval).
		Str("history", cfg.History.Path).
		Bool("replay", cfg.Vitals.ReplayDir != "").
		Msg("services_ready")
	return services, nil
}
