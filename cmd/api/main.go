package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citiescrowl/internal/config"
	"citiescrowl/internal/handler"
	"citiescrowl/internal/models"
	"citiescrowl/internal/page"
	"citiescrowl/internal/repository"
	"citiescrowl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Missing page elements cannot be recovered from
	registry, err := page.NewRegistry(page.Layout{
		Container:  config.Elements.Container,
		City:       config.Elements.City,
		Prefecture: config.Elements.Prefecture,
		CityKana:   config.Elements.CityKana,
		Map:        config.Elements.Map,
		Wiki:       config.Elements.Wiki,
	}, 1024)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid page layout")
	}

	store := loadStore(ctx, config)

	// Initialize layers
	links := service.Links{MapBase: config.Links.MapBase, WikiBase: config.Links.WikiBase}
	panel := service.Panel{
		City:       config.Elements.City,
		Prefecture: config.Elements.Prefecture,
		CityKana:   config.Elements.CityKana,
		Map:        config.Elements.Map,
		Wiki:       config.Elements.Wiki,
	}

	sampler, err := service.NewRandomSampler()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot seed sampler")
	}

	spawner := service.NewSpawnScheduler(
		store,
		sampler,
		service.NewLabelFactory(store, config.Spawn.BaseClass, panel, links),
		service.NewExpiryScheduler(nil),
		service.SpawnConfig{
			WarmUp:          config.Spawn.WarmUp,
			Interval:        config.Spawn.Interval,
			Lifetime:        config.Spawn.Lifetime,
			BurstFactor:     config.Spawn.BurstFactor,
			ReferenceHeight: config.Spawn.ReferenceHeight,
		},
	)

	stageHandler := handler.NewStageHandler(registry, spawner, 15*time.Second)
	cityHandler := handler.NewCityHandler(service.NewCityService(store, links))

	r, err := handler.NewRouter(stageHandler, cityHandler)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build router")
	}

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Int("cities", store.Count()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server exited")
}

// loadStore reads the dataset once. A failed load leaves the store empty:
// the server still answers, but no page starts spawning.
func loadStore(ctx context.Context, config config.Config) *models.RecordStore {
	var (
		cities []models.City
		err    error
	)

	switch config.Dataset.Source {
	case "postgres":
		var pool *pgxpool.Pool
		pool, err = pgxpool.New(ctx, config.DBSource)
		if err != nil {
			break
		}
		defer pool.Close()
		cities, err = repository.NewRepository(pool).LoadCities(ctx)
	default:
		client := &http.Client{Timeout: config.Dataset.Timeout}
		loader := repository.NewCSVLoader(client, config.Dataset.URL(),
			repository.WithSkipHeader(config.Dataset.SkipHeader),
			repository.WithMaxTries(config.Dataset.MaxRetries),
		)
		cities, err = loader.LoadCities(ctx)
	}

	if err != nil {
		log.Error().Err(err).Str("source", config.Dataset.Source).Msg("cannot load cities, starting with an empty dataset")
		return models.NewRecordStore(nil)
	}
	if len(cities) == 0 {
		log.Warn().Str("source", config.Dataset.Source).Msg("dataset has no valid rows")
	}

	log.Info().Int("cities", len(cities)).Str("source", config.Dataset.Source).Msg("dataset loaded")
	return models.NewRecordStore(cities)
}
