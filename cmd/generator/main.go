package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"eventplatform/internal/cache"
	"eventplatform/internal/config"
	"eventplatform/internal/database"
	"eventplatform/internal/logger"
	"eventplatform/internal/messaging"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
	"eventplatform/internal/repository"
	"eventplatform/internal/service"
)

var (
	organizer = flag.String("organizer", "", "Username of the organizer who owns the generated events")
	count     = flag.Int("count", 25, "Number of demo events to generate")
	seed      = flag.Int64("seed", 0, "Random seed (0 = current time)")
	dryRun    = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

var (
	demoTitles    = []string{"Jornada", "Encuentro", "Festival", "Sesión", "Ciclo", "Noche", "Foro"}
	demoTopics    = []string{"de jazz", "de innovación", "de fotografía", "de cocina", "de robótica", "de teatro", "de poesía"}
	demoLocations = []string{"Madrid", "Barcelona", "Sevilla", "Valencia", "Bilbao", "Zaragoza", "Málaga"}
	demoStates    = []string{models.EventStatePublished, models.EventStatePublished, models.EventStatePublished, models.EventStateDraft}
)

// generator рассылает демо-события через сервисный слой, чтобы сработали валидация и публикация в NATS
func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if *organizer == "" {
		logger.Fatal("The -organizer flag is required")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	valkey, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		logger.Fatal("Failed to connect to valkey", "error", err)
	}
	defer valkey.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	repos := repository.NewRepositories(db)
	services := service.NewServices(service.Deps{
		Events:        repos.Events,
		EventTypes:    repos.EventTypes,
		Registrations: repos.Registrations,
		Users:         repos.Users,
		Sessions:      valkey,
		Publisher:     natsClient,
	})

	ctx := context.Background()
	user, err := repos.Users.GetByUsername(ctx, *organizer)
	if err != nil {
		logger.Fatal("Failed to load organizer", "username", *organizer, "error", err)
	}

	types, err := repos.EventTypes.List(ctx)
	if err != nil || len(types) == 0 {
		logger.Fatal("No event types available, run setup first", "error", err)
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	requests := demoRequests(rand.New(rand.NewSource(s)), types, *count, time.Now())

	p := permissions.NewPrincipal(user.UserID, user.Username, user.Groups)
	created, err := generate(ctx, services.Events, p, requests, *dryRun)
	if err != nil {
		logger.Fatal("Event generation failed", "error", err, "created", created)
	}

	slog.Info("Event generation completed", "created", created, "dry_run", *dryRun)
}

type eventCreator interface {
	Create(ctx context.Context, p permissions.Principal, req *models.EventRequest) (*models.EventResponse, error)
}

func generate(ctx context.Context, events eventCreator, p permissions.Principal, requests []*models.EventRequest, dryRun bool) (int, error) {
	created := 0
	for _, req := range requests {
		if dryRun {
			slog.Info("[DRY RUN] Would create event", "title", req.Title, "start", req.StartTime.Time, "capacity", *req.MaxCapacity)
			continue
		}

		event, err := events.Create(ctx, p, req)
		if err != nil {
			return created, fmt.Errorf("failed to create %q: %w", req.Title, err)
		}
		created++
		slog.Debug("Generated event", "event_id", event.ID, "title", event.Title)
	}
	return created, nil
}

// demoRequests builds n events spread over the next 90 days
func demoRequests(rng *rand.Rand, types []models.EventType, n int, now time.Time) []*models.EventRequest {
	requests := make([]*models.EventRequest, 0, n)
	for i := 0; i < n; i++ {
		start := now.Add(time.Duration(rng.Intn(90*24)+1) * time.Hour).Truncate(time.Hour)
		capacity := (rng.Intn(20) + 1) * 10
		location := demoLocations[rng.Intn(len(demoLocations))]

		visibility := models.VisibilityPublic
		if rng.Intn(5) == 0 {
			visibility = models.VisibilityPrivate
		}

		price := "0"
		if rng.Intn(2) == 0 {
			price = fmt.Sprintf("%d.%02d", rng.Intn(80)+5, rng.Intn(100))
		}

		eventType := types[rng.Intn(len(types))]
		title := fmt.Sprintf("%s %s #%d", demoTitles[rng.Intn(len(demoTitles))], demoTopics[rng.Intn(len(demoTopics))], i+1)

		requests = append(requests, &models.EventRequest{
			Title:       title,
			Description: fmt.Sprintf("%s en %s. Evento de demostración.", eventType.Name, location),
			EventTypeID: eventType.ID,
			StartTime:   models.FlexibleTime{Time: start},
			EndTime:     models.FlexibleTime{Time: start.Add(time.Duration(rng.Intn(4)+1) * time.Hour)},
			Location:    location,
			MaxCapacity: &capacity,
			State:       demoStates[rng.Intn(len(demoStates))],
			Visibility:  visibility,
			Price:       price,
		})
	}
	return requests
}
