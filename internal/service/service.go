package service

import (
	"context"
	"time"

	"eventplatform/internal/logger"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/workflow"
)

// EventStore persists events. GetByID and List fill ConfirmedCount.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error)
	CountByOrganizer(ctx context.Context, organizerID int64) (total, published int, err error)
}

type EventTypeStore interface {
	List(ctx context.Context) ([]models.EventType, error)
	GetByID(ctx context.Context, id int64) (*models.EventType, error)
	Ensure(ctx context.Context, t *models.EventType) (bool, error)
}

// RegistrationStore applies workflow transitions atomically per event.
type RegistrationStore interface {
	Get(ctx context.Context, eventID, userID int64) (*models.Registration, error)
	StatesForUser(ctx context.Context, userID int64) (map[int64]string, error)
	CountForUser(ctx context.Context, userID int64) (int, error)
	Transition(ctx context.Context, eventID, userID int64, fn workflow.Transition) (*models.Registration, workflow.Outcome, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	CreateWithGroup(ctx context.Context, user *models.User, group string) error
	AddToGroup(ctx context.Context, userID int64, group string) error
	EnsureGroup(ctx context.Context, name string) error
	TouchLogin(ctx context.Context, userID int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
}

type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Publisher interface {
	Publish(subject string, data any) error
}

// EventSearcher returns candidate event ids for a text query
type EventSearcher interface {
	SearchIDs(ctx context.Context, query string, eventTypeID int64) ([]int64, error)
}

// EventIndexer keeps the search index in step with committed event writes
type EventIndexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

// Deps wires the stores and infrastructure into the services.
// Searcher, Indexer and Metrics may be nil.
type Deps struct {
	Events        EventStore
	EventTypes    EventTypeStore
	Registrations RegistrationStore
	Users         UserStore
	Sessions      SessionStore
	Publisher     Publisher
	Searcher      EventSearcher
	Indexer       EventIndexer
	Metrics       *metrics.Metrics

	PageSize   int
	BcryptCost int
	SessionTTL time.Duration
	Now        func() time.Time
}

type Services struct {
	Events        *EventService
	Registrations *RegistrationService
	Accounts      *AccountService
}

func NewServices(deps Deps) *Services {
	if deps.PageSize <= 0 {
		deps.PageSize = 10
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 14 * 24 * time.Hour
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}

	return &Services{
		Events:        NewEventService(deps),
		Registrations: NewRegistrationService(deps),
		Accounts:      NewAccountService(deps),
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) error { return nil }

// publish logs failures and never fails the caller
func publish(ctx context.Context, p Publisher, m *metrics.Metrics, subject string, data any) {
	if err := p.Publish(subject, data); err != nil {
		m.PublishFailed(subject)
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"subject", subject)
	}
}
