package bootstrap

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weapplyse/weapply-pm/adapter/out/cache"
	"github.com/weapplyse/weapply-pm/adapter/out/notify"
	"github.com/weapplyse/weapply-pm/adapter/out/refine"
	"github.com/weapplyse/weapply-pm/adapter/out/workitem"
	"github.com/weapplyse/weapply-pm/config"
	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
	"github.com/weapplyse/weapply-pm/core/service/conversation"
	"github.com/weapplyse/weapply-pm/core/service/email"
	"github.com/weapplyse/weapply-pm/core/service/routing"
	"github.com/weapplyse/weapply-pm/core/service/triage"
	"github.com/weapplyse/weapply-pm/core/service/urgency"
	"github.com/weapplyse/weapply-pm/infra/database"
	"github.com/weapplyse/weapply-pm/pkg/logger"
)

// Dependencies wires the core services and their collaborators.
type Dependencies struct {
	Policy *domain.RoutingPolicy
	Triage *triage.Service
	Redis  *redis.Client
}

// NewDependencies builds the full dependency graph. Optional collaborators
// (Redis, OpenAI, Linear, Slack) are only wired when configured; triage
// degrades gracefully without them.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	deps := &Dependencies{}

	// Routing policy
	policy := domain.NewRoutingPolicy(cfg.InternalDomain)
	policy.IntakeAddress = strings.ToLower(cfg.IntakeAddress)
	policy.TicketingDomain = strings.ToLower(cfg.TicketingDomain)
	for _, d := range cfg.PersonalDomains {
		policy.PersonalDomains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	policy.Destinations = map[domain.Destination]string{
		domain.DestinationInbox:    cfg.InboxCollectionID,
		domain.DestinationClients:  cfg.ClientsCollectionID,
		domain.DestinationExternal: cfg.ExternalCollectionID,
	}
	deps.Policy = policy

	// Conversation store: Redis when configured, memory otherwise
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	var convStore conversation.Store
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis connection failed, using in-memory conversation index")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			convStore = cache.NewRedisConversationStore(redisClient, retention)
			logger.Info("Conversation index backed by Redis")
		}
	}
	if convStore == nil {
		convStore = conversation.NewMemoryStore()
	}

	linker := conversation.NewLinkerWithRetention(convStore, retention)

	// Outbound collaborators
	var refiner out.Refiner
	if cfg.OpenAIAPIKey != "" {
		refiner = refine.NewRefiner(refine.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		})
	} else {
		logger.Warn("OPENAI_API_KEY not set, refinement disabled")
	}

	var store out.WorkItemStore
	if cfg.LinearAPIKey != "" {
		store = workitem.NewLinearStore(workitem.Config{
			APIKey:   cfg.LinearAPIKey,
			Endpoint: cfg.LinearEndpoint,
			TeamID:   cfg.LinearTeamID,
		})
	} else {
		logger.Warn("LINEAR_API_KEY not set, work items will not be created")
	}

	var notifier out.Notifier
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackWebhookURL)
	}

	deps.Triage = triage.NewService(&triage.Deps{
		Policy:    policy,
		Extractor: email.NewExtractor(policy),
		Scorer:    urgency.NewScorer(),
		Linker:    linker,
		Resolver:  routing.NewResolver(policy),
		Refiner:   refiner,
		Store:     store,
		Notifier:  notifier,
		TeamID:    cfg.LinearTeamID,
	})

	return deps, cleanup, nil
}
