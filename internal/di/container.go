package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/freightdesk/billing-api/internal/platform/config"
	pfirestore "github.com/freightdesk/billing-api/internal/platform/firestore"
	"github.com/freightdesk/billing-api/internal/platform/jobs"
	"github.com/freightdesk/billing-api/internal/repositories"
	firestoreRepo "github.com/freightdesk/billing-api/internal/repositories/firestore"
	"github.com/freightdesk/billing-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog    services.ChargeCatalogService
	Markups    services.MarkupService
	Reconciler services.BreakdownReconcilerService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	CostVisible  services.ActualRateVisibility

	provider     *pfirestore.Provider
	pubsubClient *pubsub.Client
}

// NewContainer constructs the runtime dependencies over real Firestore and
// Pub/Sub clients. Tests assemble services directly instead.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	client, err := provider.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("container: firestore client: %w", err)
	}

	healthChecks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: cfg.Health.ProbeTimeout,
			Check: func(ctx context.Context) error {
				iter := client.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		},
	}

	var (
		pubsubClient *pubsub.Client
		publisher    services.BreakdownEventPublisher
	)
	if cfg.Features.EnableBreakdownEvents {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			closeProvider(provider)
			return nil, fmt.Errorf("container: pubsub client: %w", err)
		}
		topic := pubsubClient.Topic(cfg.PubSub.BreakdownTopic)
		publisher, err = jobs.NewPubSubBreakdownPublisher(topic)
		if err != nil {
			closeProvider(provider)
			_ = pubsubClient.Close()
			return nil, fmt.Errorf("container: breakdown publisher: %w", err)
		}
		healthChecks = append(healthChecks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: cfg.Health.ProbeTimeout,
			Check: func(ctx context.Context) error {
				exists, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("topic %s does not exist", cfg.PubSub.BreakdownTopic)
				}
				return nil
			},
		})
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(healthChecks,
		repositories.WithDependencyTimeout(cfg.Health.ProbeTimeout))
	if err != nil {
		closeProvider(provider)
		if pubsubClient != nil {
			_ = pubsubClient.Close()
		}
		return nil, fmt.Errorf("container: health repository: %w", err)
	}

	registry, err := firestoreRepo.NewRegistry(provider, healthRepo)
	if err != nil {
		closeProvider(provider)
		if pubsubClient != nil {
			_ = pubsubClient.Close()
		}
		return nil, fmt.Errorf("container: repository registry: %w", err)
	}

	svc, err := buildServices(registry, cfg, publisher, logger)
	if err != nil {
		closeProvider(provider)
		if pubsubClient != nil {
			_ = pubsubClient.Close()
		}
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: registry,
		Services:     svc,
		CostVisible:  costVisibility(cfg),
		provider:     provider,
		pubsubClient: pubsubClient,
	}, nil
}

// Close releases the Firestore and Pub/Sub clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildServices(reg repositories.Registry, cfg config.Config, publisher services.BreakdownEventPublisher, logger *zap.Logger) (Services, error) {
	catalog, err := services.NewChargeCatalogService(services.ChargeCatalogServiceDeps{
		ChargeTypes: reg.ChargeTypes(),
		CacheTTL:    cfg.Catalog.CacheTTL,
		Clock:       time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build charge catalog service: %w", err)
	}

	resolver, err := services.NewMarkupResolver(services.MarkupResolverDeps{
		Rules: reg.MarkupRules(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build markup resolver: %w", err)
	}

	markups, err := services.NewMarkupService(services.MarkupServiceDeps{
		Resolver: resolver,
		Clock:    time.Now,
		Logger:   logger.Named("markup"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build markup service: %w", err)
	}

	reconciler, err := services.NewBreakdownReconciler(services.BreakdownReconcilerDeps{
		Shipments: reg.Shipments(),
		Catalog:   catalog,
		Events:    publisher,
		Logger:    logger.Named("breakdown"),
		Clock:     time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build breakdown reconciler: %w", err)
	}

	return Services{
		Catalog:    catalog,
		Markups:    markups,
		Reconciler: reconciler,
	}, nil
}

// costVisibility gates carrier cost fields. With the feature flag off only
// requests carrying the internal billing role header see cost figures.
func costVisibility(cfg config.Config) services.ActualRateVisibility {
	if cfg.Features.ExposeActualRates {
		return func(context.Context) bool { return true }
	}
	return func(ctx context.Context) bool {
		role, _ := ctx.Value(costRoleContextKey{}).(string)
		return strings.EqualFold(strings.TrimSpace(role), billingAdminRole)
	}
}

const billingAdminRole = "billing-admin"

type costRoleContextKey struct{}

// CostRoleMiddleware copies the billing role header into the request context
// so cost visibility can be evaluated per request.
func CostRoleMiddleware(header string) func(http.Handler) http.Handler {
	if strings.TrimSpace(header) == "" {
		header = "X-Billing-Role"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role := strings.TrimSpace(r.Header.Get(header)); role != "" {
				r = r.WithContext(context.WithValue(r.Context(), costRoleContextKey{}, role))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func closeProvider(provider *pfirestore.Provider) {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = provider.Close(closeCtx)
}
