package wire

import (
	"Postpilot/internal/api"
	"Postpilot/internal/api/config"
	"Postpilot/internal/api/handler"
	"Postpilot/internal/job"
	"Postpilot/internal/pkg/consts"
	"Postpilot/internal/pkg/cron"
	"Postpilot/internal/pkg/kafka"
	"Postpilot/internal/pkg/llm"
	"Postpilot/internal/pkg/metrics"
	"Postpilot/internal/pkg/mongo"
	"Postpilot/internal/pkg/reddit"
	"Postpilot/internal/pkg/redis"
	"Postpilot/internal/pkg/security"
	"Postpilot/internal/pkg/x"
	"Postpilot/internal/repository"
	"Postpilot/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmc/langchaingo/llms"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer top level components the entrypoint runs
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	CronMgr      *cron.Manager
	GeneratorJob *job.ContentGenerationJob
	Producer     *kafka.EventProducer
	AutoStart    bool
}

// BuildApplication wires repositories, gateways, services, jobs and handlers.
// mongoDB and model may be nil: the queue then lives in memory and generation returns nothing.
func BuildApplication(db *gorm.DB, mongoDB *mongodrv.Database, model llms.Model, cfg *config.Config) (*ApplicationContainer, error) {
	m := metrics.New(prometheus.DefaultRegisterer)
	now := time.Now

	// repositories
	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewScheduledPostRepo(db)
	draftRepo := repository.NewDraftRepo(db)
	usageRepo := repository.NewUsageRepo(db)
	accountRepo := repository.NewAccountRepo(db)
	materializerRepo := repository.NewMaterializerRepo(db)

	// gateways
	redditClient := reddit.NewClient(cfg.Reddit, m)
	xClient := x.NewClient(cfg.X, m)
	generator := llm.NewGenerator(model, cfg.LLM, m)
	producer, err := kafka.NewEventProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	// services
	eligibilitySvc := service.NewEligibilityService(userRepo, postRepo)
	materializerSvc := service.NewMaterializerService(materializerRepo, service.NewSlotAllocator(now))
	generationSvc := service.NewGenerationService(eligibilitySvc, redditClient, generator, materializerSvc, now, service.GenerationOptions{
		PostsPerSource: cfg.Reddit.PostsPerSource,
		GatewayTimeout: cfg.Scheduler.GatewayTimeout,
	})
	var notifier service.EventNotifier
	if producer != nil {
		notifier = producer
	}
	publishSvc := service.NewPublishService(postRepo, accountRepo, xClient, notifier, m, now, service.PublishOptions{
		Timeout:       cfg.Publisher.Timeout,
		InFlightLease: cfg.Publisher.InFlightLease,
	})
	postSvc := service.NewPostService(postRepo)
	draftSvc := service.NewDraftService(draftRepo)
	usageSvc := service.NewUsageService(usageRepo)

	// jobs
	var store cron.JobStore
	if mongoDB != nil {
		store = mongo.NewJobRepo(mongoDB, cfg.Mongo.Collection)
	} else {
		store = cron.NewMemoryStore()
	}
	cronMgr := cron.NewCronManager(store, cron.Options{
		ProcessEvery: cfg.Scheduler.ProcessEvery,
		LockLifetime: cfg.Scheduler.LockLifetime,
	})

	generatorJob := job.NewContentGenerationJob(
		cronMgr,
		eligibilitySvc,
		generationSvc,
		redis.NewLease(consts.GenerateContentLock, cfg.Scheduler.LeaseTTL),
		redis.NewJSONStore[job.RunStats](consts.GenerateContentLastRunKey),
		m,
		cfg.Scheduler.Interval,
		now,
	)
	if cfg.Publisher.Enabled {
		if err = cronMgr.AddJob(cfg.Publisher.Spec, job.NewPublishDueJob(publishSvc, cfg.Publisher.BatchSize, now)); err != nil {
			return nil, err
		}
	}

	handlers := &api.HandlersGroup{
		PostHandler:       handler.NewPostHandler(postSvc, publishSvc),
		DraftHandler:      handler.NewDraftHandler(draftSvc),
		GenerationHandler: handler.NewGenerationHandler(generationSvc),
		UsageHandler:      handler.NewUsageHandler(usageSvc),
		JobHandler:        handler.NewJobHandler(generatorJob),
		Verifier:          security.NewTokenVerifier(cfg.JWT.Secret),
		Revoked:           redis.IsTokenRevoked,
		Metrics:           m,
	}

	router := api.SetupRouter(handlers)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		GeneratorJob: generatorJob,
		Producer:     producer,
		AutoStart:    cfg.Scheduler.AutoStart,
	}, nil
}
