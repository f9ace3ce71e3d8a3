package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promptiq/m/v2/app/ai"
	"promptiq/m/v2/app/api"
	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/generation"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/notify"
	"promptiq/m/v2/app/payments"
	"promptiq/m/v2/app/prompts"
	"promptiq/m/v2/app/share"
	"promptiq/m/v2/app/status"
	"promptiq/m/v2/app/users"
	"promptiq/m/v2/app/util"
	"promptiq/m/v2/app/waitlist"
	"promptiq/m/v2/app/workers"
	"promptiq/m/v2/app/workers/clearusage"
	"promptiq/m/v2/app/workers/onstart"
	statusworker "promptiq/m/v2/app/workers/status"

	"github.com/DataDog/datadog-go/v5/statsd"
	fasthttpprom "github.com/carousell/fasthttp-prometheus-middleware"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/valyala/fasthttp"
)

const alertQueueSize = 64

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New(util.Env("DATADOG_ADDRESS", "datadog-agent.default.svc.cluster.local:8125"), statsd.WithNamespace(config.AppName+"."))
	if err != nil && env == "production" {
		log.Fatalf("error creating main DataDog client: %v", err)
	}

	cfg := &config.Config{
		BaseURL:            util.Env("BASE_URL", "http://localhost:3000"),
		DataDogClient:      dataDogClient,
		Environment:        env,
		GeminiAPIKey:       util.Env("GEMINI_API_KEY"),
		GeminiModel:        util.Env("GEMINI_MODEL", config.DefaultGeminiModel),
		ListenAddress:      util.Env("BACKEND_LISTEN_ADDRESS", ":8080"),
		MongoDBConnection:  util.Env("MONGO_DB_CONNECTION_STRING"),
		MongoDBName:        util.Env("MONGO_DB_NAME", config.AppName),
		RateLimitBurst:     util.EnvInt("RATE_LIMIT_BURST", 10),
		RateLimitPerSecond: util.EnvFloat("RATE_LIMIT_PER_SECOND", 0.2),
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST"),
			Port:     "6379",
			Password: util.Env("REDIS_PASSWORD", ""),
		},
		SlackWebhookURL:      util.Env("SLACK_WEBHOOK_URL", ""),
		StatusWorkerInterval: time.Minute,
		StripeEndpointSecret: util.Env("STRIPE_ENDPOINT_SECRET"),
		StripeEndpointSuffix: util.Env("STRIPE_ENDPOINT_SUFFIX"),
		StripePrices: map[string]string{
			string(models.ArchitectPlan): util.Env("STRIPE_PRICE_ARCHITECT", ""),
			string(models.StudioPlan):    util.Env("STRIPE_PRICE_STUDIO", ""),
		},
		StripeToken:            util.Env("STRIPE_TOKEN"),
		TelegramSystemBotToken: util.Env("TELEGRAM_SYSTEM_TOKEN", ""),
		TelegramSystemTo:       util.Env("TELEGRAM_SYSTEM_TO", ""),
		TrustedProxies:         strings.Split(util.Env("TRUSTED_PROXIES", ""), ","),
	}

	err = dataDogClient.Count("main.start", 1, []string{"env:" + cfg.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}

	redisClient := redis.NewClient(cfg.Redis)
	mongoClient := mongo.NewClient(cfg.MongoDBConnection, cfg.MongoDBName)
	notifier := notify.New(cfg)
	// alerts raised while serving requests are delivered in the background
	alerts := notify.NewQueue(notifier, alertQueueSize)
	aiAPI := ai.NewAPI(cfg, ai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel))

	// run onstart worker once
	if err := onstart.Run(mongoClient); err != nil {
		log.Fatalf("onstart failed: %v", err)
	}

	stripe.Key = cfg.StripeToken
	stripe.SetAppInfo(&stripe.AppInfo{
		Name:    config.AppName,
		Version: "0.0.1",
		URL:     cfg.BaseURL,
	})
	billing := payments.NewBilling(cfg, mongoClient, redisClient, alerts)

	// create status worker
	statusWorker := statusworker.New(cfg, status.New(mongoClient, redisClient, aiAPI), redisClient, alerts, cfg.StatusWorkerInterval)
	statusWorkerLoop := workers.NewWorker("status", cfg.StatusWorkerInterval, statusWorker.Run, false)
	go statusWorkerLoop.Start()

	// create usage clearing worker
	clearUsageWorkerLoop := workers.NewWorker("clearusage", time.Hour*23, clearusage.New(cfg, mongoClient, redisClient).Run, true)
	go clearUsageWorkerLoop.Start()

	trustedProxies, err := api.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	limiter := api.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, trustedProxies)
	server := api.New(cfg, api.Services{
		Generation: generation.NewService(cfg, mongoClient, aiAPI, billing),
		Prompts:    prompts.NewService(cfg, mongoClient),
		Users:      users.NewService(cfg, mongoClient),
		Share:      share.NewService(cfg, mongoClient),
		Waitlist:   waitlist.NewService(cfg, mongoClient, redisClient),
		Stripe:     payments.NewStripe(cfg, billing, mongoClient),
		Status:     statusWorker,
	}, limiter)

	rtr := server.Router()
	prometheus := fasthttpprom.NewPrometheus("")
	prometheus.Use(rtr)

	httpServer := &fasthttp.Server{
		Handler: fasthttp.TimeoutHandler(prometheus.Handler, time.Second*90, "Request timeout"),
		Name:    config.AppName,
	}

	go TearDown(sigs, done, notifier, alerts, httpServer, limiter, mongoClient, redisClient, statusWorkerLoop, clearUsageWorkerLoop)

	go func() {
		err := httpServer.ListenAndServe(cfg.ListenAddress)
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	successfulStartMessage := fmt.Sprintf("🤖 %s started successfully 🚀 inside %s", config.AppName, util.Env("POD_NAME", "unknown"))
	if err := notifier.Notify(context.Background(), successfulStartMessage); err != nil {
		log.Errorf("Failed to send start message: %s", err)
	}
	log.Info(successfulStartMessage)

	<-done
	log.Info("Done")
}

func TearDown(sigs chan os.Signal, done chan struct{}, notifier notify.Notifier, alerts *notify.Queue, httpServer *fasthttp.Server, limiter *api.RateLimiter, mongoClient mongo.MongoClient, redisClient redis.Client, stoppable ...*workers.Worker) {
	<-sigs
	exitMessage := fmt.Sprintf("🤖 %s bids farewell ❌ inside %s", config.AppName, util.Env("POD_NAME", "unknown"))
	log.Info(exitMessage)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifier.Notify(ctx, exitMessage); err != nil {
		log.Errorf("TearDown: failed to send exit message: %v", err)
	}
	for _, w := range stoppable {
		w.StopWorker()
	}
	if err := httpServer.Shutdown(); err != nil {
		log.Errorf("TearDown: Shutdown for http server: %v", err)
	}
	limiter.Close()
	if err := alerts.Close(ctx); err != nil {
		log.Errorf("TearDown: draining alerts: %v", err)
	}

	if err := mongoClient.Disconnect(ctx); err != nil {
		log.Errorf("TearDown: Disconnecting from MongoDB: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Errorf("TearDown: Closing Redis: %v", err)
	}
	done <- struct{}{}
}
