package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hms-homelab/hms-detection/internal/bufsvc"
	"github.com/hms-homelab/hms-detection/internal/bus"
	"github.com/hms-homelab/hms-detection/internal/config"
	"github.com/hms-homelab/hms-detection/internal/event"
	"github.com/hms-homelab/hms-detection/internal/logging"
	"github.com/hms-homelab/hms-detection/internal/memcontrol"
	"github.com/hms-homelab/hms-detection/internal/metrics"
	"github.com/hms-homelab/hms-detection/internal/store"
	"github.com/hms-homelab/hms-detection/internal/vision"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the detection core config file")
	httpAddr := flag.String("http", ":9090", "address for the metrics and health HTTP server")
	flag.Parse()

	if err := logging.Init(false); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Log.Fatalw("failed to load config", "error", err, "config_file", *configFile)
	}

	logging.Log.Infow("config loaded",
		"config_file", *configFile,
		"cameras", len(cfg.Cameras),
		"fps", cfg.Event.FPS,
		"preroll_seconds", cfg.Event.PrerollSeconds,
		"ring_capacity", cfg.Event.RingCapacity(),
		"pool_capacity", cfg.Event.PoolCapacity())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buffers := bufsvc.New(cfg.Cameras, cfg.Event, cfg.Detection)
	buffers.StartAll(ctx)
	defer buffers.StopAll()

	if cfg.Detection.ModelPath != "" {
		if err := buffers.LoadDetectionModel(cfg.Detection.ModelPath, 0); err != nil {
			logging.Log.Errorw("detection model load failed, buffering continues without detection", "error", err)
		} else {
			buffers.StartDetection(cfg.Cameras)
		}
	}

	// Motion/start and motion/stop subscriptions stay MQTT-only (AMQP has
	// no subscribe capability), so the MQTT client is always built and
	// always carries the subscription. When cfg.Protocol selects amqp or
	// dual, every publish additionally fans out over AMQP.
	mqttClient, err := bus.NewMQTTClient(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.QoS)
	if err != nil {
		logging.Log.Fatalw("failed to connect event bus", "error", err)
	}

	var busClient bus.Client = mqttClient
	if cfg.Protocol == "amqp" || cfg.Protocol == "dual" {
		amqpClient, err := bus.NewAMQPClient(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logging.Log.Errorw("amqp connect failed, continuing with mqtt only", "error", err)
		} else {
			busClient = bus.NewDualClient(mqttClient, amqpClient)
		}
	}
	defer busClient.Close()

	var eventLogger *store.EventLogger
	if cfg.Database.Enabled {
		eventLogger, err = store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logging.Log.Errorw("event database unavailable, persistence disabled", "error", err)
			eventLogger = nil
		}
	}

	redisCache := store.NewRedisCache(cfg.Redis.Address, cfg.Redis.TTLSeconds, cfg.Redis.Prefix, cfg.Redis.Enabled)
	defer redisCache.Close()

	var visionClient *vision.Client
	if cfg.Vision.Enabled {
		prompts := make(map[string]string, len(cfg.Cameras))
		for _, cam := range cfg.Cameras {
			if cam.PromptTemplate != "" {
				prompts[cam.ID] = cam.PromptTemplate
			}
		}
		visionClient = vision.New(vision.Config{
			Endpoint:              cfg.Vision.Endpoint,
			Model:                 cfg.Vision.Model,
			DefaultPrompt:         "Describe the {class} seen in this image in at most {max_words} words.",
			Prompts:               prompts,
			MaxWords:              cfg.Vision.MaxWords,
			TimeoutSeconds:        cfg.Vision.TimeoutSeconds,
			ConnectTimeoutSeconds: cfg.Vision.ConnectTimeoutSeconds,
		})
	}

	topicPrefix := cfg.MQTT.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = cfg.AMQP.RoutingKeyPrefix
	}
	orchestrator := event.New(buffers, busClient, eventLogger, visionClient, redisCache, cfg.Event, cfg.Detection, cfg.Cameras, topicPrefix, cfg.Compression)
	if err := orchestrator.Start(); err != nil {
		logging.Log.Fatalw("failed to start event orchestrator", "error", err)
	}
	defer orchestrator.Stop()

	go monitorEvents(orchestrator)

	memMonitor := memcontrol.NewMonitor(15 * time.Second)
	memMonitor.Start()
	defer memMonitor.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler(buffers, memMonitor))
	go func() {
		logging.Log.Infow("http server started", "address", *httpAddr)
		if err := http.ListenAndServe(*httpAddr, mux); err != nil {
			logging.Log.Errorw("http server error", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Log.Info("shutdown signal received, stopping")
	cancel()
	time.Sleep(2 * time.Second)
	logging.Log.Info("shutdown complete")
}

// healthResponse is the aggregate health payload.
type healthResponse struct {
	Status  string `json:"status"`
	Cameras int    `json:"cameras"`
}

func healthHandler(buffers *bufsvc.Service, mem *memcontrol.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if !buffers.IsHealthy() || !mem.IsHealthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: status, Cameras: len(buffers.CameraIDs())})
	}
}

func monitorEvents(o *event.Orchestrator) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		metrics.EventsActive.Set(float64(o.ActiveEventCount()))
	}
}
