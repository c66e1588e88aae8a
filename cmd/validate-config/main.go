// validate-config loads a detection core config file and prints the
// resolved settings, so an operator can check a file before pointing
// hms-detection at it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hms-homelab/hms-detection/internal/config"
)

func main() {
	path := flag.String("config", "config.yaml", "path to the detection core config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("config OK:", *path)
	fmt.Println()
	fmt.Println("=== Cameras ===")
	for _, cam := range cfg.Cameras {
		fmt.Printf("  [%s] %s  url=%s  confidence=%.2f  classes=%v\n",
			cam.ID, cam.Name, cam.URL, cam.ConfidenceThreshold, cam.Classes)
	}

	fmt.Println()
	fmt.Println("=== Event ===")
	fmt.Printf("  fps=%d preroll=%ds post_roll_default=%ds ring_capacity=%d pool_capacity=%d\n",
		cfg.Event.FPS, cfg.Event.PrerollSeconds, cfg.Event.PostRollDefaultSeconds,
		cfg.Event.RingCapacity(), cfg.Event.PoolCapacity())
	fmt.Printf("  events_dir=%s snapshots_dir=%s\n", cfg.Event.EventsDir, cfg.Event.SnapshotsDir)

	fmt.Println()
	fmt.Println("=== Detection ===")
	fmt.Printf("  model=%s confidence=%.2f iou=%.2f classes=%v\n",
		cfg.Detection.ModelPath, cfg.Detection.ConfidenceThreshold, cfg.Detection.IOUThreshold, cfg.Detection.Classes)

	fmt.Println()
	fmt.Println("=== Bus ===")
	fmt.Printf("  protocol=%s mqtt_broker=%s amqp_url=%s\n", cfg.Protocol, cfg.MQTT.Broker, cfg.AMQP.URL)

	fmt.Println()
	fmt.Println("=== Database / Redis / Vision ===")
	fmt.Printf("  database_enabled=%v driver=%s\n", cfg.Database.Enabled, cfg.Database.Driver)
	fmt.Printf("  redis_enabled=%v address=%s\n", cfg.Redis.Enabled, cfg.Redis.Address)
	fmt.Printf("  vision_enabled=%v endpoint=%s model=%s\n", cfg.Vision.Enabled, cfg.Vision.Endpoint, cfg.Vision.Model)

	fmt.Println()
	fmt.Println("=== Compression ===")
	fmt.Printf("  enabled=%v level=%d\n", cfg.Compression.Enabled, cfg.Compression.Level)
}
