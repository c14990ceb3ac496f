package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EnergyMonitorAPI/internal/config"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/mqtt"
	"EnergyMonitorAPI/internal/simulator"
)

func main() {
	cfg := config.LoadSensor()

	flag.StringVar(&cfg.APIURL, "url", cfg.APIURL, "API base URL")
	flag.StringVar(&cfg.DeviceToken, "token", cfg.DeviceToken, "device token")
	flag.StringVar(&cfg.DeviceID, "device", cfg.DeviceID, "device ID")
	flag.DurationVar(&cfg.Interval, "interval", cfg.Interval, "time between readings")
	flag.StringVar(&cfg.Transport, "transport", cfg.Transport, "http or mqtt")
	spike := flag.String("spike", "", "send one overvoltage, overcurrent or highpower reading and exit")
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		Mode:      cfg.Logging.Mode,
		UseColors: cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	sender, closeSender, err := newSender(cfg, log)
	if err != nil {
		log.Fatal("Failed to set up %s transport: %v", cfg.Transport, err)
	}
	defer closeSender()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *spike != "" {
		sendSpike(ctx, cfg, simulator.SpikeKind(*spike), sender, log)
		return
	}

	fmt.Println("═══════════════════════════════════════")
	fmt.Println(" Mock Sensor")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Transport: %s\n", cfg.Transport)
	if cfg.Transport == "mqtt" {
		fmt.Printf("  Broker:    %s (%s)\n", cfg.MQTT.BrokerURL(), cfg.MQTT.TelemetryTopic)
	} else {
		fmt.Printf("  API:       %s\n", cfg.APIURL)
	}
	fmt.Printf("  Device:    %s\n", cfg.DeviceID)
	fmt.Printf("  Interval:  %v\n", cfg.Interval)
	fmt.Println("═══════════════════════════════════════")

	gen := simulator.NewGenerator(cfg.DeviceID, cfg.Interval, nil)
	simulator.Run(ctx, gen, sender, cfg.Interval, log)
}

func newSender(cfg *config.SensorConfig, log *logger.Logger) (simulator.Sender, func(), error) {
	switch cfg.Transport {
	case "http":
		return simulator.NewHTTPSender(cfg.APIURL, cfg.DeviceToken, 10*time.Second), func() {}, nil
	case "mqtt":
		client, err := mqtt.NewClient(mqtt.ClientConfig{MQTT: &cfg.MQTT, Logger: log})
		if err != nil {
			return nil, nil, err
		}
		if err := client.Connect(); err != nil {
			return nil, nil, err
		}
		sender := simulator.NewMQTTSender(client, cfg.MQTT.TelemetryTopic, cfg.DeviceID, cfg.DeviceToken)
		return sender, client.Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func sendSpike(ctx context.Context, cfg *config.SensorConfig, kind simulator.SpikeKind, sender simulator.Sender, log *logger.Logger) {
	payload, err := simulator.Spike(cfg.DeviceID, kind, time.Now())
	if err != nil {
		log.Error("%v (use overvoltage, overcurrent or highpower)", err)
		return
	}

	log.Info("Injecting %s spike: %vV, %vA, %vW", kind, payload.Reading.Voltage, payload.Reading.Current, payload.Reading.Power)
	if err := sender.Send(ctx, payload); err != nil {
		log.Error("Spike failed: %v", err)
		return
	}
	log.Info("Spike sent. Check the alert feed.")
}
