package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gnss-bridge/internal/config"
	"gnss-bridge/internal/fix"
	"gnss-bridge/internal/gps"
	"gnss-bridge/internal/sim"
	"gnss-bridge/internal/sink"
	"gnss-bridge/internal/udp"
	"gnss-bridge/internal/web"
)

const redisConnectTimeout = 5 * time.Second

func gpsConfig(c config.GPSConfig) gps.Config {
	device := strings.TrimSpace(c.Device)
	if strings.EqualFold(device, config.DeviceAuto) {
		device = ""
	}
	record := ""
	if c.Record.Enable {
		record = c.Record.Path
	}
	return gps.Config{
		Enable:      c.Enable,
		Source:      c.Source,
		Device:      device,
		Baud:        c.Baud,
		GPSDAddr:    c.GPSDAddr,
		ReplayPath:  c.Replay.Path,
		ReplaySpeed: c.Replay.Speed,
		ReplayLoop:  c.Replay.Loop,
		RecordPath:  record,
		SirfInit:    c.SirfInit,
		UBXInit:     c.UBXInit,
		Sim: sim.Receiver{
			CenterLatDeg: c.Sim.CenterLatDeg,
			CenterLonDeg: c.Sim.CenterLonDeg,
			AltM:         c.Sim.AltM,
			RadiusM:      c.Sim.RadiusM,
			Period:       c.Sim.Period,
			Satellites:   c.Sim.Satellites,
			Interval:     c.Sim.Interval,
		},
		Fix: fix.Options{
			SpeedEnabled:    c.SpeedEnable,
			HNREnabled:      c.HNREnable,
			PrecisionFactor: c.PrecisionFactor,
		},
	}
}

// outputs holds the enabled sinks and how to release them.
type outputs struct {
	listeners sink.Multi
	closers   []func()
}

func (o *outputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
	o.closers = nil
}

func buildOutputs(ctx context.Context, cfg config.OutputConfig, status *web.Status) (*outputs, error) {
	o := &outputs{listeners: sink.Multi{sink.Log{}, status}}

	if cfg.UDP.Enable {
		b, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("udp broadcaster init failed: %w", err)
		}
		o.closers = append(o.closers, func() { _ = b.Close() })
		o.listeners = append(o.listeners, sink.NewNMEAOut(b))
		log.Printf("nmea out enabled dest=%s", b.Dest())
	}

	if cfg.MQTT.Enable {
		m, err := sink.NewMQTT(sink.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
		})
		if err != nil {
			o.Close()
			return nil, err
		}
		o.closers = append(o.closers, m.Close)
		o.listeners = append(o.listeners, m)
	}

	if cfg.Redis.Enable {
		rctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		r, err := sink.NewRedis(rctx, sink.RedisConfig{
			Addr:      cfg.Redis.Addr,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		cancel()
		if err != nil {
			o.Close()
			return nil, err
		}
		o.closers = append(o.closers, func() { _ = r.Close() })
		o.listeners = append(o.listeners, r)
	}
	return o, nil
}

func run(ctx context.Context, cfg config.Config, logs *web.LogBuffer) error {
	status := web.NewStatus()

	out, err := buildOutputs(ctx, cfg.Output, status)
	if err != nil {
		return err
	}
	defer out.Close()

	gpsSvc := gps.New(gpsConfig(cfg.GPS), out.listeners)
	status.SetGPS(gpsSvc)
	if cfg.GPS.Enable {
		log.Printf("gps enabled source=%s device=%s baud=%d speed=%t hnr=%t precision_factor=%.1f",
			cfg.GPS.Source, cfg.GPS.Device, cfg.GPS.Baud, cfg.GPS.SpeedEnable, cfg.GPS.HNREnable, cfg.GPS.PrecisionFactor)
		// A missing receiver is reported through /api/status and /healthz
		// instead of stopping the process.
		if err := gpsSvc.Start(ctx); err != nil {
			log.Printf("gps start failed: %v", err)
		}
		defer gpsSvc.Close()
	} else {
		log.Printf("gps disabled")
	}

	if !cfg.Web.Enable {
		<-ctx.Done()
		return ctx.Err()
	}
	log.Printf("web listening addr=%s", cfg.Web.Listen)
	return web.Serve(ctx, cfg.Web.Listen, status, logs)
}
