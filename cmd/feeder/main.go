package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-ingest/internal/config"
	"github.com/ukydev/vehicle-ingest/internal/handlers"
	"github.com/ukydev/vehicle-ingest/internal/middleware"
	"github.com/ukydev/vehicle-ingest/internal/mqtt"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// Record is one line of a feed file.
type Record struct {
	Entity  schema.Entity   `json:"entity"`
	Payload json.RawMessage `json:"payload"`
}

// Sender delivers one record.
type Sender interface {
	Send(ctx context.Context, rec Record) error
}

// readRecords parses NDJSON. Blank lines and lines starting with # are
// skipped.
func readRecords(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), handlers.MaxBodyBytes)
	var recs []Record
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if _, ok := schema.Lookup(rec.Entity); !ok {
			return nil, fmt.Errorf("line %d: unknown entity %q", n, rec.Entity)
		}
		if len(rec.Payload) == 0 {
			return nil, fmt.Errorf("line %d: missing payload", n)
		}
		recs = append(recs, rec)
	}
	return recs, sc.Err()
}

type httpSender struct {
	baseURL string
	client  *http.Client
}

func (s *httpSender) Send(ctx context.Context, rec Record) error {
	url := strings.TrimRight(s.baseURL, "/") + handlers.Path(rec.Entity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(rec.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, uuid.NewString())
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", rec.Entity, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s rejected with status %d: %s", rec.Entity, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type mqttSender struct {
	client paho.Client
	prefix string
	qos    byte
}

func (s *mqttSender) Send(ctx context.Context, rec Record) error {
	tok := s.client.Publish(mqtt.Topic(s.prefix, rec.Entity), s.qos, false, []byte(rec.Payload))
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// feed sends recs one per interval and returns how many succeeded and failed.
func feed(ctx context.Context, recs []Record, sender Sender, interval time.Duration) (sent, failed int) {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for i, rec := range recs {
		if i > 0 && tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return sent, failed
			}
		}
		if ctx.Err() != nil {
			return sent, failed
		}
		if err := sender.Send(ctx, rec); err != nil {
			log.WithError(err).WithField("entity", rec.Entity).Error("Failed to send record")
			failed++
			continue
		}
		log.WithField("entity", rec.Entity).Debug("Sent record")
		sent++
	}
	return sent, failed
}

func newSender(target string, cfg config.MQTT) (Sender, func(), error) {
	switch target {
	case "", "http":
		apiURL := os.Getenv("API_BASE_URL")
		if apiURL == "" {
			apiURL = "http://localhost:8080"
		}
		return &httpSender{baseURL: apiURL, client: &http.Client{Timeout: 10 * time.Second}}, func() {}, nil
	case "mqtt":
		if !cfg.Enabled() {
			return nil, nil, errors.New("MQTT_BROKER is required for the mqtt target")
		}
		cfg.ClientID += "-feeder"
		client := paho.NewClient(mqtt.NewClientOptions(cfg))
		tok := client.Connect()
		if !tok.WaitTimeout(15 * time.Second) {
			return nil, nil, errors.New("mqtt connect timed out")
		}
		if err := tok.Error(); err != nil {
			return nil, nil, fmt.Errorf("mqtt connect: %w", err)
		}
		return &mqttSender{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS}, func() { client.Disconnect(250) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown FEED_TARGET %q", target)
	}
}

func main() {
	path := os.Getenv("FEED_FILE")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		log.Fatal("usage: feeder <file.ndjson> (or set FEED_FILE)")
	}

	interval := 200 * time.Millisecond
	if v := os.Getenv("FEED_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("Invalid FEED_INTERVAL %q", v)
		}
		interval = d
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open feed: %v", err)
	}
	recs, err := readRecords(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read feed: %v", err)
	}

	target := os.Getenv("FEED_TARGET")
	sender, closeSender, err := newSender(target, cfg.MQTT)
	if err != nil {
		log.Fatalf("Failed to create sender: %v", err)
	}
	defer closeSender()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"file":     path,
		"records":  len(recs),
		"target":   target,
		"interval": interval,
	}).Info("Starting feed")
	sent, failed := feed(ctx, recs, sender, interval)
	log.WithFields(log.Fields{"sent": sent, "failed": failed}).Info("Feed completed")
}
