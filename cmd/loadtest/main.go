package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"ratingsite/logging"
)

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalDuration   int64
}

type Config struct {
	BaseURL        string
	Token          string
	Workers        int
	Duration       int
	RequestsPerSec int
}

var stats Stats

// нагрузочный клиент только на чтение: список, поиск, профиль и друзья
func main() {
	conf := parseFlags()

	log, err := logging.Init(logging.Config{Level: "info", Dev: true})
	if err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if conf.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(conf.Duration)*time.Second)
		defer cancel()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	nicknames, err := fetchNicknames(ctx, client, conf)
	if err != nil {
		log.Fatal("failed to load users", zap.Error(err))
	}
	if len(nicknames) == 0 {
		log.Fatal("no users to query, run cmd/seed first")
	}
	log.Info("starting load", zap.Any("config", conf), zap.Int("users", len(nicknames)))

	requestsPerWorker := max(conf.RequestsPerSec/max(conf.Workers, 1), 1)

	var wg sync.WaitGroup
	for i := 0; i < conf.Workers; i++ {
		wg.Add(1)
		go worker(ctx, i, client, conf, nicknames, requestsPerWorker, &wg, log)
	}
	go printStats(ctx, log)

	wg.Wait()
	printFinalStats(log)
}

func parseFlags() Config {
	conf := Config{}
	flag.StringVar(&conf.BaseURL, "url", "http://localhost:8080", "Service URL")
	flag.StringVar(&conf.Token, "token", "", "JWT token, requests are anonymous without it")
	flag.IntVar(&conf.Workers, "workers", 10, "Number of concurrent workers")
	flag.IntVar(&conf.Duration, "duration", 60, "Test duration in seconds (0 for infinite)")
	flag.IntVar(&conf.RequestsPerSec, "rps", 100, "Requests per second target")
	flag.Parse()
	return conf
}

func fetchNicknames(ctx context.Context, client *http.Client, conf Config) ([]string, error) {
	body, err := get(ctx, client, conf, "/api/v1/users/?limit=1000")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Users []struct {
			Nickname string `json:"nickname"`
		} `json:"users"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	out := make([]string, 0, len(resp.Users))
	for _, u := range resp.Users {
		out = append(out, u.Nickname)
	}
	return out, nil
}

func worker(ctx context.Context, id int, client *http.Client, conf Config, nicknames []string, requestsPerSec int, wg *sync.WaitGroup, log *zap.Logger) {
	defer wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(requestsPerSec))
	defer ticker.Stop()

	done := 0
	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping", zap.Int("worker", id), zap.Int("requests", done))
			return
		case <-ticker.C:
			nickname := nicknames[gofakeit.IntN(len(nicknames))]

			var path string
			switch gofakeit.IntN(4) {
			case 0:
				path = fmt.Sprintf("/api/v1/users/?limit=20&offset=%d", gofakeit.IntN(len(nicknames)))
			case 1:
				prefix := nickname[:min(3, len(nickname))]
				path = "/api/v1/users/search/" + url.PathEscape(prefix) + "/"
			case 2:
				path = "/api/v1/users/" + url.PathEscape(nickname) + "/"
			default:
				path = "/api/v1/friends/" + url.PathEscape(nickname) + "/"
			}

			start := time.Now()
			_, err := get(ctx, client, conf, path)
			duration := time.Since(start)
			done++

			atomic.AddInt64(&stats.TotalRequests, 1)
			atomic.AddInt64(&stats.TotalDuration, duration.Milliseconds())
			if err != nil {
				atomic.AddInt64(&stats.FailedRequests, 1)
				if ctx.Err() == nil {
					log.Debug("request failed", zap.String("path", path), zap.Error(err))
				}
			} else {
				atomic.AddInt64(&stats.SuccessRequests, 1)
			}
		}
	}
}

func get(ctx context.Context, client *http.Client, conf Config, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conf.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+conf.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func snapshot() (total, success, failed, avgLatency int64, successRate float64) {
	total = atomic.LoadInt64(&stats.TotalRequests)
	success = atomic.LoadInt64(&stats.SuccessRequests)
	failed = atomic.LoadInt64(&stats.FailedRequests)
	if total > 0 {
		avgLatency = atomic.LoadInt64(&stats.TotalDuration) / total
		successRate = float64(success) / float64(total) * 100
	}
	return
}

func printStats(ctx context.Context, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total, success, failed, avgLatency, successRate := snapshot()
			log.Info("stats",
				zap.Int64("total", total),
				zap.Int64("success", success),
				zap.Int64("failed", failed),
				zap.String("success_rate", fmt.Sprintf("%.2f%%", successRate)),
				zap.Int64("avg_latency_ms", avgLatency))
		}
	}
}

func printFinalStats(log *zap.Logger) {
	total, success, failed, avgLatency, successRate := snapshot()
	log.Info("final statistics",
		zap.Int64("total", total),
		zap.Int64("success", success),
		zap.Int64("failed", failed),
		zap.String("success_rate", fmt.Sprintf("%.2f%%", successRate)),
		zap.Int64("avg_latency_ms", avgLatency))
}
