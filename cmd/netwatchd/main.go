// Command netwatchd runs the full measurement pipeline as one process:
// worker pool, enrichment engine, graph projector, remeasurement scheduler,
// an optional DNS collector, and the internal ops server. Each stage is a
// long-running loop over the same shared Repository (spec.md §3); stages
// are toggled independently with ENABLE_* environment variables so a
// deployment can split them across processes later without code changes.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"netwatch/internal/config"
	"netwatch/internal/dns"
	"netwatch/internal/enrich"
	"netwatch/internal/graph"
	"netwatch/internal/metrics"
	"netwatch/internal/opsserver"
	"netwatch/internal/queue"
	"netwatch/internal/scheduler"
	"netwatch/internal/store"
	"netwatch/internal/telemetry"
	"netwatch/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("NETWATCH_CONFIG"))
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[main] connect to db: %v", err)
	}
	defer repo.Close()

	if os.Getenv("SKIP_MIGRATION") != "true" {
		if err := repo.Migrate(ctx, store.Schema); err != nil {
			log.Fatalf("[main] migrate schema: %v", err)
		}
	}

	q := queue.New(repo, getEnvDuration("QUEUE_DEDUPE_WINDOW_SECONDS", 60*time.Second))

	tp := telemetry.Init("netwatchd")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
			log.Printf("[main] telemetry shutdown: %v", err)
		}
	}()

	m := metrics.New()

	enableWorkerPool := os.Getenv("ENABLE_WORKER_POOL") != "false"
	enableEnrichment := os.Getenv("ENABLE_ENRICHMENT") != "false"
	enableGraphProjector := os.Getenv("ENABLE_GRAPH_PROJECTOR") != "false"
	enableScheduler := os.Getenv("ENABLE_SCHEDULER") != "false"
	enableDNSCollector := os.Getenv("ENABLE_DNS_COLLECTOR") == "true" // opt-in: no production Source exists yet
	enableOpsServer := os.Getenv("ENABLE_OPS_SERVER") != "false"

	var wg sync.WaitGroup

	if enableWorkerPool {
		pool := worker.New(repo, q, m, telemetry.Tracer("netwatch/worker"), cfg.ProbeToolPath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}

	if enableEnrichment {
		engine := enrich.New(repo, cfg.Enrichment, m, telemetry.Tracer("netwatch/enrich"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Run(ctx)
		}()
	}

	if enableGraphProjector {
		projector := graph.New(repo, m, telemetry.Tracer("netwatch/graph"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			projector.Run(ctx)
		}()
	}

	if enableScheduler {
		sched := scheduler.New(repo, q)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	if enableDNSCollector {
		source, err := dnsSourceFromEnv()
		if err != nil {
			log.Printf("[main] configure dns collector: %v", err)
		} else {
			chain := dns.NewChain(dnsFiltersFromEnv()...)
			resolver := dns.NewResolver(getEnvInt("DNS_MAX_IPS_PER_DOMAIN", 4))
			collector := dns.NewCollector(source, chain, resolver, q)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := collector.Run(ctx); err != nil {
					log.Printf("[main] dns collector stopped: %v", err)
				}
			}()
		}
	}

	var opsSrv *http.Server
	if enableOpsServer {
		ops := opsserver.New(repo, q, m)
		opsSrv = &http.Server{Addr: cfg.OpsListenAddr, Handler: ops}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ops.Run(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("[main] ops server listening on %s", cfg.OpsListenAddr)
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[main] ops server: %v", err)
			}
		}()
	}

	log.Printf("[main] netwatchd started: worker_pool=%v enrichment=%v graph_projector=%v scheduler=%v dns_collector=%v ops_server=%v",
		enableWorkerPool, enableEnrichment, enableGraphProjector, enableScheduler, enableDNSCollector, enableOpsServer)

	<-ctx.Done()
	log.Printf("[main] shutdown signal received, draining")

	if opsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		opsSrv.Shutdown(shutdownCtx)
		cancel()
	}

	wg.Wait()
	log.Printf("[main] netwatchd stopped")
}

// dnsSourceFromEnv builds the one concrete Source this module ships:
// a static domain list read from DNS_STATIC_DOMAIN_FILE. A live Pi-hole or
// resolver-log tap would plug in here as an additional case; none exists
// yet (spec.md §1 Non-goals).
func dnsSourceFromEnv() (dns.Source, error) {
	path := os.Getenv("DNS_STATIC_DOMAIN_FILE")
	if path == "" {
		path = "domains.txt"
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return dns.NewStaticSource(f, "A"), nil
}

func dnsFiltersFromEnv() []dns.Filter {
	var filters []dns.Filter

	if suffixes := strings.TrimSpace(os.Getenv("DNS_ALLOWED_SUFFIXES")); suffixes != "" {
		filters = append(filters, dns.SuffixFilter{Suffixes: strings.Split(suffixes, ",")})
	}
	filters = append(filters, dns.QTypeFilter{Allowed: []string{"A", "AAAA"}})
	filters = append(filters, dns.LengthFilter{Min: 1, Max: 253})

	return filters
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}
