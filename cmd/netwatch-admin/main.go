// Command netwatch-admin bundles the one-off operational tasks an operator
// runs against a live netwatch deployment: enqueueing a target by hand,
// inspecting or overriding a Settings key, and checking what the pipeline
// currently knows about a target or an AS edge. Each is its own subcommand,
// mirroring the one-tool-per-task layout this module's cmd/tools were
// adapted from, folded into a single binary since none of them run
// continuously.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"netwatch/internal/config"
	"netwatch/internal/models"
	"netwatch/internal/queue"
	"netwatch/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("NETWATCH_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer repo.Close()

	switch os.Args[1] {
	case "enqueue":
		cmdEnqueue(ctx, repo, os.Args[2:])
	case "get-setting":
		cmdGetSetting(ctx, repo, os.Args[2:])
	case "set-setting":
		cmdSetSetting(ctx, repo, os.Args[2:])
	case "show-target":
		cmdShowTarget(ctx, repo, os.Args[2:])
	case "show-edge":
		cmdShowEdge(ctx, repo, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `netwatch-admin <command> [flags]

Commands:
  enqueue       -ip <addr> [-source static|api|dns|remeasure] [-priority N]
  get-setting   -key <settings-key>
  set-setting   -key <settings-key> -value <json>
  show-target   -ip <addr>
  show-edge     -src <asn> -dst <asn>`)
}

func cmdEnqueue(ctx context.Context, repo *store.Repository, args []string) {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	ip := fs.String("ip", "", "target IP address")
	source := fs.String("source", "api", "task source: static, api, dns, remeasure")
	priority := fs.Int("priority", 0, "override priority (0 = derive from source)")
	dedupe := fs.Duration("dedupe-window", 60*time.Second, "de-duplication window")
	fs.Parse(args)

	if *ip == "" {
		log.Fatal("enqueue: -ip is required")
	}

	p := *priority
	if p == 0 {
		p = queue.PriorityFor(models.TargetSource(*source))
	}

	q := queue.New(repo, *dedupe)
	result, err := q.Enqueue(ctx, *ip, models.TargetSource(*source), p)
	if err != nil {
		log.Fatalf("enqueue: %v", err)
	}

	switch result {
	case queue.Accepted:
		fmt.Printf("enqueued %s (source=%s priority=%d)\n", *ip, *source, p)
	case queue.Deduped:
		fmt.Printf("skipped %s: duplicate within dedupe window\n", *ip)
	}
}

func cmdGetSetting(ctx context.Context, repo *store.Repository, args []string) {
	fs := flag.NewFlagSet("get-setting", flag.ExitOnError)
	key := fs.String("key", "", "settings key, e.g. worker_settings")
	fs.Parse(args)

	if *key == "" {
		log.Fatal("get-setting: -key is required")
	}

	raw, ok, err := repo.GetSetting(ctx, *key)
	if err != nil {
		log.Fatalf("get-setting: %v", err)
	}
	if !ok {
		fmt.Printf("%s: not set (defaults apply)\n", *key)
		return
	}
	fmt.Println(string(raw))
}

func cmdSetSetting(ctx context.Context, repo *store.Repository, args []string) {
	fs := flag.NewFlagSet("set-setting", flag.ExitOnError)
	key := fs.String("key", "", "settings key, e.g. worker_settings")
	value := fs.String("value", "", "JSON value, e.g. {\"rate_limit_per_minute\":60}")
	fs.Parse(args)

	if *key == "" || *value == "" {
		log.Fatal("set-setting: -key and -value are required")
	}

	var decoded any
	if err := json.Unmarshal([]byte(*value), &decoded); err != nil {
		log.Fatalf("set-setting: value is not valid JSON: %v", err)
	}

	if err := repo.SetSetting(ctx, *key, decoded); err != nil {
		log.Fatalf("set-setting: %v", err)
	}
	fmt.Printf("%s updated. Running components pick it up on their next cycle.\n", *key)
}

func cmdShowTarget(ctx context.Context, repo *store.Repository, args []string) {
	fs := flag.NewFlagSet("show-target", flag.ExitOnError)
	ip := fs.String("ip", "", "target IP address")
	fs.Parse(args)

	if *ip == "" {
		log.Fatal("show-target: -ip is required")
	}

	t, err := repo.GetTargetByIP(ctx, *ip)
	if err != nil {
		log.Fatalf("show-target: %v", err)
	}
	if t == nil {
		fmt.Printf("%s: no target on record\n", *ip)
		return
	}

	out, _ := json.MarshalIndent(t, "", "  ")
	fmt.Println(string(out))
}

func cmdShowEdge(ctx context.Context, repo *store.Repository, args []string) {
	fs := flag.NewFlagSet("show-edge", flag.ExitOnError)
	src := fs.Int64("src", 0, "source ASN")
	dst := fs.Int64("dst", 0, "destination ASN")
	fs.Parse(args)

	if *src == 0 || *dst == 0 {
		log.Fatal("show-edge: -src and -dst are required")
	}

	e, err := repo.Edge(ctx, *src, *dst)
	if err != nil {
		log.Fatalf("show-edge: %v", err)
	}
	if e == nil {
		fmt.Printf("no edge recorded from AS%d to AS%d\n", *src, *dst)
		return
	}

	out, _ := json.MarshalIndent(e, "", "  ")
	fmt.Println(string(out))
}
