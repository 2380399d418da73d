// Command simulator exercises the waitlist engine end to end against the
// in-memory platform fake: prompt, joins, broadcast, pull, failover, and the
// background sweeps. Useful for eyeballing engine behavior without a live
// platform connection; Kafka and Redis fanout are wired when enabled in the
// environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebcbot/waitlist/config"
	infraRedis "github.com/ebcbot/waitlist/internal/infra/redis"
	"github.com/ebcbot/waitlist/internal/kafka"
	"github.com/ebcbot/waitlist/internal/platform/platformtest"
	"github.com/ebcbot/waitlist/internal/pubsub"
	"github.com/ebcbot/waitlist/internal/registry"
	"github.com/ebcbot/waitlist/internal/waitlist"
	pkgKafka "github.com/ebcbot/waitlist/pkg/kafka"
	pkgLog "github.com/ebcbot/waitlist/pkg/logger"
)

var (
	numUsers = flag.Int("users", 12, "Number of members to walk through the queue")
	joinRate = flag.Duration("join-rate", 50*time.Millisecond, "Time between member joins")
	watch    = flag.Bool("watch", false, "Keep running with background sweeps until interrupted")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	var prod kafka.Producer
	if cfg.Kafka.Enabled {
		syncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = kafka.NewProducer(syncProd, l)
		defer prod.Close()
	}

	var pub pubsub.Publisher
	if cfg.Redis.Enabled {
		redisCli, err := infraRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer infraRedis.Disconnect(redisCli)
		pub = pubsub.NewRedisPublisher(redisCli, l)
	}

	// The broadcast surface must exist before anything posts to it.
	if cfg.Waitlist.BroadcastChannelID == "" {
		cfg.Waitlist.BroadcastChannelID = "9000"
	}
	pf := platformtest.NewFake()
	pf.AddRoom(cfg.Waitlist.BroadcastChannelID)

	reg := registry.New(cfg.Waitlist.MaxQueueSize)
	svc := waitlist.NewService(reg, pf, prod, pub, cfg.Waitlist, l)
	sw := waitlist.NewSweeper(svc, cfg.Waitlist, l)

	if err := sw.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start sweeper: %v", err)
	}
	defer sw.Stop()

	runScenario(ctx, svc, pf, cfg.Waitlist.ManagedCategoryID, cfg.Waitlist.BroadcastChannelID)

	if *watch {
		fmt.Println("\nWatching; press Ctrl+C to stop")
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
	}
}

func runScenario(ctx context.Context, svc waitlist.Service, pf *platformtest.Fake, categoryID, broadcastID string) {
	const roomID = "1001"
	host := "hostA"

	pf.AddRoom(roomID)
	pf.AddMember(host)
	pf.SetPresent(roomID, host)

	must("room created", svc.HandleRoomCreated(ctx, roomID, categoryID))
	must("prompt accepted", svc.AcceptPrompt(ctx, roomID, host))

	classes := []string{"tank", "cleric", "mage", "ranger"}
	for i := 0; i < *numUsers; i++ {
		userID := fmt.Sprintf("member-%d", i+1)
		pf.AddMember(userID)

		res, err := svc.Join(ctx, roomID, userID, classes[i%len(classes)], fmt.Sprintf("%d", 10+i))
		if err != nil {
			fmt.Printf("join %s failed: %v\n", userID, err)
			continue
		}
		fmt.Printf("joined %-10s as %-8s position %d\n", userID, res.Class, res.Position)
		time.Sleep(*joinRate)
	}

	must("broadcast", svc.Broadcast(ctx, roomID, host, []string{"Tank", "Cleric"}))

	// Pull the head into the host's room and confirm removal.
	snap, err := svc.Snapshot(ctx, roomID)
	must("snapshot", err)
	if len(snap.Entries) > 0 {
		head := snap.Entries[0].UserID
		must("pull", svc.Pull(ctx, roomID, host, head, roomID))
		must("confirm removal", svc.RemoveMember(ctx, roomID, host, head))
	}

	// One member leaves the guild entirely.
	if *numUsers > 2 {
		departed := "member-3"
		pf.RemoveMember(departed)
		must("member removed", svc.HandleMemberRemoved(ctx, departed))
	}

	view, err := svc.RenderQueue(ctx, roomID)
	must("render", err)
	fmt.Println("\n" + view)

	fmt.Printf("Broadcast surface now holds %d message(s)\n", len(pf.Messages(broadcastID)))
}

func must(op string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", op, err)
		os.Exit(1)
	}
}
