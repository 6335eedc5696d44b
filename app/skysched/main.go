// skysched is the VLBI observing-session scheduler console: load a
// catalog, run the scan-selection loop, persist and report the
// resulting schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	skysched "skysched/src"
)

var PRGNAME = "skysched"

var usage = []string{
	"usage: skysched -c file [-mongo uri] [-t level]",
	"options",
	"  -c file     catalog/session configuration file (toml)",
	"  -mongo uri  mongodb uri to persist the committed schedule",
	"  -t level    log level (panic,fatal,error,warn,info,debug,trace)",
}

func printUsage() {
	for _, line := range usage {
		fmt.Fprintln(os.Stderr, line)
	}
	os.Exit(2)
}

func main() {
	var (
		confFile  string
		mongoURI  string
		mongoDB   string
		logLevel  string
	)
	flag.StringVar(&confFile, "c", "", usage[2])
	flag.StringVar(&mongoURI, "mongo", "", usage[3])
	flag.StringVar(&mongoDB, "mongo-db", "skysched", "mongodb database name")
	flag.StringVar(&logLevel, "t", "info", usage[4])
	flag.Parse()

	if confFile == "" {
		printUsage()
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := skysched.NewLogger(level, os.Stderr)

	if err := run(confFile, mongoURI, mongoDB, log); err != nil {
		log.WithError(err).Fatal("scheduler run failed")
	}
}

func run(confFile, mongoURI, mongoDB string, log *logrus.Logger) error {
	cfg, err := skysched.LoadCatalogConfig(confFile)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	net, sources, baselines, err := loadCatalog(confFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	clock, err := skysched.NewSessionClock(cfg.Session.Start, cfg.Session.End)
	if err != nil {
		return errors.Wrap(err, "build session clock")
	}
	session := cfg.BuildSession(clock, sources)
	mode := cfg.BuildMode()
	weights := cfg.BuildWeights()
	skyCluster := skysched.NewSkyCoverageClusters(nil, cfg.Sky.MaxAngleDeg*math.Pi/180.0, cfg.Sky.MaxTimeSeconds)

	sched := skysched.NewScheduler(net, sources, baselines, mode, session, skyCluster, weights, log)

	// The core scheduler has no internal cancellation (spec.md §5); a
	// signal during Run only gets logged, since Run does not return
	// until the session window or the empty-subcon limit is reached.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Warn("interrupt received, scheduler has no internal cancellation, waiting for natural completion")
	}()

	committed := sched.Run(0)

	log.WithField("count", len(committed)).Info("schedule complete")
	stats := sched.Stats()
	log.WithFields(logrus.Fields{
		"committed": stats.ScansCommitted,
		"discarded": stats.ScansDiscarded,
		"fillin":    stats.FillinCommitted,
		"empty":     stats.EmptySubcons,
	}).Info("scheduler stats")

	if mongoURI != "" {
		storeCtx, storeCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer storeCancel()
		store, err := skysched.NewStore(storeCtx, mongoURI, mongoDB, "sessions")
		if err != nil {
			return errors.Wrap(err, "connect session store")
		}
		defer store.Close(storeCtx)

		rec := skysched.NewSessionRecord(clock, cfg.Weights, cfg.Mode, committed, stats, time.Now())
		if err := store.Save(storeCtx, rec); err != nil {
			return errors.Wrap(err, "persist session record")
		}
		log.WithField("id", rec.ID).Info("session persisted")
	}

	return nil
}

// loadCatalog resolves the Network/SourceList/BaselineSet catalog
// referenced by confFile. Actual sked/VEX catalog text parsing is an
// external collaborator (spec.md's non-goals); this entry point expects
// the caller's deployment to supply a catalog loader matching this
// signature.
func loadCatalog(confFile string) (*skysched.Network, *skysched.SourceList, *skysched.BaselineSet, error) {
	return nil, nil, nil, errors.New("catalog loading is an external collaborator; wire in a sked/VEX reader before invoking run")
}
