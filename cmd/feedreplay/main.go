// feedreplay pushes a recorded feed file through the full detection
// pipeline and prints the surviving opportunities. Each input line is
// "<venue> <raw json frame>".
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/you/arb-core/internal/book"
	"github.com/you/arb-core/internal/config"
	"github.com/you/arb-core/internal/detector"
	"github.com/you/arb-core/internal/facade"
	"github.com/you/arb-core/internal/ledger"
	"github.com/you/arb-core/internal/normalizer"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	feedPath := flag.String("feed", "", "recorded feed file to replay")
	flag.Parse()

	logger := zap.NewNop()
	if os.Getenv("FEEDREPLAY_DEBUG") != "" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if *feedPath == "" {
		fatal("missing -feed")
	}
	f, err := os.Open(*feedPath)
	if err != nil {
		fatal("open feed: %v", err)
	}
	defer f.Close()

	store := book.NewStore(cfg.StalenessWindow())
	led := ledger.New(nil, logger)
	det := detector.New(store, detector.Params{
		MinProfitBps:   cfg.Detector.MinProfitBps,
		SlippageBps:    cfg.Detector.SlippageBps,
		TTL:            cfg.OpportunityTTL(),
		VenueFeeBps:    cfg.VenueFees(),
		VenueLatencyMs: cfg.VenueLatencies(),
	}, led, logger)
	led.SetValidator(det.Revalidate)

	norms := make(map[types.VenueID]*normalizer.Normalizer, len(cfg.Venues))
	for id, v := range cfg.Venues {
		norms[id] = normalizer.New(id, v.Symbols)
	}

	var lines, accepted, dropped int
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines++
		venue, raw, ok := strings.Cut(line, " ")
		if !ok {
			dropped++
			continue
		}
		norm := norms[types.VenueID(venue)]
		if norm == nil {
			dropped++
			continue
		}
		q, err := norm.Normalize([]byte(raw))
		if err != nil {
			dropped++
			continue
		}
		if store.Update(q) != book.Accepted {
			continue
		}
		accepted++
		det.OnUpdate(q.Pair)
	}
	if err := sc.Err(); err != nil {
		fatal("read feed: %v", err)
	}

	led.Sweep(time.Now())
	qf := facade.New(led, nil, nil)
	opps := qf.ListOpportunities(ledger.Filter{})

	out := struct {
		Lines         int                 `json:"lines"`
		Accepted      int                 `json:"accepted"`
		Dropped       int                 `json:"dropped"`
		Opportunities []types.Opportunity `json:"opportunities"`
	}{lines, accepted, dropped, opps}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal("encode: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "feedreplay: "+format+"\n", args...)
	os.Exit(1)
}
