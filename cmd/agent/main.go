package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"ubna/pkg/agent"
	"ubna/pkg/negotiation"
	"ubna/pkg/profile"
	"ubna/pkg/transport"
)

func main() {
	var (
		profilePath string
		serverURL   string
		partyID     string
		metricsAddr string
	)
	flag.StringVar(&profilePath, "profile", "", "Path to the utility profile JSON (required)")
	flag.StringVar(&serverURL, "url", "", "Websocket URL of the session server (required)")
	flag.StringVar(&partyID, "party-id", "", "Party identifier (generated if empty)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty = disabled)")
	flag.Parse()

	if profilePath == "" || serverURL == "" {
		klog.Fatal("--profile and --url are required")
	}
	if partyID == "" {
		partyID = "ubna-" + uuid.NewString()
	}

	cfg, err := agent.LoadConfig()
	if err != nil {
		klog.Fatalf("Failed to load configuration: %v", err)
	}

	prof, domain, err := profile.Load(profilePath)
	if err != nil {
		klog.Fatalf("Failed to load profile %s: %v", profilePath, err)
	}
	klog.InfoS("Profile loaded", "issues", len(domain.Issues), "outcomes", domain.Size())

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				klog.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	var store *agent.Store
	if cfg.StoragePath != "" {
		store, err = agent.OpenStore(cfg.StoragePath)
		if err != nil {
			klog.Fatalf("Failed to open session store: %v", err)
		}
		defer store.Close()
	}

	outcomes := negotiation.NewDomainSpace(domain, cfg.Seed)
	controller := agent.NewController(cfg, prof, outcomes)

	session, err := transport.Dial(serverURL, partyID, controller)
	if err != nil {
		klog.Fatalf("Failed to connect: %v", err)
	}

	klog.InfoS("Starting negotiation session", "party", partyID, "server", serverURL)
	summary, err := session.Run(context.Background())
	if err != nil {
		klog.Errorf("Session ended with error: %v", err)
	}
	klog.InfoS("Session summary",
		"opponent", summary.Opponent,
		"recognized", summary.Recognized,
		"accepted", summary.Accepted,
		"agreementUtility", summary.AgreementUtility,
		"offersReceived", summary.OffersReceived,
		"offersMade", summary.OffersMade,
	)

	if store != nil {
		// Persistence failures are logged, never fatal.
		if _, err := store.SaveSession(context.Background(), summary); err != nil {
			klog.Errorf("Failed to persist session: %v", err)
		}
	}
}
