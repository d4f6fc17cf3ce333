package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/discovery"
	"github.com/ryandielhenn/friendgate/internal/logging"
	"github.com/ryandielhenn/friendgate/internal/telemetry"
	"github.com/ryandielhenn/friendgate/pkg/friendcache"
	"github.com/ryandielhenn/friendgate/pkg/provisioning"
	"github.com/ryandielhenn/friendgate/pkg/registry"
	"github.com/ryandielhenn/friendgate/pkg/roster"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

var version = "dev" // set via ldflags

func main() {
	log, err := logging.New(os.Getenv("LOG_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	telemetry.SetBuildInfo(version, os.Getenv("GIT_SHA"))

	// 1. Session identity and verdict cache
	selfJID := xmpp.JID(envOr("SELF_JID", "device@example.org"))
	cacheCap := 1024
	if v := os.Getenv("FRIEND_CACHE_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cacheCap = n
		}
	}
	cacheTTL := 15 * time.Minute
	if v := os.Getenv("FRIEND_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
	cache := friendcache.NewStore(cacheCap)
	ros := roster.NewMemory()
	registries := registry.NewStaticSet()

	// 2. Operator-published infrastructure from etcd, when configured
	var server xmpp.JID
	if endpoints := os.Getenv("ETCD_ENDPOINTS"); endpoints != "" {
		cli, err := discovery.NewClient(strings.Split(endpoints, ","))
		if err != nil {
			log.Fatal("etcd client", zap.Error(err))
		}
		defer cli.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if s, ok, err := discovery.LookupServer(ctx, cli, discovery.DefaultPrefix); err != nil {
			log.Warn("etcd server lookup failed", zap.Error(err))
		} else if ok {
			server = s
			log.Info("provisioning server from etcd", zap.String("server", s.String()))
		}
		if jids, err := discovery.Registries(ctx, cli, discovery.DefaultPrefix); err != nil {
			log.Warn("etcd registry bootstrap failed", zap.Error(err))
		} else {
			registries.Replace(jids)
			log.Info("trusted registries from etcd", zap.Int("count", len(jids)))
		}
		cancel()
		discovery.WatchRegistries(context.Background(), cli, discovery.DefaultPrefix, registries, log)
	}
	if v := os.Getenv("PROVISIONING_SERVER"); v != "" {
		server = xmpp.JID(v).Bare()
	}

	// 3. Transport. Until a real connection is attached this runs an
	// in-process pair with a scripted provisioning server end, enough
	// to exercise the whole decision path.
	device, serverEnd := xmpp.NewPipe(selfJID, xmpp.JID(envOr("PIPE_SERVER_JID", "prov.example.org")))
	runScriptedServer(serverEnd, strings.Split(os.Getenv("FRIENDS"), ","))
	if server == "" {
		serverEnd.Advertise(xmpp.ServiceInfo{
			JID:      serverEnd.Local(),
			Features: []string{xmpp.ProvisioningNamespace},
		})
	}

	// 4. The session's authorization engine
	mgr, err := provisioning.NewManager(provisioning.Config{
		Transport:  device,
		Roster:     ros,
		Registries: registries,
		Cache:      cache,
		CacheTTL:   cacheTTL,
		Server:     server,
		Logger:     log,
	})
	if err != nil {
		log.Fatal("manager", zap.Error(err))
	}

	// 5. Admin endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			PID        int       `json:"pid"`
			Now        time.Time `json:"now"`
			Self       string    `json:"self"`
			Server     string    `json:"server,omitempty"`
			CachedJIDs int       `json:"cached_jids"`
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv, _, _ := mgr.ProvisioningServer(ctx)
		data, _ := json.Marshal(resp{
			PID:        os.Getpid(),
			Now:        time.Now(),
			Self:       selfJID.String(),
			Server:     srv.String(),
			CachedJIDs: cache.Len(),
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	mux.Handle("/metrics", telemetry.MetricsHandler())

	addr := envOr("HTTP_ADDR", ":8080")
	log.Info("friendgate device listening", zap.String("addr", addr), zap.String("self", selfJID.String()))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}

// runScriptedServer answers isFriend queries on the far pipe end from a
// fixed friend list.
func runScriptedServer(end *xmpp.Pipe, friends []string) {
	allowed := make(map[xmpp.JID]struct{}, len(friends))
	for _, f := range friends {
		if f = strings.TrimSpace(f); f != "" {
			allowed[xmpp.JID(f).Bare()] = struct{}{}
		}
	}
	end.HandleIQ("isFriend", func(_ context.Context, iq *xmpp.IQ) *xmpp.IQ {
		candidate := iq.IsFriend.JID.Bare()
		_, friend := allowed[candidate]
		resp := iq.Result()
		resp.From = end.Local()
		resp.IsFriendResponse = &xmpp.IsFriendResponse{
			Xmlns:  xmpp.ProvisioningNamespace,
			JID:    candidate,
			Result: friend,
		}
		return resp
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
