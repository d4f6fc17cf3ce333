package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryandielhenn/friendgate/pkg/friendcache"
	"github.com/ryandielhenn/friendgate/pkg/provisioning"
	"github.com/ryandielhenn/friendgate/pkg/roster"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

func main() {
	n := flag.Int("n", 5000, "subscription decisions")
	conc := flag.Int("c", 32, "concurrency")
	friendRatio := flag.Float64("friend-ratio", 0.5, "fraction of requesters the server calls friends")
	latency := flag.Duration("latency", 0, "simulated server answer latency")
	cached := flag.Bool("cache", true, "enable the verdict cache")
	flag.Parse()

	device, serverEnd := xmpp.NewPipe("device@bench.local", "prov.bench.local")
	serverEnd.HandleIQ("isFriend", func(_ context.Context, iq *xmpp.IQ) *xmpp.IQ {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		candidate := iq.IsFriend.JID.Bare()
		resp := iq.Result()
		resp.From = serverEnd.Local()
		resp.IsFriendResponse = &xmpp.IsFriendResponse{
			Xmlns:  xmpp.ProvisioningNamespace,
			JID:    candidate,
			Result: rand.Float64() < *friendRatio,
		}
		return resp
	})

	var cache *friendcache.Store
	if *cached {
		cache = friendcache.NewStore(1 << 16)
	}
	mgr, err := provisioning.NewManager(provisioning.Config{
		Transport: device,
		Roster:    roster.NewMemory(),
		Cache:     cache,
		Server:    serverEnd.Local(),
	})
	if err != nil {
		panic(err)
	}

	var approved, denied, deferred atomic.Int64
	wg := sync.WaitGroup{}
	ch := make(chan int, *conc)
	start := time.Now()

	for i := 0; i < *n; i++ {
		wg.Add(1)
		ch <- 1
		go func(i int) {
			defer wg.Done()
			requester := xmpp.JID(fmt.Sprintf("peer%d@bench.local", i%1024))
			switch mgr.DecideSubscription(context.Background(), requester) {
			case provisioning.Approve:
				approved.Add(1)
			case provisioning.Deny:
				denied.Add(1)
			default:
				deferred.Add(1)
			}
			<-ch
		}(i)
	}
	wg.Wait()
	dur := time.Since(start)
	fmt.Printf("Completed %d decisions in %s (%.2f decisions/s)\n", *n, dur, float64(*n)/dur.Seconds())
	fmt.Printf("approve=%d deny=%d defer=%d\n", approved.Load(), denied.Load(), deferred.Load())
}
