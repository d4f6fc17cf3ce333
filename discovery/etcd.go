// Package discovery resolves operator-published provisioning
// infrastructure from etcd: the provisioning server address and the set
// of trusted registries. It complements in-band service discovery for
// fleets whose operator pins this state centrally instead of relying on
// the transport to advertise it.
//
// Layout under a key prefix (default "/friendgate"):
//
//	<prefix>/server               provisioning server JID
//	<prefix>/registries/<name>    one trusted registry JID per key
package discovery

import (
	"context"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/pkg/registry"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

const DefaultPrefix = "/friendgate"

func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// LookupServer reads the operator-pinned provisioning server address.
// ok is false when the key is absent.
func LookupServer(ctx context.Context, cli *clientv3.Client, prefix string) (server xmpp.JID, ok bool, err error) {
	resp, err := cli.Get(ctx, prefix+"/server")
	if err != nil {
		return "", false, err
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	jid, err := xmpp.ParseJID(string(resp.Kvs[0].Value))
	if err != nil {
		return "", false, err
	}
	return jid.Bare(), true, nil
}

// Registries lists the trusted registry JIDs published under the
// prefix. Malformed values are skipped.
func Registries(ctx context.Context, cli *clientv3.Client, prefix string) ([]xmpp.JID, error) {
	resp, err := cli.Get(ctx, prefix+"/registries/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]xmpp.JID, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		jid, err := xmpp.ParseJID(string(kv.Value))
		if err != nil {
			continue
		}
		out = append(out, jid.Bare())
	}
	return out, nil
}

// WatchRegistries keeps set in sync with the published registries until
// ctx is done. Each change event triggers a full re-read so the set is
// always a consistent snapshot.
func WatchRegistries(ctx context.Context, cli *clientv3.Client, prefix string, set *registry.StaticSet, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	watchKey := prefix + "/registries/"
	ch := cli.Watch(ctx, watchKey, clientv3.WithPrefix())
	go func() {
		for resp := range ch {
			if err := resp.Err(); err != nil {
				log.Warn("registry watch error", zap.Error(err))
				continue
			}
			for _, ev := range resp.Events {
				action := "put"
				if ev.Type == mvccpb.DELETE {
					action = "delete"
				}
				log.Debug("registry key changed",
					zap.String("key", string(ev.Kv.Key)),
					zap.String("action", action))
			}
			jids, err := Registries(ctx, cli, prefix)
			if err != nil {
				log.Warn("could not re-read registries", zap.Error(err))
				continue
			}
			set.Replace(jids)
			log.Info("trusted registries updated", zap.Int("count", len(jids)))
		}
	}()
}
