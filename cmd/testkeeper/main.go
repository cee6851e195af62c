package main

import (
	"os"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/rs/zerolog"

	"github.com/testkeeper/testkeeper/pkg/keeper"
)

// A scripted tour of one emulator session: build a small tree, leave a
// watch behind, mutate under it, then batch a guarded update.
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	sess := keeper.NewSession("", 10*time.Second,
		keeper.WithLogger(logger),
		keeper.WithQueueCapacity(16),
	)
	defer sess.Close()

	acl := zk.WorldACL(zk.PermAll)

	creates := []struct {
		path string
		data string
	}{
		{"/zoo", "menagerie"},
		{"/zoo/giraffe", "tallest"},
		{"/zoo/penguin", "fanciest"},
	}
	for _, c := range creates {
		err := sess.Create(c.path, []byte(c.data), false, false, acl, func(resp *keeper.CreateResponse) {
			logger.Info().Str("path", resp.PathCreated).Stringer("code", resp.Err).Msg("created")
		})
		if err != nil {
			logger.Fatal().Err(err).Str("path", c.path).Msg("create rejected")
		}
	}

	err := sess.Get("/zoo/giraffe", func(resp *keeper.GetResponse) {
		logger.Info().Bytes("data", resp.Data).Int32("version", resp.Stat.Version).Msg("read")
	}, func(resp *keeper.WatchResponse) {
		logger.Info().Str("path", resp.Path).Stringer("code", resp.Err).Msg("watch fired")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("get rejected")
	}

	// Fires the watch left by the read above.
	err = sess.Set("/zoo/giraffe", []byte("still the tallest"), -1, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("set rejected")
	}

	err = sess.Multi([]keeper.Request{
		&keeper.CheckRequest{Path: "/zoo", Version: 0},
		&keeper.CreateRequest{Path: "/zoo/walrus", Data: []byte("newest")},
		&keeper.SetRequest{Path: "/zoo", Data: []byte("menagerie, expanded"), Version: -1},
	}, func(resp *keeper.MultiResponse) {
		logger.Info().Stringer("code", resp.Err).Int("responses", len(resp.Responses)).Msg("multi committed")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("multi rejected")
	}

	// Requests complete in submission order, so waiting on the last
	// callback means everything above has already been delivered.
	done := make(chan struct{})
	err = sess.List("/zoo", func(resp *keeper.ListResponse) {
		logger.Info().Strs("children", resp.Names).Int32("cversion", resp.Stat.Cversion).Msg("listed")
		close(done)
	}, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("list rejected")
	}
	<-done
}
