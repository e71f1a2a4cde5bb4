package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l1/bridge"
	"github.com/robotalks/framelink/pkg/l1/link"
	"github.com/robotalks/framelink/pkg/l1/transport"
)

var configFile string

func init() {
	bridge.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "TOML config file, flags given on the command line take precedence")
}

func metricsServer(addr string, handler http.Handler) fx.Runnable {
	server := &http.Server{Addr: addr, Handler: handler}
	return fx.RunFunc(func(ctx context.Context) error {
		glog.Infof("metrics on %s", addr)
		err := fx.RunWithContextCancel(ctx, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}, server.ListenAndServe)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
}

func main() {
	flag.Parse()
	conf := bridge.Default()
	if configFile != "" {
		if err := fx.KeepSetFlags(flag.CommandLine, func() error { return conf.LoadFile(configFile) }); err != nil {
			log.Fatalln(err)
		}
	} else if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}

	stream, err := transport.Open(conf.Link)
	if err != nil {
		log.Fatalln(err)
	}
	client := link.New(stream)
	client.Timeout = conf.CommandTimeout
	client.Limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), link.DefaultBurst)

	q, err := conf.NewQueue()
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	defer q.Close()

	reg := bridge.NewRegistry()
	b := bridge.New(conf, q, client)
	b.Metrics = bridge.NewMetrics(reg)

	// the first runner to return stops the others.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAll := func(r fx.Runnable) fx.Runnable {
		return fx.RunFunc(func(ctx context.Context) error {
			defer cancel()
			return r.Run(ctx)
		})
	}
	runner := fx.NewRunnerWith(ctx).HandleSignals().
		Go(fx.NamedRun("link", stopAll(client)), fx.NamedRun("bridge", stopAll(b)))
	if conf.MetricsAddr != "" {
		runner.Go(fx.NamedRun("metrics", stopAll(metricsServer(conf.MetricsAddr, bridge.MetricsHandler(reg)))))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
