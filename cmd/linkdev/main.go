package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/device"
	"github.com/robotalks/framelink/pkg/l1/transport"
)

var configFile string

func init() {
	device.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "TOML config file, flags given on the command line take precedence")
}

func openLink(conf *device.Config, led *device.Pin) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		stream, err := transport.Open(conf.Link)
		if err != nil {
			glog.Errorf("open %s: %v", conf.Link, err)
			device.Halt(ctx, led, device.FaultBlinkPeriod)
			return err
		}
		defer stream.Close()
		glog.Infof("device running on %s", conf.Link)
		return conf.Serve(ctx, stream, led)
	})
}

func listenLink(conf *device.Config, led *device.Pin) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		ln, err := transport.Listen(conf.Listen)
		if err != nil {
			glog.Errorf("listen %s: %v", conf.Listen, err)
			device.Halt(ctx, led, device.FaultBlinkPeriod)
			return err
		}
		glog.Infof("device listening on %s", ln.Addr())
		return fx.RunWithContextCloser(ctx, ln, func() error {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				glog.Info("host connected")
				err = conf.Serve(ctx, conn, led)
				conn.Close()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				glog.Infof("host disconnected: %v", err)
			}
		})
	})
}

func main() {
	flag.Parse()
	conf := device.Default()
	if configFile != "" {
		if err := fx.KeepSetFlags(flag.CommandLine, func() error { return conf.LoadFile(configFile) }); err != nil {
			log.Fatalln(err)
		}
	}

	led := device.NewPin(conf.LEDName)
	run := listenLink(conf, led)
	if conf.Link != "" {
		run = openLink(conf, led)
	}
	if err := fx.NewRunner().HandleSignals().Go(run).Wait(); err != nil {
		glog.Flush()
		log.Println(err)
		os.Exit(1)
	}
}
