package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/toolkits/pkg/runner"
	"gopkg.in/natefinch/lumberjack.v2"

	"flashcat.cloud/cpudash/api"
	"flashcat.cloud/cpudash/api/ratelimit"
	"flashcat.cloud/cpudash/cloudwatch"
	"flashcat.cloud/cpudash/config"
	"flashcat.cloud/cpudash/inventory"
	"flashcat.cloud/cpudash/pkg/httpx"
	"flashcat.cloud/cpudash/pkg/osx"
)

var (
	version     = "0.0.1"
	configDir   = flag.String("configs", osx.GetEnv("CPUDASH_CONFIGS", "conf"), "Specify configuration directory")
	envFile     = flag.String("envfile", osx.GetEnv("CPUDASH_ENVFILE", ".env"), "Specify dotenv file loaded before the configs")
	debugMode   = flag.Bool("debug", osx.GetEnv("CPUDASH_DEBUG", "false") == "true", "Is debug mode?")
	showVersion = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	printEnv()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalln("F! failed to load env file:", err)
	}

	if err := config.InitConfig(*configDir, *debugMode); err != nil {
		log.Fatalln("F! failed to init config:", err)
	}

	initLog(config.Config.Log)

	srv, limiter, err := newServer(config.Config)
	if err != nil {
		log.Fatalln("F! failed to init server:", err)
	}
	defer limiter.Close()

	go profile()

	var g run.Group
	{
		g.Add(srv.Start, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				log.Println("E! failed to stop http server:", err)
			}
		})
	}
	{
		g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT))
	}

	if err := g.Run(); err != nil {
		var sig run.SignalError
		if errors.As(err, &sig) {
			log.Println("I! received signal:", err)
		} else {
			log.Println("E! exited with error:", err)
		}
	}

	log.Println("I! exited")
}

func newServer(c *config.ConfigType) (*api.Server, *ratelimit.Limiter, error) {
	proxy, err := c.AWS.HTTPProxy.Proxy()
	if err != nil {
		return nil, nil, err
	}

	awsConfig, err := c.AWS.CredentialConfig.Credentials()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load aws credentials: %v", err)
	}
	httpClient := httpx.NewClient(time.Duration(c.AWS.Timeout), proxy)

	ec2Resolver, err := inventory.NewEC2FromConfig(awsConfig, c.Inventory.Mode, c.DebugMode, httpClient)
	if err != nil {
		return nil, nil, err
	}
	resolver := inventory.New(ec2Resolver, time.Duration(c.Inventory.CacheTTL))

	fetcher := cloudwatch.NewFromConfig(awsConfig, c.DebugMode, httpClient)

	limiter, err := ratelimit.New(c.RateLimit)
	if err != nil {
		return nil, nil, err
	}

	srv, err := api.NewServer(c, resolver, fetcher, limiter)
	if err != nil {
		limiter.Close()
		return nil, nil, err
	}

	log.Printf("I! aws region: %s, inventory mode: %s, default ip: %q", awsConfig.Region, c.Inventory.Mode, c.Dashboard.DefaultIP)
	return srv, limiter, nil
}

func initLog(c config.Log) {
	var output io.Writer
	switch c.FileName {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		output = &lumberjack.Logger{
			Filename:   c.FileName,
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxBackups,
			LocalTime:  c.LocalTime,
			Compress:   c.Compress,
		}
	}
	log.SetOutput(output)
}

func printEnv() {
	runner.Init()
	log.Println("I! runner.binarydir:", runner.Cwd)
	log.Println("I! runner.hostname:", runner.Hostname)
	log.Println("I! runner.fd_limits:", runner.FdLimits())
	log.Println("I! runner.vm_limits:", runner.VMLimits())
}
