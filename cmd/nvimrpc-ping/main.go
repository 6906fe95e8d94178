package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrinman/nvimrpc/internal/logx"
	"github.com/agrinman/nvimrpc/msgpack"
	"github.com/agrinman/nvimrpc/nvimrpc"
)

func main() {
	socketPath := flag.String("socket", "", "connect to a running nvim over this unix socket / named pipe")
	tcpAddr := flag.String("tcp", "", "connect to a running nvim over TCP, host:port")
	spawn := flag.Bool("spawn", false, "spawn a headless nvim instead of connecting to one")
	nvimPath := flag.String("nvim", "nvim", "binary to spawn when -spawn is set")
	evalExpr := flag.String("eval", "1 + 1", "expression to hand to nvim_eval")
	flag.Parse()

	log := logx.NewDefault("nvimrpc-ping")

	cfg := nvimrpc.Config{
		Logger: log,
		OnNotification: func(method string, params []msgpack.Value) {
			log.Infof("notification: %s %v", method, params)
		},
	}
	switch {
	case *spawn:
		cfg.SpawnProcess = true
		cfg.NvimPath = *nvimPath
	case *tcpAddr != "":
		host, port, err := splitHostPort(*tcpAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.TCPAddress = host
		cfg.TCPPort = port
	case *socketPath != "":
		cfg.SocketPath = *socketPath
	default:
		fmt.Fprintln(os.Stderr, "one of -socket, -tcp, or -spawn is required")
		os.Exit(1)
	}

	client, err := nvimrpc.New(cfg)
	if err != nil {
		logx.Errorf(log, "%v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		logx.Errorf(log, "connect: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	if catalog, ok := client.APIInfo(); ok {
		log.Infof("connected to channel %d, api level %d, %d functions", catalog.ChannelID, catalog.Version.APILevel, len(catalog.Functions))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		client.Disconnect()
		os.Exit(0)
	}()

	result, err := client.Request(context.Background(), "nvim_eval", []msgpack.Value{msgpack.Str(*evalExpr)})
	if err != nil {
		logx.Errorf(log, "nvim_eval: %v", err)
		os.Exit(1)
	}
	fmt.Println(describe(result))
}

func splitHostPort(addr string) (string, uint16, error) {
	host, portStr, err := splitLast(addr, ':')
	if err != nil {
		return "", 0, fmt.Errorf("nvimrpc-ping: -tcp must be host:port, got %q", addr)
	}
	var port uint16
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, fmt.Errorf("nvimrpc-ping: invalid port in %q", addr)
	}
	return host, port, nil
}

func splitLast(s string, sep byte) (string, string, error) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("separator %q not found", string(sep))
}

func describe(v msgpack.Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	if n, ok := v.AsInt64(); ok {
		return fmt.Sprintf("%d", n)
	}
	if f, ok := v.Float(); ok {
		return fmt.Sprintf("%g", f)
	}
	if b, ok := v.Bool(); ok {
		return fmt.Sprintf("%t", b)
	}
	if v.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%+v", v)
}
