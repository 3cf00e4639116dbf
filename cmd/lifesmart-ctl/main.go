// Command lifesmart-ctl operates a LifeSmart hub over the local UDP
// protocol. It runs one-shot commands against the hub or an
// interactive console, and can record protocol traffic to a trace
// file for later analysis with lifesmart-log.
//
// Usage:
//
//	lifesmart-ctl [flags] <command> [args]
//	lifesmart-ctl [flags] -interactive
//
// Commands:
//
//	find                          Browse mDNS for hubs on the LAN
//	discover                      List devices enrolled on the hub
//	device <me>                   Show one device with its sub-channels
//	channel <me> <idx>            Read one sub-channel
//	set <me> <idx> <type> <val>   Write a sub-channel (type: on, off, or numeric)
//	remotes                       List learned IR remotes
//	keys <remote-id>              List the keys of one remote
//	send <remote-id> <key...>     Fire IR keys in order
//	watch                         Print state reports until interrupted
//
// Flags:
//
//	-config string        Config file (YAML)
//	-host string          Hub address (browses mDNS when empty)
//	-port int             Hub command port (default 12348)
//	-token string         Hub access token
//	-model string         Model string sent with each command
//	-interactive          Start the interactive console
//	-protocol-log string  Write protocol events to a trace file (.llog)
//	-log-level string     Log level: debug, info, warn, error (default info)
//
// Examples:
//
//	lifesmart-ctl -host 192.168.1.100 -token Gx7TqKpa9LmVs2RwYc4Ze6Nb discover
//	lifesmart-ctl -config hub.yaml set 2d42 L1 on 1
//	lifesmart-ctl -config hub.yaml -protocol-log hub.llog watch
//	lifesmart-ctl -config hub.yaml -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lifesmart-local/lifesmart-go/cmd/lifesmart-ctl/interactive"
	"github.com/lifesmart-local/lifesmart-go/pkg/client"
	"github.com/lifesmart-local/lifesmart-go/pkg/config"
	"github.com/lifesmart-local/lifesmart-go/pkg/discovery"
	"github.com/lifesmart-local/lifesmart-go/pkg/listener"
	protolog "github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/poll"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// Options holds the command-line configuration.
type Options struct {
	ConfigFile  string
	Host        string
	Port        int
	Token       string
	Model       string
	Interactive bool
	ProtocolLog string
	LogLevel    string
}

// HubHost returns the effective hub address.
func (o *Options) HubHost() string {
	return o.Host
}

// HubModel returns the effective model string.
func (o *Options) HubModel() string {
	return o.Model
}

var opts Options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Config file (YAML)")
	flag.StringVar(&opts.Host, "host", "", "Hub address (browses mDNS when empty)")
	flag.IntVar(&opts.Port, "port", 0, "Hub command port (default 12348)")
	flag.StringVar(&opts.Token, "token", "", "Hub access token")
	flag.StringVar(&opts.Model, "model", "", "Model string sent with each command")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Start the interactive console")
	flag.StringVar(&opts.ProtocolLog, "protocol-log", "", "Write protocol events to a trace file (.llog)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintln(os.Stderr, `lifesmart-ctl - LifeSmart local hub control

Usage:
  lifesmart-ctl [flags] <command> [args]
  lifesmart-ctl [flags] -interactive

Commands:
  find                          Browse mDNS for hubs on the LAN
  discover                      List devices enrolled on the hub
  device <me>                   Show one device with its sub-channels
  channel <me> <idx>            Read one sub-channel
  set <me> <idx> <type> <val>   Write a sub-channel (type: on, off, or numeric)
  remotes                       List learned IR remotes
  keys <remote-id>              List the keys of one remote
  send <remote-id> <key...>     Fire IR keys in order
  watch                         Print state reports until interrupted

Flags:`)
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	cfg, err := resolve()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg.Log.Level)

	args := flag.Args()
	if !opts.Interactive && len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// find needs no hub configuration
	if !opts.Interactive && args[0] == "find" {
		runFind()
		return
	}

	if cfg.Hub.Host == "" {
		log.Println("No hub address configured, browsing mDNS...")
		hub, err := findHub()
		if err != nil {
			log.Fatalf("No hub address configured and none discovered: %v", err)
		}
		log.Printf("Using discovered hub %q at %s:%d", hub.InstanceName, hub.Addr(), hub.Port)
		cfg.Hub.Host = hub.Addr()
		if hub.Port != 0 {
			cfg.Hub.Port = hub.Port
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := config.ValidateToken(cfg.Hub.Token); err != nil {
		log.Printf("Warning: %v", err)
	}

	// reflect the effective values for status display
	opts.Host = cfg.Hub.Host
	opts.Port = cfg.Hub.Port
	opts.Model = cfg.Hub.Model

	logger, closeLogger, err := buildLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to open protocol log: %v", err)
	}
	defer closeLogger()

	cli, err := client.New(client.Config{
		Host:          cfg.Hub.Host,
		Port:          cfg.Hub.Port,
		Model:         cfg.Hub.Model,
		Token:         cfg.Hub.Token,
		Timeout:       cfg.Hub.Timeout(),
		DeviceTimeout: cfg.Hub.DeviceTimeout(),
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Interactive {
		log.Printf("Hub %s:%d (model %s)", cfg.Hub.Host, cfg.Hub.Port, cfg.Hub.Model)

		ic, err := interactive.New(cli, &opts, logger)
		if err != nil {
			log.Fatalf("Failed to start console: %v", err)
		}
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
		case <-ctx.Done():
		}
		cancel()
		log.Println("Goodbye!")
		return
	}

	// cancel on signal so watch and slow reads exit cleanly
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	if err := runCommand(ctx, cli, cfg, logger, args); err != nil {
		closeLogger()
		log.Fatalf("Command failed: %v", err)
	}
}

// resolve merges the config file, command-line flags, and defaults
// into the effective configuration. Flags win over the file.
func resolve() (config.Config, error) {
	var cfg config.Config
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if cfg.Hub == nil {
		cfg.Hub = &config.HubConfig{}
	}
	if cfg.Log == nil {
		cfg.Log = &config.LogConfig{}
	}

	if opts.Host != "" {
		cfg.Hub.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Hub.Port = opts.Port
	}
	if opts.Token != "" {
		cfg.Hub.Token = opts.Token
	}
	if opts.Model != "" {
		cfg.Hub.Model = opts.Model
	}
	if opts.ProtocolLog != "" {
		cfg.Log.Path = opts.ProtocolLog
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	config.ApplyDefaults(&cfg)
	return cfg, nil
}

// setupLogging configures log flags and verbosity.
func setupLogging(level string) {
	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	default:
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	}
}

// buildLogger assembles the protocol event logger: a trace file when
// configured, plus slog output at debug level.
func buildLogger(logCfg *config.LogConfig) (protolog.Logger, func(), error) {
	var loggers []protolog.Logger
	closeFn := func() {}

	if logCfg.Path != "" {
		fl, err := protolog.NewFileLogger(logCfg.Path)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
	}
	if logCfg.Level == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, protolog.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return protolog.NewMultiLogger(loggers...), closeFn, nil
	}
}

func runCommand(ctx context.Context, cli *client.Client, cfg config.Config, logger protolog.Logger, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "discover":
		return runDiscover(ctx, cli)
	case "device":
		return runDevice(ctx, cli, rest)
	case "channel":
		return runChannel(ctx, cli, rest)
	case "set":
		return runSet(ctx, cli, rest)
	case "remotes":
		return runRemotes(ctx, cli)
	case "keys":
		return runKeys(ctx, cli, rest)
	case "send":
		return runSend(ctx, cli, rest)
	case "watch":
		return runWatch(ctx, cli, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(2)
		return nil
	}
}

// runFind browses mDNS and prints every hub seen within the window.
func runFind() {
	ctx, cancel := context.WithTimeout(context.Background(), discovery.BrowseTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	hubs, err := browser.Browse(ctx)
	if err != nil {
		log.Fatalf("Browse failed: %v", err)
	}

	found := 0
	for hub := range hubs {
		found++
		fmt.Printf("%s at %s:%d", hub.InstanceName, hub.Addr(), hub.Port)
		if hub.Model != "" {
			fmt.Printf(" (model %s)", hub.Model)
		}
		fmt.Println()
	}
	if found == 0 {
		fmt.Println("No hubs found")
	}
}

// findHub returns the first hub advertising itself on the LAN.
func findHub() (*discovery.HubService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), discovery.BrowseTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	return browser.Find(ctx)
}

func runDiscover(ctx context.Context, cli *client.Client) error {
	devices, err := cli.DiscoverDevices(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Devices: %d\n", len(devices))
	for _, d := range devices {
		fmt.Printf("  %-12s %-16s %s\n", d.Me, d.Devtype, d.Name)
	}
	return nil
}

func runDevice(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: device <me>")
	}

	d, err := cli.GetDevice(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s  %q\n", d.Me, d.Devtype, d.Name)
	if d.Epver != "" {
		fmt.Printf("  firmware %s\n", d.Epver)
	}
	for _, idx := range sortedChannels(d.Data) {
		fmt.Printf("  %-6s %s\n", idx, formatChannel(d.Data[idx]))
	}
	return nil
}

func runChannel(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: channel <me> <idx>")
	}

	ch, err := cli.GetChannel(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("%s/%s  %s\n", args[0], args[1], formatChannel(ch))
	return nil
}

func runSet(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: set <me> <idx> <type> <val>")
	}

	st, err := parseStateArgs(args[1], args[2], args[3])
	if err != nil {
		return err
	}

	if err := cli.SetDeviceState(ctx, args[0], st); err != nil {
		return err
	}

	fmt.Printf("OK  %s/%s type=0x%02x val=%d\n", args[0], st.Idx, st.Type, st.Val)
	return nil
}

func runRemotes(ctx context.Context, cli *client.Client) error {
	profiles, err := cli.RemoteList(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Remotes: %d\n", len(profiles))
	for _, p := range profiles {
		fmt.Printf("  %-24s %-16s %s/%s (%d keys)\n",
			p.Remote.ID, p.Remote.Name, p.Remote.Category, p.Remote.Brand, len(p.Keys))
	}
	return nil
}

func runKeys(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: keys <remote-id>")
	}

	keys, err := cli.RemoteKeys(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Keys for %s: %s\n", args[0], strings.Join(keys, " "))
	return nil
}

func runSend(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: send <remote-id> <key> [key...]")
	}

	if err := cli.SendRemoteKeys(ctx, args[0], args[1:]); err != nil {
		return err
	}

	fmt.Printf("Sent %d key(s) to %s\n", len(args)-1, args[0])
	return nil
}

// runWatch binds the report port, keeps device state fresh through
// the poll coordinator, and prints every update until interrupted.
func runWatch(ctx context.Context, cli *client.Client, cfg config.Config, logger protolog.Logger) error {
	lst := listener.New(listener.Config{Logger: logger})
	if err := lst.Start(ctx); err != nil {
		return err
	}
	defer lst.Stop()

	coord := poll.New(cli, poll.Config{Interval: cfg.Hub.PollInterval(), Logger: logger})
	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Poll coordinator stopped: %v", err)
		}
	}()

	log.Printf("Watching %s:%d (Ctrl-C to stop)", cfg.Hub.Host, cfg.Hub.Port)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-lst.Updates():
			if !ok {
				return nil
			}
			known := coord.ApplyUpdate(u)
			if u.HasValue {
				fmt.Printf("%s  %s/%s type=0x%02x val=%v", time.Now().Format("15:04:05.000"), u.Me, u.Idx, u.Type, u.Value)
			} else {
				fmt.Printf("%s  %s/%s type=0x%02x", time.Now().Format("15:04:05.000"), u.Me, u.Idx, u.Type)
			}
			if !known {
				fmt.Print("  (unknown device)")
			}
			fmt.Println()
		}
	}
}

// parseStateArgs builds a control write from command arguments. The
// type accepts the "on" and "off" shorthands or any numeric code
// ("0x81", "129").
func parseStateArgs(idx, typeArg, valArg string) (model.State, error) {
	st := model.State{Idx: idx}

	switch strings.ToLower(typeArg) {
	case "on":
		st.Type = wire.TypeOn
	case "off":
		st.Type = wire.TypeOff
	default:
		t, err := strconv.ParseInt(typeArg, 0, 32)
		if err != nil {
			return model.State{}, fmt.Errorf("bad type %q (use on, off, or a number)", typeArg)
		}
		st.Type = int(t)
	}

	v, err := strconv.ParseInt(valArg, 0, 32)
	if err != nil {
		return model.State{}, fmt.Errorf("bad value %q (use a number)", valArg)
	}
	st.Val = int(v)

	return st, nil
}

// formatChannel renders one sub-channel value for display.
func formatChannel(ch model.ChannelValue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type=0x%02x", ch.Type)
	if v, ok := ch.Value(); ok {
		fmt.Fprintf(&b, " val=%v", v)
	}
	switch ch.Type {
	case wire.TypeOn:
		b.WriteString(" (on)")
	case wire.TypeOff:
		b.WriteString(" (off)")
	}
	if ch.Name != "" {
		fmt.Fprintf(&b, " %q", ch.Name)
	}
	return b.String()
}

// sortedChannels returns the channel indexes in stable order.
func sortedChannels(data map[string]model.ChannelValue) []string {
	idxs := make([]string, 0, len(data))
	for idx := range data {
		idxs = append(idxs, idx)
	}
	sort.Strings(idxs)
	return idxs
}
