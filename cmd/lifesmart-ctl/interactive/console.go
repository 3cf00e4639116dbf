// Package interactive provides the interactive command-line console
// for the LifeSmart hub CLI.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/lifesmart-local/lifesmart-go/pkg/client"
	"github.com/lifesmart-local/lifesmart-go/pkg/discovery"
	"github.com/lifesmart-local/lifesmart-go/pkg/listener"
	"github.com/lifesmart-local/lifesmart-go/pkg/log"
	"github.com/lifesmart-local/lifesmart-go/pkg/model"
	"github.com/lifesmart-local/lifesmart-go/pkg/poll"
	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// HubConfig provides configuration information to the console.
// This interface allows the interactive layer to display hub settings
// without depending on the main package's config structure.
type HubConfig interface {
	// HubHost returns the configured hub address.
	HubHost() string

	// HubModel returns the model string sent with each command.
	HubModel() string
}

// Console handles interactive mode for lifesmart-ctl.
type Console struct {
	client *client.Client
	config HubConfig
	logger log.Logger
	rl     *readline.Instance

	// Watch control
	watchCancel context.CancelFunc
	watchLst    *listener.Listener
	watchCoord  *poll.Coordinator
}

// New creates a new interactive console. The logger is handed to the
// watch listener and poll coordinator so watch traffic lands in the
// same protocol log as command traffic.
func New(cli *client.Client, cfg HubConfig, logger log.Logger) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lifesmart> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		client: cli,
		config: cfg,
		logger: logger,
		rl:     rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.stopWatch()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "discover", "devices", "ls":
			c.cmdDiscover(ctx)

		case "device", "d":
			c.cmdDevice(ctx, args)

		case "channel", "ch":
			c.cmdChannel(ctx, args)

		case "set":
			c.cmdSet(ctx, args)

		case "on":
			c.cmdSwitch(ctx, args, true)

		case "off":
			c.cmdSwitch(ctx, args, false)

		case "remotes":
			c.cmdRemotes(ctx)

		case "keys":
			c.cmdKeys(ctx, args)

		case "send":
			c.cmdSend(ctx, args)

		case "watch", "w":
			c.cmdWatch(ctx, args)

		case "find":
			c.cmdFind(ctx)

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
LifeSmart Hub Commands:
  Devices:
    discover                     - List devices enrolled on the hub
    device <me>                  - Show one device with its sub-channels
    channel <me> <idx>           - Read one sub-channel
    set <me> <idx> <type> <val>  - Write a sub-channel (type: on, off, or numeric)
    on <me> <idx>                - Switch a sub-channel on
    off <me> <idx>               - Switch a sub-channel off

  IR Remotes:
    remotes                      - List learned remotes
    keys <remote-id>             - List the keys of one remote
    send <remote-id> <key...>    - Fire keys in order

  Monitoring:
    watch [stop]                 - Start/stop the live state report feed
    status                       - Show hub and watch status
    find                         - Browse mDNS for hubs on the LAN

  General:
    help, ?                      - Show this help
    quit, exit                   - Exit`)
}

func (c *Console) cmdDiscover(ctx context.Context) {
	devices, err := c.client.DiscoverDevices(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Discovery failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Devices: %d\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(c.rl.Stdout(), "  %-12s %-16s %s\n", d.Me, d.Devtype, d.Name)
	}
}

func (c *Console) cmdDevice(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: device <me>")
		return
	}

	d, err := c.client.GetDevice(ctx, args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Read failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "%s  %s  %q\n", d.Me, d.Devtype, d.Name)
	if d.Epver != "" {
		fmt.Fprintf(c.rl.Stdout(), "  firmware %s\n", d.Epver)
	}
	for _, idx := range sortedChannels(d.Data) {
		fmt.Fprintf(c.rl.Stdout(), "  %-6s %s\n", idx, formatChannel(d.Data[idx]))
	}
}

func (c *Console) cmdChannel(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: channel <me> <idx>")
		return
	}

	ch, err := c.client.GetChannel(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Read failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "%s/%s  %s\n", args[0], args[1], formatChannel(ch))
}

func (c *Console) cmdSet(ctx context.Context, args []string) {
	if len(args) < 4 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: set <me> <idx> <type> <val>  (type: on, off, or a numeric code)")
		return
	}

	st, err := parseState(args[1], args[2], args[3])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}

	if err := c.client.SetDeviceState(ctx, args[0], st); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Write failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "OK  %s/%s type=0x%02x val=%d\n", args[0], st.Idx, st.Type, st.Val)
}

func (c *Console) cmdSwitch(ctx context.Context, args []string, on bool) {
	if len(args) < 2 {
		if on {
			fmt.Fprintln(c.rl.Stdout(), "Usage: on <me> <idx>")
		} else {
			fmt.Fprintln(c.rl.Stdout(), "Usage: off <me> <idx>")
		}
		return
	}

	st := model.State{Idx: args[1], Type: wire.TypeOff, Val: 0}
	if on {
		st.Type = wire.TypeOn
		st.Val = 1
	}

	if err := c.client.SetDeviceState(ctx, args[0], st); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Write failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "OK  %s/%s type=0x%02x val=%d\n", args[0], st.Idx, st.Type, st.Val)
}

func (c *Console) cmdRemotes(ctx context.Context) {
	profiles, err := c.client.RemoteList(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Remote list failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Remotes: %d\n", len(profiles))
	for _, p := range profiles {
		fmt.Fprintf(c.rl.Stdout(), "  %-24s %-16s %s/%s (%d keys)\n",
			p.Remote.ID, p.Remote.Name, p.Remote.Category, p.Remote.Brand, len(p.Keys))
	}
}

func (c *Console) cmdKeys(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: keys <remote-id>")
		return
	}

	keys, err := c.client.RemoteKeys(ctx, args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Key list failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Keys for %s: %s\n", args[0], strings.Join(keys, " "))
}

func (c *Console) cmdSend(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <remote-id> <key> [key...]")
		return
	}

	if err := c.client.SendRemoteKeys(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Sent %d key(s) to %s\n", len(args)-1, args[0])
}

// cmdWatch starts or stops the live update feed. Watching binds the
// report port and keeps cached device state fresh through the poll
// coordinator.
func (c *Console) cmdWatch(ctx context.Context, args []string) {
	if len(args) > 0 && strings.EqualFold(args[0], "stop") {
		if c.watchCancel == nil {
			fmt.Fprintln(c.rl.Stdout(), "Not watching")
			return
		}
		c.stopWatch()
		fmt.Fprintln(c.rl.Stdout(), "Watch stopped")
		return
	}

	if c.watchCancel != nil {
		fmt.Fprintln(c.rl.Stdout(), "Already watching (use 'watch stop' to stop)")
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)

	lst := listener.New(listener.Config{Logger: c.logger})
	if err := lst.Start(watchCtx); err != nil {
		cancel()
		fmt.Fprintf(c.rl.Stdout(), "Watch failed: %v\n", err)
		return
	}

	coord := poll.New(c.client, poll.Config{Logger: c.logger})
	go func() { _ = coord.Run(watchCtx) }()
	go c.pumpUpdates(watchCtx, lst, coord)

	c.watchCancel = cancel
	c.watchLst = lst
	c.watchCoord = coord
	fmt.Fprintln(c.rl.Stdout(), "Watching for state reports (use 'watch stop' to stop)")
}

func (c *Console) stopWatch() {
	if c.watchCancel == nil {
		return
	}
	c.watchCancel()
	_ = c.watchLst.Stop()
	c.watchCancel = nil
	c.watchLst = nil
	c.watchCoord = nil
}

// pumpUpdates prints state reports above the prompt as they arrive.
func (c *Console) pumpUpdates(ctx context.Context, lst *listener.Listener, coord *poll.Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-lst.Updates():
			if !ok {
				return
			}
			coord.ApplyUpdate(u)
			if u.HasValue {
				fmt.Fprintf(c.rl.Stdout(), "\n[%s] %s/%s type=0x%02x val=%v\n",
					time.Now().Format("15:04:05"), u.Me, u.Idx, u.Type, u.Value)
			} else {
				fmt.Fprintf(c.rl.Stdout(), "\n[%s] %s/%s type=0x%02x\n",
					time.Now().Format("15:04:05"), u.Me, u.Idx, u.Type)
			}
			c.rl.Refresh()
		}
	}
}

// cmdFind browses mDNS for hubs advertising on the LAN.
func (c *Console) cmdFind(ctx context.Context) {
	fmt.Fprintln(c.rl.Stdout(), "Browsing for hubs...")

	findCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	hub, err := browser.Find(findCtx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "No hub found: %v\n", err)
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "Found %s at %s:%d", hub.InstanceName, hub.Addr(), hub.Port)
	if hub.Model != "" {
		fmt.Fprintf(c.rl.Stdout(), " (model %s)", hub.Model)
	}
	fmt.Fprintln(c.rl.Stdout())
}

func (c *Console) cmdStatus() {
	fmt.Fprintf(c.rl.Stdout(), "Hub:   %s (model %s)\n", c.config.HubHost(), c.config.HubModel())

	if c.watchCoord == nil {
		fmt.Fprintln(c.rl.Stdout(), "Watch: off")
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "Watch: on")
	if c.watchCoord.Available() {
		fmt.Fprintf(c.rl.Stdout(), "State: %d devices, refreshed %s\n",
			len(c.watchCoord.Snapshot()), c.watchCoord.LastRefresh().Format("15:04:05"))
	} else {
		fmt.Fprint(c.rl.Stdout(), "State: unavailable")
		if err := c.watchCoord.LastError(); err != nil {
			fmt.Fprintf(c.rl.Stdout(), " (%v)", err)
		}
		fmt.Fprintln(c.rl.Stdout())
	}
	if n := c.watchLst.Dropped(); n > 0 {
		fmt.Fprintf(c.rl.Stdout(), "Drops: %d reports dropped\n", n)
	}
}

// parseState builds a control write from console arguments. The type
// accepts the "on" and "off" shorthands or any numeric code ("0x81",
// "129").
func parseState(idx, typeArg, valArg string) (model.State, error) {
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
