package main

import (
	"bufio"
	"chatlark/domain"
	"chatlark/internal"
	"chatlark/repositories"
	"chatlark/runtime"
	"chatlark/runtime/workers"
	"chatlark/services"
	"chatlark/sink"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const chatHelp = `/rooms            list rooms
/room ID          switch room
/older            load older messages
/members          list members of the room
/focus on|off     pretend the window has focus or not
/stats            engine counters
/quit             leave`

func (c *cli) chatCommand() *cobra.Command {
	var notify bool
	var debugPort int
	cmd := &cobra.Command{
		Use:   "chat [ROOM_ID]",
		Short: "Open an interactive chat view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var roomID domain.RoomID
				if len(args) == 1 {
					id, err := parseRoomID(args[0])
					if err != nil {
						return err
					}
					roomID = id
				}
				return runChat(ctx, a, chatOptions{
					roomID:    roomID,
					notify:    notify,
					debugPort: debugPort,
					in:        cmd.InOrStdin(),
				})
			})
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", true, "ring the terminal bell on messages received while away")
	cmd.Flags().IntVar(&debugPort, "debug-port", 0, "serve engine counters on localhost at this port (0 disables)")
	return cmd
}

type chatOptions struct {
	roomID    domain.RoomID
	notify    bool
	debugPort int
	in        io.Reader
}

// chatView holds the mounted orchestrator and what the terminal needs to draw it.
type chatView struct {
	app      *app
	orch     *runtime.Orchestrator
	focus    *terminalFocus
	viewport *terminalViewport
	renderer *renderer
}

func runChat(ctx context.Context, a *app, opts chatOptions) error {
	if !a.session.LoggedIn() {
		return fmt.Errorf("no user resolved for identity %q", a.config.Identity)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Collaborators
	system := terminalSystem{console: a.console, enabled: opts.notify}
	focus := &terminalFocus{}
	dispatcher := services.NewNotificationDispatcher(system, a.log, a.monitoring)
	sender := services.NewSendCoordinator(a.client, a.notifier, a.log, a.monitoring)
	channel := runtime.NewRealtimeChannel(a.transport, runtime.NewRegistry(), a.log, a.monitoring)

	// 2. Orchestration
	sup := workers.NewSupervisor(a.log, a.config.RestartInterval)
	orch := runtime.NewOrchestrator(a.log, sup, channel, a.client, sender, dispatcher,
		a.session, a.notifier, a.monitoring, a.config.PerPage, a.config.EventBuffer).
		WithSinkTimeout(a.config.SinkTimeout)
	orch.Add(
		sink.NewStreamSink(orch, a.log),
		sink.NewAlertSink(a.notifier, a.session),
		sink.NewNotificationSink(dispatcher, focus, a.session, a.log),
	).AddWorker(workers.NewDirectoryPoller(a.log, a.directory, a.config.DirectoryInterval))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Start(ctx)
	}()
	defer func() {
		orch.Stop()
		<-done
		a.monitoring.LogSummary()
	}()

	if opts.debugPort > 0 {
		internal.StartDebugServer(ctx, a.log, opts.debugPort, internal.NewDebugRouter(
			func() any { return a.monitoring.GetLatest() },
			func() ([]internal.InspectRow, error) {
				entries, err := a.repository.Entries()
				return lo.Map(entries, func(e repositories.Entry, _ int) internal.InspectRow {
					return internal.InspectRow{Key: e.Key, Size: e.Size, Detail: e.Value}
				}), err
			},
		))
	}

	// 3. Initial room
	if err := a.directory.Refresh(ctx); err != nil {
		a.log.Warn("Room list unavailable", "error", err)
	}
	view := &chatView{app: a, orch: orch, focus: focus, viewport: &terminalViewport{},
		renderer: newRenderer(a.console)}
	roomID := opts.roomID
	if roomID == 0 {
		first, ok := lo.First(a.directory.Rooms())
		if !ok {
			return fmt.Errorf("user %s has no room, create one with create-room", a.session.User.Login)
		}
		roomID = first.ID
	}
	view.selectRoom(ctx, roomID)
	a.console.println(color.Gray, "Type a message and press enter. /help lists commands.")

	// 4. Input loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(opts.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := view.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line. It reports whether the user asked to quit.
func (v *chatView) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		compose := &runtime.Compose{}
		compose.Set(line)
		if err := v.orch.Submit(ctx, compose, v.viewport); err != nil {
			v.app.log.Debug("Submit failed", "error", err)
		}
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		v.app.console.println(color.Gray, chatHelp)
	case "/rooms":
		_ = v.app.directory.Refresh(ctx)
		v.app.console.mu.Lock()
		printRooms(v.app.console.out, v.app.directory.Rooms())
		v.app.console.mu.Unlock()
	case "/room":
		roomID, err := parseRoomID(arg)
		if err != nil {
			v.app.notifier.Error(err.Error())
			return false
		}
		v.selectRoom(ctx, roomID)
	case "/older":
		stream := v.orch.ActiveStream()
		if stream == nil || !stream.Snapshot().HasOlder {
			return false
		}
		// Redrawn from the top once the older page lands.
		v.app.console.println(color.Magenta, "── history ──")
		v.renderer.reset()
		if err := stream.LoadOlder(ctx); err != nil {
			v.renderer.draw(stream.Snapshot())
		}
	case "/members":
		roomID, ok := v.orch.ActiveRoom()
		if !ok {
			return false
		}
		members, err := v.app.memberships.List(ctx, roomID)
		if err != nil {
			return false
		}
		v.app.console.mu.Lock()
		printUsers(v.app.console.out, lo.Map(members, func(m domain.Member, _ int) domain.User { return m.User }))
		v.app.console.mu.Unlock()
	case "/focus":
		v.focus.Set(arg != "off")
		v.app.notifier.Info(fmt.Sprintf("Focus %s", lo.Ternary(v.focus.HasFocus(), "on", "off")))
	case "/stats":
		s := v.app.monitoring.GetLatest()
		v.app.console.println(color.Gray, fmt.Sprintf(
			"loads=%d failed=%d stale=%d pushes=%d sends=%d notified=%d muted=%d scrolls=%d",
			s.LoadsIssued, s.LoadsFailed, s.StaleDiscarded, s.PushesReceived,
			s.SendsConfirmed, s.NotificationsShown, s.NotificationsMuted, v.viewport.scrolls.Load()))
	default:
		v.app.notifier.Error(fmt.Sprintf("Unknown command %s", command))
	}
	return false
}

func (v *chatView) selectRoom(ctx context.Context, roomID domain.RoomID) {
	// The failure notices are already shown, the view stays usable.
	if err := v.orch.SelectRoom(ctx, roomID); err != nil {
		v.app.log.Debug("Select room failed", "room_id", roomID, "error", err)
	}
	stream := v.orch.ActiveStream()
	if stream == nil {
		return
	}
	title := fmt.Sprintf("#%d", roomID)
	if room, ok := v.app.directory.Room(roomID); ok {
		title = fmt.Sprintf("#%d %s (%s)", room.ID, room.Name, room.Summary())
	}
	v.app.console.println(color.Magenta, "── "+title+" ──")
	v.renderer.reset()
	stream.OnChange(v.renderer.draw)
	v.renderer.draw(stream.Snapshot())
}

// renderer prints each message once, in snapshot order.
type renderer struct {
	mu      sync.Mutex
	console *console
	printed map[domain.MessageID]struct{}
}

func newRenderer(console *console) *renderer {
	return &renderer{console: console, printed: make(map[domain.MessageID]struct{})}
}

func (r *renderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printed = make(map[domain.MessageID]struct{})
}

func (r *renderer) draw(s runtime.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range s.Messages {
		if _, ok := r.printed[m.ID]; ok {
			continue
		}
		r.printed[m.ID] = struct{}{}
		style := lo.Ternary(m.Own, color.Green, color.Cyan)
		r.console.write(fmt.Sprintf("%s %s %s",
			color.Gray.Sprint(m.CreatedAt.Local().Format("15:04")),
			style.Sprint(m.SenderName()+":"),
			m.Content))
	}
}
