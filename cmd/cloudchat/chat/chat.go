// Package chatcmder provides the interactive chat command.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/cmd/cloudchat/cmdenv"
	"github.com/papercomputeco/cloudchat/pkg/cliui"
	"github.com/papercomputeco/cloudchat/pkg/config"
	"github.com/papercomputeco/cloudchat/pkg/credentials"
	"github.com/papercomputeco/cloudchat/pkg/dotdir"
	"github.com/papercomputeco/cloudchat/pkg/session"
)

const chatLongDesc string = `Start an interactive chat with the cloud backend.

Replies stream in as they are generated. The conversation that was current
when chat last exited is resumed unless --new or --session is given.

Commands inside the chat:
  /new              Start a new conversation
  /sessions         List conversations
  /select <id>      Switch to a conversation
  /delete <id>      Delete a conversation
  /history          Reprint the current conversation
  /exit             Quit (Ctrl+D also works)

Raw stream lines can be recorded with --record <file>, or into a
timestamped file under chat.record_dir.

Examples:
  cloudchat chat
  cloudchat chat --new
  cloudchat chat --session 6f1c2d
  cloudchat chat --record /tmp/stream.sse --log-file /tmp/chat.log`

const chatShortDesc string = "Interactive chat with the cloud backend"

var userPrompt = cliui.UserStyle.Render("you> ")

type chatCommander struct {
	sessionID string
	fresh     bool
	record    string
	recordDir string
	logFile   string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	configDir string
	target    string
	mux       *session.Multiplexer
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd)
		},
	}

	cmdenv.AddClientFlags(cmd)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagRecordDir, &cmder.recordDir)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Conversation to open")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start in a new conversation")
	cmd.Flags().StringVar(&cmder.record, "record", "", "Write raw stream lines to this file")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := cmdenv.LoadConfig(cmd, config.ChatFlags)
	if err != nil {
		return err
	}

	var opts cmdenv.Options
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		opts.LogWriters = append(opts.LogWriters, f)
	}

	recorder, err := c.openRecorder(cfg.Chat.RecordDir)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer recorder.Close()
		opts.Recorder = recorder
	}

	env, err := cmdenv.New(cmd, cfg, opts)
	if err != nil {
		return err
	}
	c.logger = env.Logger
	c.configDir = env.ConfigDir
	c.target = cfg.Client.APITarget

	publisher, err := cmdenv.NewPublisher(cfg)
	if err != nil {
		return fmt.Errorf("creating exchange publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing exchange publisher", "error", err)
		}
	}()

	notice := &screenNotice{w: c.errOut, target: c.target}
	c.mux = session.New(env.Client, env.Tokens,
		session.WithLogger(env.Logger),
		session.WithPublisher(publisher),
		session.WithNavigator(notice),
	)

	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.KeyStyle.Render("Backend:"), cliui.ValueStyle.Render(c.target))

	token, err := env.Tokens.IDToken(ctx)
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	if token == "" {
		printLoginHint(c.errOut, c.target)
		notice.noteSignedOut()
	} else {
		c.mux.SignIn(ctx)
		c.resume(ctx)
	}

	watcher := credentials.NewWatcher(env.Credentials, c.target, env.Logger)
	go func() {
		err := watcher.Run(ctx, func(signedIn bool) {
			if signedIn {
				c.mux.SignIn(ctx)
				return
			}
			c.mux.SignOut()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("credentials watcher stopped", "error", err)
		}
	}()

	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /help for commands, /exit or Ctrl+D to quit."))

	err = c.loop(ctx)
	c.remember()
	return err
}

// resume opens the conversation named by --session, or the one remembered
// from the last run.
func (c *chatCommander) resume(ctx context.Context) {
	if c.fresh {
		return
	}

	id := c.sessionID
	if id == "" {
		state, err := dotdir.NewManager().LoadChatState(c.configDir)
		if err != nil {
			c.logger.Debug("loading chat state", "error", err)
			return
		}
		id = state.LastSession(c.target)
	}
	if id == "" {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
		return
	}

	if err := c.mux.HandleSelectSession(ctx, id); err != nil {
		fmt.Fprintf(c.errOut, "  %s Could not open %s: %v\n", cliui.WarnStyle.Render("!"), id, err)
		c.mux.ClearError()
		return
	}

	msgs := c.mux.Messages()
	fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(id),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(msgs))),
	)
}

func (c *chatCommander) remember() {
	ddm := dotdir.NewManager()
	state, err := ddm.LoadChatState(c.configDir)
	if err != nil {
		c.logger.Debug("loading chat state", "error", err)
		return
	}
	state.SetLastSession(c.target, c.mux.CurrentSessionID())
	if err := ddm.SaveChatState(state, c.configDir); err != nil {
		c.logger.Debug("saving chat state", "error", err)
	}
}

func (c *chatCommander) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit := c.command(ctx, input)
			if quit {
				break
			}
			continue
		}

		c.send(ctx, input)
		if ctx.Err() != nil {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) send(ctx context.Context, text string) {
	fmt.Fprint(c.out, cliui.AssistantStyle.Render("assistant> "))

	p := newReplyPrinter(c.mux, c.out)
	start := time.Now()
	err := p.follow(func() error {
		return c.mux.HandleSendMessage(ctx, text)
	})
	fmt.Fprintln(c.out)

	switch {
	case err == nil:
		c.logger.Debug("reply settled", "took", cliui.FormatDuration(time.Since(start)))
	case session.IsNotAuthenticated(err):
		printLoginHint(c.errOut, c.target)
	default:
		fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
	}
	c.mux.ClearError()
	fmt.Fprintln(c.out)
}

// command runs a slash command and reports whether the chat should end.
func (c *chatCommander) command(ctx context.Context, input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(c.out, cliui.DimStyle.Render("  /new  /sessions  /select <id>  /delete <id>  /history  /exit"))
	case "/new":
		c.mux.HandleNewSession()
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	case "/sessions":
		c.mux.LoadSessions(ctx)
		c.printSessions()
	case "/select":
		if arg == "" {
			fmt.Fprintf(c.errOut, "  %s usage: /select <id>\n", cliui.FailMark)
			return false
		}
		if err := c.mux.HandleSelectSession(ctx, arg); err != nil {
			c.fail(err)
			return false
		}
		cliui.PrintMessages(c.out, c.mux.Messages(), true)
	case "/delete":
		if arg == "" {
			fmt.Fprintf(c.errOut, "  %s usage: /delete <id>\n", cliui.FailMark)
			return false
		}
		if err := c.mux.HandleDeleteSession(ctx, arg); err != nil {
			c.fail(err)
			return false
		}
		fmt.Fprintf(c.out, "  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(arg))
	case "/history":
		cliui.PrintMessages(c.out, c.mux.Messages(), true)
	default:
		fmt.Fprintf(c.errOut, "  %s unknown command %s\n", cliui.FailMark, name)
	}
	return false
}

func (c *chatCommander) fail(err error) {
	if session.IsNotAuthenticated(err) {
		printLoginHint(c.errOut, c.target)
	} else {
		msg := c.mux.Error()
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintf(c.errOut, "  %s %s\n", cliui.FailMark, msg)
	}
	c.mux.ClearError()
}

func (c *chatCommander) printSessions() {
	sessions := c.mux.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintf(c.out, "  %s No conversations yet.\n", cliui.DimStyle.Render("●"))
		return
	}
	current := c.mux.CurrentSessionID()
	for _, s := range sessions {
		fmt.Fprintln(c.out, cliui.SessionLine(s, s.SessionID == current))
	}
}

// openRecorder opens the transcript file named by --record, or a new
// timestamped file under dir. It returns nil when recording is off.
func (c *chatCommander) openRecorder(dir string) (io.WriteCloser, error) {
	path := c.record
	if path == "" {
		if dir == "" {
			return nil, nil
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating record dir: %w", err)
		}
		path = filepath.Join(dir, "cloudchat-"+time.Now().Format("20060102-150405")+".sse")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening record file: %w", err)
	}
	return f, nil
}

// screenNotice stands in for screens on a terminal: leaving chat prints how
// to sign in, and returning to chat after that confirms the sign-in.
type screenNotice struct {
	w      io.Writer
	target string

	mu        sync.Mutex
	signedOut bool
}

func (n *screenNotice) Navigate(screen session.Screen) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch screen {
	case session.ScreenLogin:
		fmt.Fprintf(n.w, "\n  %s Signed out.\n", cliui.WarnStyle.Render("!"))
		printLoginHint(n.w, n.target)
		n.signedOut = true
	case session.ScreenChat:
		if n.signedOut {
			fmt.Fprintf(n.w, "\n  %s Signed in\n", cliui.SuccessMark)
		}
		n.signedOut = false
	}
}

// noteSignedOut records that the user starts without a token.
func (n *screenNotice) noteSignedOut() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signedOut = true
}

func printLoginHint(w io.Writer, target string) {
	fmt.Fprintf(w, "  %s Not signed in to %s. Run 'cloudchat auth' or set %s.\n",
		cliui.WarnStyle.Render("!"), target, credentials.TokenEnvVar)
}
