// Package app wires the Kokoro bot together and dispatches inbound events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/kokoro/common/trace"
	"github.com/bdobrica/kokoro/internal/kokoro/commands"
	"github.com/bdobrica/kokoro/internal/kokoro/conversation"
	"github.com/bdobrica/kokoro/internal/kokoro/llm"
	"github.com/bdobrica/kokoro/internal/kokoro/matrix"
	"github.com/bdobrica/kokoro/internal/kokoro/persona"
	"github.com/bdobrica/kokoro/internal/kokoro/session"
	"github.com/bdobrica/kokoro/internal/kokoro/speech"
	"github.com/bdobrica/kokoro/internal/kokoro/store"
	"github.com/bdobrica/kokoro/internal/kokoro/transcript"
)

// User-facing failure texts. Details go to the log, never to the room.
const (
	replyGenericFailure       = "Sorry, something went wrong on my end. Please send that again."
	replyTranscriptionFailure = "Sorry, I couldn't make out that voice note. Please try again or type it instead."
)

const typingTimeout = 30 * time.Second

// Config holds application configuration.
type Config struct {
	DatabasePath string
	// DataDir is where per-user transcript JSON files live.
	DataDir string
	// ProfilePath overrides the embedded persona profile when non-empty.
	ProfilePath string

	Matrix matrix.Config

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string

	// ContextWindow is the number of transcript turns per completion request.
	ContextWindow int
	// MaxReplyTokens caps reply length.
	MaxReplyTokens int
}

// App is the assembled bot.
type App struct {
	config      *Config
	store       *store.Store
	matrix      *matrix.Client
	personas    *persona.Registry
	sessions    *session.Store
	transcripts *transcript.Store
	transcriber speech.Transcriber
	manager     *conversation.Manager
	router      *commands.Router
}

// New builds the application from config. Nothing contacts the network yet;
// that happens in Run.
func New(config *Config) (*App, error) {
	slog.Info("opening database", "path", config.DatabasePath)
	db, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	matrixCfg := config.Matrix
	matrixCfg.DB = db.DB()
	slog.Info("configuring Matrix client", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create matrix client: %w", err)
	}

	personas := persona.Builtin()
	if config.ProfilePath != "" {
		personas, err = persona.Load(config.ProfilePath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load persona profile: %w", err)
		}
		slog.Info("persona profile loaded", "path", config.ProfilePath, "roles", len(personas.Names()))
	}

	transcripts, err := transcript.NewStore(config.DataDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	sessions := session.NewStore()

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  config.OpenAIAPIKey,
		BaseURL: config.OpenAIBaseURL,
		Model:   config.Model,
	})
	transcriber := speech.NewWhisper(speech.WhisperConfig{
		APIKey:  config.OpenAIAPIKey,
		BaseURL: config.OpenAIBaseURL,
	})

	manager := conversation.NewManager(conversation.Config{
		Transcripts:    transcripts,
		Sessions:       sessions,
		Personas:       personas,
		Provider:       provider,
		Usage:          db,
		Window:         config.ContextWindow,
		MaxReplyTokens: config.MaxReplyTokens,
	})

	router := commands.NewRouter(personas, sessions, transcripts, matrixClient)

	return &App{
		config:      config,
		store:       db,
		matrix:      matrixClient,
		personas:    personas,
		sessions:    sessions,
		transcripts: transcripts,
		transcriber: transcriber,
		manager:     manager,
		router:      router,
	}, nil
}

// Run starts syncing and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("start matrix client: %w", err)
	}

	for _, roomID := range a.config.Matrix.AllowedRooms {
		if err := a.matrix.SendNotice(ctx, roomID, "Kokoro is awake. Send /help to see what I can do."); err != nil {
			slog.Warn("startup notice failed", "room", roomID, "err", err)
		}
	}

	slog.Info("kokoro is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop tears the application down.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	slog.Info("closing database")
	a.store.Close()
}

// handleMessage runs on the sync goroutine; each event is handed to its own
// goroutine so one slow completion never blocks the event stream.
func (a *App) handleMessage(_ context.Context, msg matrix.Incoming) {
	go a.process(msg)
}

// process handles one inbound message end to end. Every failure is absorbed
// here: the user gets a short notice, the log gets the full error.
func (a *App) process(msg matrix.Incoming) {
	ctx := trace.WithID(context.Background(), trace.GenerateID())
	log := slog.With("exchange", trace.FromContext(ctx), "sender", msg.Sender, "room", msg.RoomID)

	switch msg.Kind {
	case matrix.KindText:
		a.handleText(ctx, log, msg, msg.Body)
	case matrix.KindAudio:
		a.handleVoice(ctx, log, msg)
	}
}

// handleVoice downloads and transcribes a voice note, echoes the recognized
// text, then feeds it through the same path as typed text.
func (a *App) handleVoice(ctx context.Context, log *slog.Logger, msg matrix.Incoming) {
	audio, err := a.matrix.DownloadBytes(ctx, msg.MediaURL)
	if err != nil {
		log.Error("voice download failed", "err", err)
		a.notice(ctx, log, msg.RoomID, replyTranscriptionFailure)
		return
	}

	text, err := a.transcriber.Transcribe(ctx, audio, msg.Filename)
	if err != nil {
		log.Error("transcription failed", "err", err)
		a.notice(ctx, log, msg.RoomID, replyTranscriptionFailure)
		return
	}

	log.Info("voice note transcribed", "chars", len(text))
	a.notice(ctx, log, msg.RoomID, "You said: "+text)
	a.handleText(ctx, log, msg, text)
}

// handleText routes a message to the command router or, for plain chat, the
// conversation manager.
func (a *App) handleText(ctx context.Context, log *slog.Logger, msg matrix.Incoming, text string) {
	reply, err := a.router.Dispatch(ctx, commands.Request{
		UserID: msg.Sender,
		RoomID: msg.RoomID,
		Text:   text,
	})
	switch {
	case err == nil:
		if reply != "" {
			a.send(ctx, log, msg.RoomID, reply)
		}
		return
	case errors.Is(err, commands.ErrNotACommand):
		// Plain chat, fall through to the conversation manager.
	default:
		log.Error("command failed", "err", err)
		a.notice(ctx, log, msg.RoomID, replyGenericFailure)
		return
	}

	a.converse(ctx, log, msg, text)
}

// converse runs one exchange with the typing indicator up.
func (a *App) converse(ctx context.Context, log *slog.Logger, msg matrix.Incoming, text string) {
	if err := a.matrix.SetTyping(ctx, msg.RoomID, true, typingTimeout); err != nil {
		log.Warn("set typing failed", "err", err)
	}
	defer func() {
		if err := a.matrix.SetTyping(ctx, msg.RoomID, false, 0); err != nil {
			log.Warn("clear typing failed", "err", err)
		}
	}()

	reply, err := a.manager.Respond(ctx, msg.Sender, text)
	if err != nil {
		log.Error("exchange failed", "kind", llm.KindOf(err), "err", err)
		a.notice(ctx, log, msg.RoomID, replyGenericFailure)
		return
	}

	if err := a.matrix.ReplyToMessage(ctx, msg.RoomID, msg.EventID, reply); err != nil {
		log.Error("send reply failed", "err", err)
	}
}

func (a *App) send(ctx context.Context, log *slog.Logger, roomID, text string) {
	if err := a.matrix.SendText(ctx, roomID, text); err != nil {
		log.Error("send text failed", "err", err)
	}
}

func (a *App) notice(ctx context.Context, log *slog.Logger, roomID, text string) {
	if err := a.matrix.SendNotice(ctx, roomID, text); err != nil {
		log.Error("send notice failed", "err", err)
	}
}
