// Package matrix is Kokoro's chat-platform gateway. It owns the mautrix
// client: the sync loop, inbound text and voice events, and every outbound
// send (text, notice, reply, typing, file attachments, media download).
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/kokoro/common/retry"
)

// MessageKind distinguishes the event shapes the bot reacts to.
type MessageKind string

const (
	// KindText is a plain m.text message.
	KindText MessageKind = "text"
	// KindAudio is an m.audio message (voice note).
	KindAudio MessageKind = "audio"
)

// Incoming is one inbound message, decoupled from mautrix's event types so
// the rest of the bot never imports them.
type Incoming struct {
	RoomID  string
	Sender  string
	EventID string
	Kind    MessageKind
	// Body is the message text for KindText.
	Body string
	// MediaURL is the mxc:// content URI for KindAudio.
	MediaURL string
	// Filename is the uploaded file name for KindAudio, when present.
	Filename string
}

// MessageHandler processes one inbound message. Handlers run on the sync
// goroutine; long work must be moved off it by the handler.
type MessageHandler func(ctx context.Context, msg Incoming)

// Config holds the gateway configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// AllowedRooms limits which rooms the bot listens in. Empty means all
	// joined rooms.
	AllowedRooms []string
	// DB persists the sync position across restarts. When nil, mautrix's
	// in-memory store is used and room history replays on every start.
	DB *sql.DB
}

// Client wraps the mautrix client.
type Client struct {
	client  *mautrix.Client
	config  *Config
	stopCh  chan struct{}
	handler MessageHandler
}

// New creates the gateway. It does not contact the homeserver.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}

	if config.DB != nil {
		client.Store = newSyncStore(config.DB)
	} else {
		slog.Warn("matrix: no database configured, sync position will not survive restarts")
	}

	return &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}, nil
}

// Start joins the allowed rooms and begins syncing in the background,
// reconnecting with exponential backoff when the sync stream drops.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.handler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.onMessage)

	for _, roomID := range c.config.AllowedRooms {
		if err := c.joinRoom(ctx, id.RoomID(roomID)); err != nil {
			return fmt.Errorf("join room %s: %w", roomID, err)
		}
	}

	go c.syncLoop()
	return nil
}

// syncLoop keeps the sync stream alive. A transient homeserver error would
// otherwise kill the goroutine and leave the bot deaf to new messages.
func (c *Client) syncLoop() {
	backoff := retry.NewBackoff(2*time.Second, 5*time.Minute)
	for {
		backoff.Reset()
		err := c.client.Sync()
		if err == nil {
			// Sync returns nil only after a clean StopSync.
			return
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		delay := backoff.Next()
		slog.Error("matrix: sync stopped, reconnecting", "err", err, "delay", delay)
		select {
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// Stop terminates the sync loop.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// UserID returns the bot's own Matrix user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, roomID, text string) error {
	if _, err := c.client.SendText(ctx, id.RoomID(roomID), text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendNotice sends an m.notice, used for status lines like the transcribed
// text echo so other bots ignore them.
func (c *Client) SendNotice(ctx context.Context, roomID, text string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

// ReplyToMessage sends text threaded onto an existing event.
func (c *Client) ReplyToMessage(ctx context.Context, roomID, eventID, text string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{
				EventID: id.EventID(eventID),
			},
		},
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// SetTyping toggles the bot's typing indicator.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	if _, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, timeout); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

// SendFile uploads the file at path and sends it to the room as an m.file
// event under the given filename.
func (c *Client) SendFile(ctx context.Context, roomID, filename, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	upload, err := c.client.UploadMedia(ctx, mautrix.ReqUploadMedia{
		ContentBytes: data,
		ContentType:  contentType,
		FileName:     filename,
	})
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	content := event.MessageEventContent{
		MsgType: event.MsgFile,
		Body:    filename,
		URL:     upload.ContentURI.CUString(),
		Info: &event.FileInfo{
			MimeType: contentType,
			Size:     len(data),
		},
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content); err != nil {
		return fmt.Errorf("send attachment event: %w", err)
	}
	return nil
}

// DownloadBytes fetches media content (voice notes) by its mxc:// URI,
// retrying transient failures.
func (c *Client) DownloadBytes(ctx context.Context, mediaURL string) ([]byte, error) {
	uri, err := id.ContentURIString(mediaURL).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse media uri %q: %w", mediaURL, err)
	}

	var data []byte
	err = retry.Do(ctx, retry.DefaultConfig, func() error {
		var dlErr error
		data, dlErr = c.client.DownloadBytes(ctx, uri)
		return dlErr
	})
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	return data, nil
}

// onMessage filters the raw event stream down to the messages the bot cares
// about and hands them to the registered handler.
func (c *Client) onMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}
	if !c.roomAllowed(evt.RoomID.String()) {
		return
	}

	content := evt.Content.AsMessage()
	if content == nil {
		return
	}

	msg := Incoming{
		RoomID:  evt.RoomID.String(),
		Sender:  evt.Sender.String(),
		EventID: evt.ID.String(),
	}
	switch content.MsgType {
	case event.MsgText:
		msg.Kind = KindText
		msg.Body = content.Body
	case event.MsgAudio:
		msg.Kind = KindAudio
		msg.MediaURL = string(content.URL)
		msg.Filename = content.Body
	default:
		return
	}

	if c.handler != nil {
		c.handler(ctx, msg)
	}
}

// roomAllowed reports whether the bot listens in the given room. An empty
// allow-list admits every joined room.
func (c *Client) roomAllowed(roomID string) bool {
	if len(c.config.AllowedRooms) == 0 {
		return true
	}
	for _, allowed := range c.config.AllowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// joinRoom joins a configured room, tolerating the forbidden error a
// homeserver returns when the bot is already a member.
func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	if _, err := c.client.JoinRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("matrix: join refused, assuming existing membership", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
