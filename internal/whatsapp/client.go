// Package whatsapp is the whatsmeow-backed transport.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// Handler receives every converted inbound message.
type Handler = func(ctx context.Context, msg message.Message)

// Client owns the whatsmeow connection and implements message.Transport.
type Client struct {
	wa        *whatsmeow.Client
	container *sqlstore.Container
	log       *slog.Logger
	qrOut     io.Writer

	mu      sync.RWMutex
	handler Handler
	ctx     context.Context
}

var _ message.Transport = (*Client)(nil)

// New opens the device store and prepares a client. It does not connect.
func New(ctx context.Context, cfg config.SessionConfig, log *slog.Logger) (*Client, error) {
	log = log.With("component", "whatsapp")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Path)
	container, err := sqlstore.New(ctx, "sqlite", dsn, logger.Whatsmeow(log, "Database", cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	c := &Client{
		wa:        whatsmeow.NewClient(device, logger.Whatsmeow(log, "Client", cfg.LogLevel)),
		container: container,
		log:       log,
		qrOut:     os.Stdout,
	}
	c.wa.AddEventHandler(c.onEvent)
	return c, nil
}

// Run connects, pairs by QR code when the device is new, and delivers
// messages to h until ctx is cancelled.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.mu.Lock()
	c.handler, c.ctx = h, ctx
	c.mu.Unlock()

	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if err := c.pair(ctx, qrChan); err != nil {
			c.wa.Disconnect()
			return err
		}
	} else if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.log.InfoContext(ctx, "WhatsApp client running", "self", c.SelfID())
	<-ctx.Done()
	c.log.Info("Disconnecting WhatsApp client")
	c.wa.Disconnect()
	return nil
}

func (c *Client) pair(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-qrChan:
			if !ok {
				return errors.New("QR channel closed before pairing")
			}
			switch evt.Event {
			case "code":
				c.log.Info("Scan the QR code to pair the bot")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, c.qrOut)
			case "success":
				c.log.Info("Device paired")
				return nil
			case "timeout":
				return errors.New("QR pairing timed out")
			default:
				if evt.Error != nil {
					return fmt.Errorf("QR pairing failed: %w", evt.Error)
				}
				c.log.Warn("Unexpected QR event", "event", evt.Event)
			}
		}
	}
}

// Close releases the session store.
func (c *Client) Close() error {
	return c.container.Close()
}

func (c *Client) onEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		msg, ok := FromEvent(v)
		if !ok {
			return
		}
		c.mu.RLock()
		h, ctx := c.handler, c.ctx
		c.mu.RUnlock()
		if h != nil {
			h(ctx, msg)
		}
	case *events.Connected:
		c.log.Info("Connected to WhatsApp")
	case *events.Disconnected:
		c.log.Warn("Disconnected from WhatsApp")
	case *events.LoggedOut:
		c.log.Error("Logged out from WhatsApp, delete the session store and pair again", "reason", v.Reason)
	case *events.StreamReplaced:
		c.log.Error("Stream replaced by another connection")
	}
}
