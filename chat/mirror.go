package chat

import (
	"context"
	"log/slog"
	"os"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/livehub/config"
	"github.com/onnwee/livehub/twitchapi"
)

// StartMirror polls the configured Twitch channel's live status and, while it
// is live, relays its IRC chat to every connected client as "mirror" events.
// Relayed lines are ephemeral: never persisted and never part of history
// replay. Env knobs:
//
//	MIRROR_POLL_INTERVAL (default 30s)
//	MIRROR_CHANNEL, MIRROR_BOT_USERNAME, MIRROR_OAUTH_TOKEN,
//	TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET required (see config.ValidateMirrorReady)
func StartMirror(ctx context.Context, cfg *config.Config, hub *Hub) {
	if err := cfg.ValidateMirrorReady(); err != nil {
		slog.Info("mirror disabled", slog.Any("reason", err))
		return
	}

	pollEvery := 30 * time.Second
	if v := os.Getenv("MIRROR_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			pollEvery = d
		}
	}

	helix := twitchapi.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret)

	var running bool
	var relayCancel context.CancelFunc

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	slog.Info("mirror: started poller", slog.String("channel", cfg.MirrorChannel), slog.Duration("interval", pollEvery))

	for {
		if ctx.Err() != nil {
			if relayCancel != nil {
				relayCancel()
			}
			return
		}

		stream, err := helix.GetStreamByLogin(ctx, cfg.MirrorChannel)
		switch {
		case err != nil:
			slog.Debug("mirror: live status check failed", slog.Any("err", err))
		case stream == nil:
			if running {
				slog.Info("mirror: channel went offline; stopping relay", slog.String("channel", cfg.MirrorChannel))
				relayCancel()
				running = false
			}
		default:
			if !running {
				slog.Info("mirror: channel is live; starting relay",
					slog.String("channel", cfg.MirrorChannel),
					slog.String("title", stream.Title))
				var rctx context.Context
				rctx, relayCancel = context.WithCancel(ctx)
				running = true
				go runRelay(rctx, cfg, hub)
			}
		}

		select {
		case <-ctx.Done():
			if relayCancel != nil {
				relayCancel()
			}
			return
		case <-ticker.C:
		}
	}
}

// runRelay keeps an IRC connection to the mirrored channel open until ctx is
// cancelled, reconnecting on transient failures.
func runRelay(ctx context.Context, cfg *config.Config, hub *Hub) {
	client := twitch.NewClient(cfg.MirrorBotUsername, cfg.MirrorOAuthToken)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		hub.BroadcastMirror(MirrorMessage{
			Username: msg.User.DisplayName,
			Message:  msg.Message,
			Channel:  cfg.MirrorChannel,
			SentAt:   time.Now().UTC(),
		})
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(cfg.MirrorChannel)
	for {
		if err := client.Connect(); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("mirror: irc connect error; retrying", slog.Any("err", err))
			select {
			case <-ctx.Done():
			case <-time.After(10 * time.Second):
				continue
			}
		}
		break
	}
	<-done
	slog.Info("mirror: relay exited", slog.String("channel", cfg.MirrorChannel))
}
