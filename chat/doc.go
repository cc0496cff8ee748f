// Package chat implements the broadcast channel: the hub that owns every live
// websocket connection, per-connection read/write pumps, history replay for
// newly joined clients, persistence-then-broadcast of inbound messages, and
// the retention sweep that expires old records.
//
// It provides three entrypoints:
//   - Hub.Run: the hub's select loop. Register/unregister and fan-out all go
//     through it; started once at process init.
//   - StartRetentionJob: periodically deletes messages older than the history
//     window. Failures are logged and the next tick proceeds regardless.
//   - StartMirror (optional): polls a Twitch channel's live status and, while
//     live, relays its IRC chat to connected clients as ephemeral "mirror"
//     events. Mirrored lines are never persisted and never replayed.
package chat
