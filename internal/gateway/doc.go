// Package gateway turns the raw dispatch stream into domain envelopes.
//
// A wire frame is one JSON object:
//
//	{"t": "GUILD_MEMBER_ADD", "s": 0, "d": {"guild_id": "1", "user_id": "2"}}
//
// t is the event wire name, s the originating shard and d the payload.
// When s is omitted the shard is derived from the payload's guild id.
// Frames are read from a websocket connection (WebSocketSource) or from a
// newline-delimited file (ReplaySource).
package gateway
