package logger

import (
	"log/slog"
	"strings"
	"testing"
)

func TestRedactSensitive(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"bot authorization", slog.String("header", "Bot MTExMjIyMzMzNDQ0NTU1"), "Bot ***TU1"},
		{"short bot token", slog.String("header", "Bot abc"), "Bot ***"},
		{"token key", slog.String("gateway_token", "plain-secret"), redactedValue},
		{"dsn key", slog.String("sentry_dsn", "https://k@o1.ingest.sentry.io/1"), redactedValue},
		{"dsn under other key", slog.String("target", "https://public@o1.ingest.sentry.io/1"), "https://redacted@o1.ingest.sentry.io/1"},
		{"empty token", slog.String("token", ""), ""},
		{"normal", slog.String("guild_id", "123"), "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitive(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("redactSensitive() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("gateway", slog.String("token", "abc"), slog.String("url", "wss://g"))
	got := redactSensitive(a)

	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("group token = %q", attrs[0].Value.String())
	}
	if attrs[1].Value.String() != "wss://g" {
		t.Errorf("group url = %q", attrs[1].Value.String())
	}
}

func TestLogger_RedactsOutput(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.Info("connecting", "token", "super-secret")

	if strings.Contains(buf.String(), "super-secret") {
		t.Errorf("secret leaked: %s", buf.String())
	}
}

func TestRedactString(t *testing.T) {
	if got := RedactString("Bot 0123456789"); got != "Bot ***789" {
		t.Errorf("RedactString(bot) = %s", got)
	}
	if got := RedactString("hello"); got != "hello" {
		t.Errorf("RedactString(hello) = %s", got)
	}
	if got := RedactString("https://key@host/1"); strings.Contains(got, "key") {
		t.Errorf("RedactString(dsn) = %s", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"token", "Gateway_Token", "sentry_dsn", "Authorization"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false", k)
		}
	}
	for _, k := range []string{"guild_id", "shard"} {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true", k)
		}
	}
}
