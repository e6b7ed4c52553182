package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// syslogIdentifier tags every journal entry this process emits, so
// `journalctl -t camhal` follows the HAL.
const syslogIdentifier = "camhal"

// journalHandler is a slog.Handler sending records to systemd-journald
// as structured fields. Attribute keys are folded to journald's
// uppercase field syntax, so `journalctl MODULE=hal CAMERA=0` works.
type journalHandler struct {
	level  slog.Leveler
	static map[string]string // fields from WithAttrs, pre-rendered
	groups []string
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{level: level, static: map[string]string{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *journalHandler) Handle(_ context.Context, record slog.Record) error {
	fields := map[string]string{
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}
	for key, value := range h.static {
		fields[key] = value
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.renderAttr(fields, h.groups, attr)
		return true
	})

	return journal.Send(record.Message, journalPriority(record.Level), fields)
}

// WithAttrs pre-renders the attributes into journal fields.
func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := &journalHandler{
		level:  h.level,
		static: make(map[string]string, len(h.static)+len(attrs)),
		groups: h.groups,
	}
	for key, value := range h.static {
		derived.static[key] = value
	}
	for _, attr := range attrs {
		derived.renderAttr(derived.static, derived.groups, attr)
	}
	return derived
}

// WithGroup prefixes subsequent attribute fields with the group name.
func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := &journalHandler{
		level:  h.level,
		static: h.static,
		groups: append(append([]string(nil), h.groups...), name),
	}
	return derived
}

// renderAttr flattens an attribute into journal fields, recursing into
// groups.
func (h *journalHandler) renderAttr(fields map[string]string, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, member := range attr.Value.Group() {
			h.renderAttr(fields, nested, member)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	fields[journalFieldName(key)] = fmt.Sprint(attr.Value.Any())
}

// journalFieldName folds a key into journald's field syntax: uppercase
// ASCII letters, digits, and underscores, not starting with a digit.
func journalFieldName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "X" + name
	}
	return name
}

// journalPriority maps slog levels onto syslog priorities.
func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
