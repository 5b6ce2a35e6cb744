package handlers

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// Diagnostic topics. Anything else is rejected.
const (
	DiagUptime     = "uptime"
	DiagGoroutines = "goroutines"
	DiagMemory     = "memory"
	DiagDB         = "db"
	DiagGuards     = "guards"
	DiagCommands   = "commands"
	DiagAudit      = "audit"

	diagTopicList = DiagUptime + "|" + DiagGoroutines + "|" + DiagMemory + "|" + DiagDB + "|" +
		DiagGuards + "|" + DiagCommands + "|" + DiagAudit

	auditShown = 10
)

// Audit outcomes recorded for diag.
const (
	auditOK       = "ok"
	auditRejected = "rejected"
	auditError    = "error"
)

// NewDiagHandler returns the owner diagnostics command. It only answers a
// fixed set of read-only topics and audit-logs every invocation.
func NewDiagHandler(deps HandlerDeps) command.HandlerFunc {
	return diagHandler{deps}.Handle
}

type diagHandler struct {
	deps HandlerDeps
}

func (h diagHandler) Handle(ctx context.Context, mc *message.Context) (err error) {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", "diag")

	topic := ""
	if len(mc.Used.Args) > 0 {
		topic = strings.ToLower(mc.Used.Args[0])
	}

	outcome := auditOK
	defer func() {
		if err != nil {
			outcome = auditError
		}
		entry := &database.AuditEntry{
			ActorID: message.User(mc.Msg.SenderID),
			ChatID:  mc.Msg.ChatID,
			Command: "diag",
			Args:    joinArgs(mc.Used.Args),
			Outcome: outcome,
		}
		if aerr := h.deps.Store.SaveAudit(ctx, entry); aerr != nil {
			log.ErrorContext(ctx, "Failed to write audit entry", "error", aerr)
		}
	}()

	var text string
	switch topic {
	case DiagUptime:
		text = fmt.Sprintf("⏱ Uptime: %s", h.deps.now().Sub(h.deps.StartTime).Round(time.Second))
	case DiagGoroutines:
		text = fmt.Sprintf("🧵 Goroutines: %d", runtime.NumGoroutine())
	case DiagMemory:
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		text = fmt.Sprintf("🧠 Heap: %s\nSys: %s\nGC cycles: %d", mib(m.HeapAlloc), mib(m.Sys), m.NumGC)
	case DiagDB:
		text, err = h.db(ctx)
		if err != nil {
			return err
		}
	case DiagGuards:
		text = "🛡 Guards: " + strings.Join(h.deps.Guards, " → ")
	case DiagCommands:
		text = fmt.Sprintf("📚 Commands: %d (%d tokens)", h.deps.Registry.Len(), len(h.deps.Registry.Tokens()))
	case DiagAudit:
		text, err = h.audit(ctx)
		if err != nil {
			return err
		}
	default:
		outcome = auditRejected
		log.WarnContext(ctx, "Rejected diag topic", "topic", topic)
		return usage(ctx, mc, "<"+diagTopicList+">")
	}
	return mc.Reply(ctx, text)
}

func (h diagHandler) db(ctx context.Context) (string, error) {
	start := h.deps.now()
	if err := h.deps.Store.Ping(ctx); err != nil {
		return "", fmt.Errorf("database ping failed: %w", err)
	}
	latency := h.deps.now().Sub(start)

	var b strings.Builder
	fmt.Fprintf(&b, "🗄 Database ok (%s)", latency.Round(time.Microsecond))
	for _, prefix := range []string{database.UserPrefix, database.GroupPrefix, database.MenfessPrefix} {
		paths, err := h.deps.Store.List(ctx, prefix)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n%s: %d", strings.TrimSuffix(prefix, "."), len(paths))
	}
	return b.String(), nil
}

func (h diagHandler) audit(ctx context.Context) (string, error) {
	entries, err := h.deps.Store.RecentAudit(ctx, auditShown)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "📜 Audit log is empty.", nil
	}
	var b strings.Builder
	b.WriteString("📜 Recent audit:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s %s %s %s (%s)", e.CreatedAt.Format("01-02 15:04"), e.ActorID, e.Command, e.Args, e.Outcome)
	}
	return b.String(), nil
}

func mib(n uint64) string {
	return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
}
