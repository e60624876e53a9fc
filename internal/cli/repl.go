// Package cli implements the interactive terminal client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/export"
	"github.com/capitalize-ai/weather-chat/internal/model"
	"github.com/capitalize-ai/weather-chat/internal/search"
)

const help = `Commands:
  /search <text>          list messages containing text
  /export [text|json] [file]
                          write the transcript to file, or print it
  /clear                  start over
  /quit                   exit
Anything else is sent to the agent. Ctrl-C cancels a reply in progress.`

// REPL reads lines from In and drives one conversation.
type REPL struct {
	Conversation *chat.Conversation
	In           io.Reader
	Out          io.Writer
	Export       export.Options
	Now          func() time.Time
}

// Run processes input until EOF, /quit or ctx ends.
func (r *REPL) Run(ctx context.Context) error {
	if r.Now == nil {
		r.Now = time.Now
	}

	sc := bufio.NewScanner(r.In)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(r.Out, "> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(sc.Text())
		quit, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(r.Out, "%v\n", err)
		}
		if quit {
			return nil
		}
		fmt.Fprint(r.Out, "> ")
	}
	return sc.Err()
}

func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.Out, help)
	case "/clear":
		r.Conversation.Clear()
		fmt.Fprintln(r.Out, "Conversation cleared.")
	case "/search":
		r.search(arg)
	case "/export":
		return false, r.export(arg)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

// send streams the reply to Out as it grows.
func (r *REPL) send(ctx context.Context, text string) error {
	sub := r.Conversation.Subscribe()
	defer sub.Close()

	result := make(chan error, 1)
	go func() {
		result <- r.Conversation.Send(ctx, text)
	}()

	p := &replyPrinter{out: r.Out, label: r.Export.AgentLabel}
	for {
		select {
		case <-sub.Ready():
			p.apply(sub.Drain())
		case err := <-result:
			p.apply(sub.Drain())
			p.end()
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(r.Out, "(cancelled)")
				return nil
			}
			if err != nil && !p.shown {
				return err
			}
			return nil
		}
	}
}

type replyPrinter struct {
	out     io.Writer
	label   string
	entryID string
	printed string
	shown   bool
}

func (p *replyPrinter) apply(batch []model.Event) {
	for _, e := range batch {
		switch e.Type {
		case model.EventTypeAppended:
			if e.Entry != nil && e.Entry.Role == model.RoleAssistant {
				p.entryID = e.Entry.ID
				label := p.label
				if label == "" {
					label = "Agent"
				}
				fmt.Fprintf(p.out, "%s: ", label)
			}
		case model.EventTypePatched:
			if e.EntryID != p.entryID || e.Entry == nil {
				continue
			}
			content := e.Entry.Content
			if strings.HasPrefix(content, p.printed) {
				fmt.Fprint(p.out, content[len(p.printed):])
			} else {
				fmt.Fprint(p.out, "\n"+content)
			}
			p.printed = content
			p.shown = true
		}
	}
}

func (p *replyPrinter) end() {
	if p.entryID != "" {
		fmt.Fprintln(p.out)
	}
}

func (r *REPL) search(q string) {
	results := search.Results(r.Conversation.Snapshot().Entries, q)
	if len(results) == 0 {
		fmt.Fprintln(r.Out, "No matches.")
		return
	}
	for _, res := range results {
		fmt.Fprintf(r.Out, "[%d] %s: %s\n", res.Index+1, res.Entry.Role, res.Entry.Content)
	}
}

func (r *REPL) export(arg string) error {
	formatName, path, _ := strings.Cut(arg, " ")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	now := r.Now()
	entries := r.Conversation.Snapshot().Entries

	var data []byte
	if format == export.FormatJSON {
		if data, err = export.JSON(entries, now); err != nil {
			return err
		}
	} else {
		data = []byte(export.Text(entries, r.Export))
	}

	path = strings.TrimSpace(path)
	if path == "" {
		fmt.Fprintln(r.Out, string(data))
		return nil
	}
	if path == "." {
		path = export.Filename(format, now)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(r.Out, "Exported %d messages to %s\n", len(entries), path)
	return nil
}
