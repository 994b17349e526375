package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/pavelanni/elearn/internal/mail"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/store"
	"github.com/pavelanni/elearn/internal/table"
	"github.com/pavelanni/elearn/internal/table/cache"
	"github.com/pavelanni/elearn/internal/table/gsheets"
	"github.com/pavelanni/elearn/internal/table/xlsx"
)

// tableSet is the opened backend plus whatever must be closed with it.
type tableSet struct {
	store   table.Store
	sheets  model.SheetNames
	backend string
	closers []func() error
}

func (t *tableSet) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			slog.Warn("close failed", "backend", t.backend, "error", err)
		}
	}
}

func openTables(ctx context.Context, v *viper.Viper) (*tableSet, error) {
	ts := &tableSet{sheets: sheetNames(v), backend: strings.ToLower(v.GetString("backend"))}
	if v.GetBool("demo") {
		ts.backend = "memory"
	}

	switch ts.backend {
	case "sheets":
		c, err := gsheets.New(ctx, v.GetString("credentials"), v.GetString("spreadsheet-id"))
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		ts.store = c
	case "xlsx":
		wb, err := xlsx.Open(v.GetString("workbook"))
		if err != nil {
			return nil, err
		}
		ts.store = wb
		ts.closers = append(ts.closers, wb.Close)
	case "sqlite":
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		ts.store = db
		ts.closers = append(ts.closers, db.Close)
	case "memory":
		mem := table.NewMemory()
		seedDemo(mem, ts.sheets)
		ts.store = mem
		slog.Info("using in-memory sample data")
	default:
		return nil, fmt.Errorf("unknown backend %q (want sheets, xlsx, sqlite or memory)", ts.backend)
	}

	if addr := v.GetString("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, reads will fall through until it recovers", "addr", addr, "error", err)
		}
		ts.store = cache.New(ts.store, client, cache.DefaultPrefix, v.GetDuration("cache-ttl"))
		ts.closers = append(ts.closers, client.Close)
	}
	return ts, nil
}

func newTransport(ctx context.Context, v *viper.Viper) (mail.Transport, error) {
	from := mail.Sender{Name: v.GetString("sender-name"), Address: v.GetString("sender-email")}
	kind := strings.ToLower(v.GetString("mailer"))
	if kind != "log" && from.Address == "" {
		return nil, errors.New("sender email is required: set --sender-email or ELEARN_SENDER_EMAIL")
	}

	switch kind {
	case "gmail":
		g, err := mail.NewGmail(ctx, v.GetString("credentials"), from)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "sendgrid":
		key := v.GetString("sendgrid-key")
		if key == "" {
			return nil, errors.New("sendgrid key is required: set --sendgrid-key or ELEARN_SENDGRID_KEY")
		}
		return mail.NewSendGrid(key, from), nil
	case "log":
		return mail.NewLog(from), nil
	default:
		return nil, fmt.Errorf("unknown mailer %q (want gmail, sendgrid or log)", kind)
	}
}
